package models

// ServiceType describes a category of services: its capacity and status
// bounds and whether instances occupy whole buildings.
type ServiceType struct {
	ID             int64
	Name           string
	Code           string
	CityFunctionID int64
	CapacityMin    int
	CapacityMax    int
	StatusMin      int
	StatusMax      int
	IsBuilding     bool
}

// DefaultCapacity returns a capacity value inside the declared bounds,
// used when the source document does not provide one. Such values are
// flagged is_capacity_real=false on the stored service.
func (t *ServiceType) DefaultCapacity() int {
	return (t.CapacityMin + t.CapacityMax) / 2
}

// CapacityWithinBounds reports whether v lies inside [CapacityMin, CapacityMax].
func (t *ServiceType) CapacityWithinBounds(v int) bool {
	return v >= t.CapacityMin && v <= t.CapacityMax
}
