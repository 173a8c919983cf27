package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PhysicalObject is a geometric footprint in the city model. Its geometry
// lives in the database as PostGIS geometry; the hierarchy references stay
// null until location assignment fills them.
type PhysicalObject struct {
	ID                   int64
	CityID               int64
	OSMID                *string
	AdministrativeUnitID *int64
	MunicipalityID       *int64
	BlockID              *int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Building is the 1:1 structural extension of a physical object. At most
// one building exists per physical object.
type Building struct {
	ID               int64
	PhysicalObjectID int64
	Address          *string
	BuildingArea     *float64
	LivingArea       *float64
	StoreysCount     *int
	ResidentNumber   *int
	IsLiving         *bool
}

// FunctionalObject is one service instance located at a physical object.
type FunctionalObject struct {
	ID               int64
	PhysicalObjectID int64
	ServiceTypeID    int64
	Name             string
	OpeningHours     *string
	Website          *string
	Phone            *string
	Capacity         int
	IsCapacityReal   bool
	Properties       Properties
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Properties is the free-form attribute bag stored as JSONB on functional
// objects. Update merges new keys over existing ones instead of replacing
// the whole document.
type Properties map[string]interface{}

// Value implements driver.Valuer for database serialization.
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for database deserialization.
func (p *Properties) Scan(value interface{}) error {
	if value == nil {
		*p = make(Properties)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Properties", value)
	}
	return json.Unmarshal(bytes, p)
}
