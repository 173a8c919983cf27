// Package models contains domain types for the city service loader.
package models

import "time"

// DivisionType controls which of AdministrativeUnit/Municipality is the
// authoritative parent of the other inside a city.
type DivisionType string

const (
	DivisionAdministrativeUnitParent DivisionType = "ADMINISTRATIVE_UNIT_PARENT"
	DivisionMunicipalityParent       DivisionType = "MUNICIPALITY_PARENT"
	DivisionNoParent                 DivisionType = "NO_PARENT"
)

// City is the top-level spatial container. Its geometry and division
// policy are owned by the boundary-management workflow and are read-only
// inputs here.
type City struct {
	ID           int64
	Name         string
	Code         string
	DivisionType DivisionType
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdministrativeUnit is a first-level spatial partition of a city.
type AdministrativeUnit struct {
	ID                 int64
	CityID             int64
	ParentMunicipality *int64
	Name               string
}

// Municipality is a spatial partition of a city that, depending on the
// city's division type, either contains or is contained by an
// administrative unit.
type Municipality struct {
	ID                       int64
	CityID                   int64
	ParentAdministrativeUnit *int64
	Name                     string
}

// Block is the finest spatial partition. Blocks frequently cross the
// borders of the coarser partitions, which is why location assignment
// needs the area-overlap fallback.
type Block struct {
	ID                   int64
	CityID               int64
	AdministrativeUnitID *int64
	MunicipalityID       *int64
	Population           *int
}
