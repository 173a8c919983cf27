package models

import (
	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
)

// ServiceRecord is one validated, normalized source row ready for matching.
// Geometry is always present: either parsed from a geometry column or
// synthesized as a point from latitude/longitude. Address is normalized
// against the configured prefixes; nil when the mapping skips it and the
// service type is not building-based.
type ServiceRecord struct {
	Geometry     geom.T
	GeoJSON      []byte
	Address      *string
	Name         string
	OpeningHours *string
	Website      *string
	Phone        *string
	Capacity     *int
	OSMID        *string
	Properties   Properties
}

// IsPoint reports whether the record's geometry is a bare point, which is
// eligible for upgrade when the matched object later provides a polygon.
func (r *ServiceRecord) IsPoint() bool {
	_, ok := r.Geometry.(*geom.Point)
	return ok
}

// Outcome classifies what happened to one source row.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRejected  Outcome = "rejected"
)

// RowResult is the per-row outcome attached to the load report, keyed by
// the row's position in the source document.
type RowResult struct {
	Index              int
	Outcome            Outcome
	FunctionalObjectID *int64
	PhysicalObjectID   *int64
	Reason             string
}

// LoadReport aggregates the per-row results of one document load session.
type LoadReport struct {
	SessionID   uuid.UUID
	City        string
	ServiceType string
	DryRun      bool
	Results     []RowResult
	Created     int
	Updated     int
	Unchanged   int
	Skipped     int
	Rejected    int
}

// Add appends a row result and bumps the matching counter.
func (r *LoadReport) Add(res RowResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeRejected:
		r.Rejected++
	}
}

// AssignmentReport summarizes one location-assignment pass.
type AssignmentReport struct {
	AssignedAdministrativeUnits int
	AssignedMunicipalities      int
	AssignedBlocks              int
	Unresolved                  int
}

// RefreshFailure records a single materialized view that failed to refresh.
type RefreshFailure struct {
	View string
	Err  error
}

// RefreshReport summarizes a materialized-view refresh pass. Failures do
// not abort the pass, so both lists can be non-empty.
type RefreshReport struct {
	Refreshed []string
	Skipped   []string
	Failed    []RefreshFailure
}
