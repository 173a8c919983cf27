package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iduprojects/insert-services/pkg/apperrors"
	"github.com/iduprojects/insert-services/pkg/models"
	"github.com/iduprojects/insert-services/pkg/repositories"
)

// MatchResult tells the upsert step whether a record resolves to an
// existing physical object or needs a new one.
type MatchResult struct {
	// PhysicalObjectID is set when an existing object matched.
	PhysicalObjectID *int64
	// ByAddress marks an address match, where the record's geometry never
	// replaces the building footprint.
	ByAddress bool
}

// Matched reports whether an existing physical object was found.
func (r *MatchResult) Matched() bool { return r.PhysicalObjectID != nil }

// GeometryMatcher resolves records to existing physical objects. The
// policy is ordered: exact geometry equality first, then normalized
// address equality for building-based service types, then create.
type GeometryMatcher struct {
	physicalObjects repositories.PhysicalObjectRepository
	buildings       repositories.BuildingRepository
	logger          *zap.Logger
}

// NewGeometryMatcher creates a new GeometryMatcher.
func NewGeometryMatcher(
	physicalObjects repositories.PhysicalObjectRepository,
	buildings repositories.BuildingRepository,
	logger *zap.Logger,
) *GeometryMatcher {
	return &GeometryMatcher{
		physicalObjects: physicalObjects,
		buildings:       buildings,
		logger:          logger.Named("matcher"),
	}
}

// Match applies the matching policy for one record inside the given city.
func (m *GeometryMatcher) Match(ctx context.Context, city *models.City, serviceType *models.ServiceType, record *models.ServiceRecord) (*MatchResult, error) {
	ids, err := m.physicalObjects.FindByGeometry(ctx, city.ID, record.GeoJSON)
	if err != nil {
		return nil, fmt.Errorf("geometry match: %w", err)
	}
	if len(ids) > 1 {
		// More than one exact footprint means corrupted store data; failing
		// the row beats guessing.
		return nil, apperrors.NewRowError(
			fmt.Sprintf("%d physical objects share the geometry", len(ids)),
			apperrors.ErrMatchAmbiguity)
	}
	if len(ids) == 1 {
		return &MatchResult{PhysicalObjectID: &ids[0]}, nil
	}

	if record.Address != nil && serviceType.IsBuilding {
		refs, err := m.buildings.FindByAddress(ctx, city.ID, *record.Address)
		if err != nil {
			return nil, fmt.Errorf("address match: %w", err)
		}
		if len(refs) > 0 {
			if len(refs) > 1 {
				m.logger.Debug("multiple buildings share the address, taking the lowest id",
					zap.String("address", *record.Address),
					zap.Int("count", len(refs)))
			}
			return &MatchResult{PhysicalObjectID: &refs[0].PhysicalObjectID, ByAddress: true}, nil
		}
	}

	return &MatchResult{}, nil
}
