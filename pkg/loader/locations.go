package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iduprojects/insert-services/pkg/models"
	"github.com/iduprojects/insert-services/pkg/repositories"
)

// LocationAssigner fills missing spatial-hierarchy references after a
// batch commits. It only ever fills null references, so manual
// corrections survive re-runs and the whole pass is idempotent.
type LocationAssigner struct {
	cities    repositories.CityRepository
	territory repositories.TerritoryRepository
	threshold float64
	logger    *zap.Logger
}

// NewLocationAssigner creates a new LocationAssigner. threshold is the
// minimal intersection share of the object's own area accepted by the
// overlap fallback.
func NewLocationAssigner(
	cities repositories.CityRepository,
	territory repositories.TerritoryRepository,
	threshold float64,
	logger *zap.Logger,
) *LocationAssigner {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &LocationAssigner{
		cities:    cities,
		territory: territory,
		threshold: threshold,
		logger:    logger.Named("locations"),
	}
}

// AssignLocations processes every physical object and block of the city
// that lacks hierarchy references. Unresolvable objects stay null and are
// only counted; the pass is safely re-entrant after cancellation.
func (a *LocationAssigner) AssignLocations(ctx context.Context, cityName string) (*models.AssignmentReport, error) {
	city, err := a.cities.GetByNameOrCode(ctx, cityName)
	if err != nil {
		return nil, fmt.Errorf("resolve city %q: %w", cityName, err)
	}

	report := &models.AssignmentReport{}

	objects, err := a.territory.ListObjectsMissingHierarchy(ctx, city.ID)
	if err != nil {
		return nil, err
	}
	for _, gaps := range objects {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("location assignment cancelled: %w", err)
		}
		if err := a.assignObject(ctx, city, repositories.KindPhysicalObject, gaps, report); err != nil {
			return nil, err
		}
	}

	blocks, err := a.territory.ListBlocksMissingHierarchy(ctx, city.ID)
	if err != nil {
		return nil, err
	}
	for _, gaps := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("location assignment cancelled: %w", err)
		}
		if err := a.assignObject(ctx, city, repositories.KindBlock, gaps, report); err != nil {
			return nil, err
		}
	}

	a.logger.Info("Location assignment finished",
		zap.String("city", city.Name),
		zap.Int("administrative_units", report.AssignedAdministrativeUnits),
		zap.Int("municipalities", report.AssignedMunicipalities),
		zap.Int("blocks", report.AssignedBlocks),
		zap.Int("unresolved", report.Unresolved))

	return report, nil
}

func (a *LocationAssigner) assignObject(ctx context.Context, city *models.City, kind repositories.ObjectKind, gaps repositories.ObjectGaps, report *models.AssignmentReport) error {
	resolvedAll := true

	for _, level := range levelOrder(city.DivisionType) {
		switch level {
		case repositories.LevelAdministrativeUnit:
			if !gaps.NeedsAdministrativeUnit {
				continue
			}
		case repositories.LevelMunicipality:
			if !gaps.NeedsMunicipality {
				continue
			}
		case repositories.LevelBlock:
			if !gaps.NeedsBlock || kind == repositories.KindBlock {
				continue
			}
		}

		assigned, err := a.assignLevel(ctx, kind, level, city.ID, gaps.ID)
		if err != nil {
			return err
		}
		if !assigned {
			resolvedAll = false
			continue
		}
		switch level {
		case repositories.LevelAdministrativeUnit:
			report.AssignedAdministrativeUnits++
		case repositories.LevelMunicipality:
			report.AssignedMunicipalities++
		case repositories.LevelBlock:
			report.AssignedBlocks++
		}
	}

	if !resolvedAll {
		report.Unresolved++
	}
	return nil
}

// assignLevel tries center containment first, then the area-overlap
// fallback for geometries that straddle candidate borders.
func (a *LocationAssigner) assignLevel(ctx context.Context, kind repositories.ObjectKind, level repositories.HierarchyLevel, cityID, objectID int64) (bool, error) {
	candidateID, found, err := a.territory.FindByCenter(ctx, kind, level, cityID, objectID)
	if err != nil {
		return false, err
	}
	if !found {
		candidateID, found, err = a.territory.FindByOverlap(ctx, kind, level, cityID, objectID, a.threshold)
		if err != nil {
			return false, err
		}
	}
	if !found {
		return false, nil
	}

	return a.territory.AssignIfNull(ctx, kind, level, objectID, candidateID)
}

// levelOrder puts the city's authoritative partition first so its
// reference lands before the dependent one.
func levelOrder(division models.DivisionType) []repositories.HierarchyLevel {
	if division == models.DivisionMunicipalityParent {
		return []repositories.HierarchyLevel{
			repositories.LevelMunicipality,
			repositories.LevelAdministrativeUnit,
			repositories.LevelBlock,
		}
	}
	return []repositories.HierarchyLevel{
		repositories.LevelAdministrativeUnit,
		repositories.LevelMunicipality,
		repositories.LevelBlock,
	}
}

// RunMaintenance recomputes block populations from living buildings and
// fills missing building areas from the footprint geometry. Both updates
// are set-based and idempotent.
func (a *LocationAssigner) RunMaintenance(ctx context.Context, cityName string) error {
	city, err := a.cities.GetByNameOrCode(ctx, cityName)
	if err != nil {
		return fmt.Errorf("resolve city %q: %w", cityName, err)
	}

	populations, err := a.territory.UpdateBlockPopulations(ctx, city.ID)
	if err != nil {
		return err
	}
	areas, err := a.territory.FillMissingBuildingAreas(ctx, city.ID)
	if err != nil {
		return err
	}

	a.logger.Info("Maintenance pass finished",
		zap.String("city", city.Name),
		zap.Int64("block_populations", populations),
		zap.Int64("building_areas", areas))

	return nil
}
