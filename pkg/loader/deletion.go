package loader

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iduprojects/insert-services/pkg/apperrors"
	"github.com/iduprojects/insert-services/pkg/database"
	"github.com/iduprojects/insert-services/pkg/repositories"
)

// Deleter performs the explicit deletion operations. The loader itself
// never deletes anything; these run as separate operator commands.
type Deleter struct {
	db                TxBeginner
	physicalObjects   repositories.PhysicalObjectRepository
	buildings         repositories.BuildingRepository
	functionalObjects repositories.FunctionalObjectRepository
	logger            *zap.Logger
}

// NewDeleter creates a new Deleter.
func NewDeleter(
	db TxBeginner,
	physicalObjects repositories.PhysicalObjectRepository,
	buildings repositories.BuildingRepository,
	functionalObjects repositories.FunctionalObjectRepository,
	logger *zap.Logger,
) *Deleter {
	return &Deleter{
		db:                db,
		physicalObjects:   physicalObjects,
		buildings:         buildings,
		functionalObjects: functionalObjects,
		logger:            logger.Named("deleter"),
	}
}

// DeleteService removes one functional object. When it was the last
// service at its physical object and the object carries no building, the
// orphaned footprint is removed too.
func (d *Deleter) DeleteService(ctx context.Context, id int64) error {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin deletion transaction: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // rollback on defer is best-effort

	txCtx := database.WithQuerier(ctx, tx)

	fo, err := d.functionalObjects.GetByID(txCtx, id)
	if err != nil {
		return err
	}

	if err := d.functionalObjects.Delete(txCtx, id); err != nil {
		return err
	}

	remaining, err := d.functionalObjects.CountAtPhysicalObject(txCtx, fo.PhysicalObjectID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		_, err := d.buildings.GetByPhysicalObject(txCtx, fo.PhysicalObjectID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			if err := d.physicalObjects.Delete(txCtx, fo.PhysicalObjectID); err != nil {
				return err
			}
			d.logger.Info("Removed orphaned physical object",
				zap.Int64("physical_object_id", fo.PhysicalObjectID))
		case err != nil:
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit deletion: %w", err)
	}

	d.logger.Info("Deleted functional object", zap.Int64("id", id))
	return nil
}

// DeleteBuilding removes a building together with every service at its
// physical object and the physical object itself.
func (d *Deleter) DeleteBuilding(ctx context.Context, id int64) error {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin deletion transaction: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // rollback on defer is best-effort

	txCtx := database.WithQuerier(ctx, tx)

	building, err := d.buildings.GetByID(txCtx, id)
	if err != nil {
		return err
	}

	removed, err := d.functionalObjects.DeleteAtPhysicalObject(txCtx, building.PhysicalObjectID)
	if err != nil {
		return err
	}

	if err := d.buildings.Delete(txCtx, id); err != nil {
		return err
	}
	if err := d.physicalObjects.Delete(txCtx, building.PhysicalObjectID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit deletion: %w", err)
	}

	d.logger.Info("Deleted building with services",
		zap.Int64("building_id", id),
		zap.Int64("physical_object_id", building.PhysicalObjectID),
		zap.Int64("services_removed", removed))
	return nil
}
