package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/iduprojects/insert-services/pkg/apperrors"
	"github.com/iduprojects/insert-services/pkg/database"
	"github.com/iduprojects/insert-services/pkg/document"
	"github.com/iduprojects/insert-services/pkg/models"
	"github.com/iduprojects/insert-services/pkg/repositories"
)

// TxBeginner opens database transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ServiceLoader runs the whole reconciliation pipeline for one document:
// map and validate rows, match them against the store and apply all writes
// in a single transaction guarded by the city advisory lock.
type ServiceLoader struct {
	db                TxBeginner
	cities            repositories.CityRepository
	serviceTypes      repositories.ServiceTypeRepository
	physicalObjects   repositories.PhysicalObjectRepository
	buildings         repositories.BuildingRepository
	functionalObjects repositories.FunctionalObjectRepository
	matcher           *GeometryMatcher
	logger            *zap.Logger
}

// NewServiceLoader creates a new ServiceLoader.
func NewServiceLoader(
	db TxBeginner,
	cities repositories.CityRepository,
	serviceTypes repositories.ServiceTypeRepository,
	physicalObjects repositories.PhysicalObjectRepository,
	buildings repositories.BuildingRepository,
	functionalObjects repositories.FunctionalObjectRepository,
	matcher *GeometryMatcher,
	logger *zap.Logger,
) *ServiceLoader {
	return &ServiceLoader{
		db:                db,
		cities:            cities,
		serviceTypes:      serviceTypes,
		physicalObjects:   physicalObjects,
		buildings:         buildings,
		functionalObjects: functionalObjects,
		matcher:           matcher,
		logger:            logger.Named("loader"),
	}
}

// mappedRow is the result of the parallel validation phase for one row.
type mappedRow struct {
	record *models.ServiceRecord
	err    error
}

// Load ingests one document. Row-level failures degrade single rows to
// rejected; transaction-level faults roll back the whole document and are
// returned as the error.
func (l *ServiceLoader) Load(ctx context.Context, src document.Source, opts Options) (*models.LoadReport, error) {
	session, err := l.newSession(ctx, opts)
	if err != nil {
		return nil, err
	}

	rows, err := readAll(src)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	logger := l.logger.With(
		zap.String("session_id", session.ID.String()),
		zap.String("city", session.City.Name),
		zap.String("service_type", session.ServiceType.Name),
		zap.Bool("dry_run", opts.DryRun),
	)
	logger.Info("Starting document load", zap.Int("rows", len(rows)))

	mapped := l.mapRows(session, rows)

	report := &models.LoadReport{
		SessionID:   session.ID,
		City:        session.City.Name,
		ServiceType: session.ServiceType.Name,
		DryRun:      opts.DryRun,
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch transaction: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // rollback on defer is best-effort

	txCtx := database.WithQuerier(ctx, tx)

	if err := database.AcquireCityLock(txCtx, tx, session.City.ID); err != nil {
		return nil, err
	}

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load cancelled at row %d: %w", i, err)
		}

		result, err := l.processRow(txCtx, tx, session, i, mapped[i])
		if err != nil {
			return nil, fmt.Errorf("batch aborted at row %d: %w", i, err)
		}
		report.Add(*result)

		if opts.LogEvery > 0 && (i+1)%opts.LogEvery == 0 {
			logger.Info("Load progress",
				zap.Int("processed", i+1),
				zap.Int("total", len(rows)))
		}
	}

	if opts.DryRun {
		if err := tx.Rollback(ctx); err != nil {
			return nil, fmt.Errorf("rollback dry run: %w", err)
		}
		logger.Info("Dry run rolled back", zap.Int("rows", len(rows)))
	} else {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit batch: %w", err)
		}
	}

	logger.Info("Document load finished",
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("skipped", report.Skipped),
		zap.Int("rejected", report.Rejected))

	return report, nil
}

// mapRows runs the read-only validation phase with bounded parallelism.
// Matching stays out of this phase: it must observe rows written earlier
// in the same transaction.
func (l *ServiceLoader) mapRows(session *Session, rows []document.Row) []mappedRow {
	mapped := make([]mappedRow, len(rows))
	sem := make(chan struct{}, session.Options.workers())
	var wg sync.WaitGroup

	for i := range rows {
		if _, skip := session.skip[i]; skip {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			record, err := session.Mapper.MapRow(rows[i])
			mapped[i] = mappedRow{record: record, err: err}
		}(i)
	}

	wg.Wait()
	return mapped
}

// processRow applies one row inside its own savepoint. A returned error is
// a transaction fault that aborts the whole batch; everything row-level is
// folded into the result.
func (l *ServiceLoader) processRow(txCtx context.Context, tx pgx.Tx, session *Session, index int, m mappedRow) (*models.RowResult, error) {
	if _, skip := session.skip[index]; skip {
		return &models.RowResult{Index: index, Outcome: models.OutcomeSkipped, Reason: "excluded by operator"}, nil
	}
	if m.err != nil {
		return &models.RowResult{Index: index, Outcome: models.OutcomeRejected, Reason: m.err.Error()}, nil
	}

	sub, err := tx.Begin(txCtx)
	if err != nil {
		return nil, fmt.Errorf("open savepoint: %w", err)
	}
	subCtx := database.WithQuerier(txCtx, sub)

	result, err := l.upsertRow(subCtx, session, m.record)
	if err != nil {
		_ = sub.Rollback(txCtx)
		if apperrors.IsTransactionFault(err) {
			return nil, err
		}
		if !apperrors.IsRowError(err) && !apperrors.IsConstraintViolation(err) {
			// Unknown failure: contained by the savepoint, reject the row.
			l.logger.Warn("Row failed with unclassified error", zap.Int("row", index), zap.Error(err))
		}
		return &models.RowResult{Index: index, Outcome: models.OutcomeRejected, Reason: err.Error()}, nil
	}

	if err := sub.Commit(txCtx); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}

	result.Index = index
	return result, nil
}

// upsertRow runs match plus create or update for one record.
func (l *ServiceLoader) upsertRow(ctx context.Context, session *Session, record *models.ServiceRecord) (*models.RowResult, error) {
	match, err := l.matcher.Match(ctx, session.City, session.ServiceType, record)
	if err != nil {
		return nil, err
	}

	if !match.Matched() {
		return l.createObjects(ctx, session, record)
	}
	return l.updateObjects(ctx, session, record, match)
}

func (l *ServiceLoader) createObjects(ctx context.Context, session *Session, record *models.ServiceRecord) (*models.RowResult, error) {
	obj := &models.PhysicalObject{
		CityID: session.City.ID,
		OSMID:  record.OSMID,
	}
	if err := l.physicalObjects.Insert(ctx, obj, record.GeoJSON); err != nil {
		return nil, err
	}

	if session.ServiceType.IsBuilding {
		building := &models.Building{
			PhysicalObjectID: obj.ID,
			Address:          record.Address,
		}
		if err := l.buildings.Insert(ctx, building); err != nil {
			return nil, err
		}
	}

	fo, err := l.buildService(session, record, obj.ID)
	if err != nil {
		return nil, err
	}
	if err := l.functionalObjects.Insert(ctx, fo); err != nil {
		return nil, err
	}

	return &models.RowResult{
		Outcome:            models.OutcomeCreated,
		FunctionalObjectID: &fo.ID,
		PhysicalObjectID:   &obj.ID,
	}, nil
}

func (l *ServiceLoader) updateObjects(ctx context.Context, session *Session, record *models.ServiceRecord, match *MatchResult) (*models.RowResult, error) {
	objID := *match.PhysicalObjectID
	touched := false

	// A polygon in the source upgrades a point footprint found by address;
	// the stored center is recomputed from the new geometry.
	if match.ByAddress && !record.IsPoint() {
		isPoint, equal, err := l.physicalObjects.GeometryInfo(ctx, objID, record.GeoJSON)
		if err != nil {
			return nil, err
		}
		if isPoint && !equal {
			if err := l.physicalObjects.UpdateGeometry(ctx, objID, record.GeoJSON); err != nil {
				return nil, err
			}
			touched = true
		}
	}

	if session.ServiceType.IsBuilding && record.Address != nil {
		set, err := l.ensureBuildingAddress(ctx, objID, *record.Address)
		if err != nil {
			return nil, err
		}
		touched = touched || set
	}

	existing, err := l.functionalObjects.GetByTypeAndObject(ctx, objID, session.ServiceType.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Known footprint, new service type at it.
			fo, err := l.buildService(session, record, objID)
			if err != nil {
				return nil, err
			}
			if err := l.functionalObjects.Insert(ctx, fo); err != nil {
				return nil, err
			}
			return &models.RowResult{
				Outcome:            models.OutcomeCreated,
				FunctionalObjectID: &fo.ID,
				PhysicalObjectID:   &objID,
			}, nil
		}
		return nil, err
	}

	desired, err := l.composeUpdate(session, record, existing)
	if err != nil {
		return nil, err
	}

	changed, err := l.functionalObjects.Update(ctx, desired)
	if err != nil {
		return nil, err
	}

	outcome := models.OutcomeUnchanged
	if changed || touched {
		outcome = models.OutcomeUpdated
	}
	return &models.RowResult{
		Outcome:            outcome,
		FunctionalObjectID: &existing.ID,
		PhysicalObjectID:   &objID,
	}, nil
}

// ensureBuildingAddress creates the missing building row for a matched
// footprint or fills its empty address. Existing addresses are never
// overwritten. The building table carries no timestamps, so the footprint
// is touched to record the change.
func (l *ServiceLoader) ensureBuildingAddress(ctx context.Context, objID int64, address string) (bool, error) {
	building, err := l.buildings.GetByPhysicalObject(ctx, objID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			b := &models.Building{PhysicalObjectID: objID, Address: &address}
			if err := l.buildings.Insert(ctx, b); err != nil {
				return false, err
			}
			return true, l.physicalObjects.Touch(ctx, objID)
		}
		return false, err
	}

	if building.Address == nil || *building.Address == "" {
		if err := l.buildings.UpdateAddress(ctx, building.ID, address); err != nil {
			return false, err
		}
		return true, l.physicalObjects.Touch(ctx, objID)
	}
	return false, nil
}

// buildService assembles a new functional object from a record, modeling
// absent capacity inside the service type bounds.
func (l *ServiceLoader) buildService(session *Session, record *models.ServiceRecord, objID int64) (*models.FunctionalObject, error) {
	capacity, real, err := resolveCapacity(session.ServiceType, record.Capacity)
	if err != nil {
		return nil, err
	}

	return &models.FunctionalObject{
		PhysicalObjectID: objID,
		ServiceTypeID:    session.ServiceType.ID,
		Name:             record.Name,
		OpeningHours:     record.OpeningHours,
		Website:          record.Website,
		Phone:            record.Phone,
		Capacity:         capacity,
		IsCapacityReal:   real,
		Properties:       record.Properties,
	}, nil
}

// composeUpdate lays the record's provided fields over the stored service.
// Fields the document does not provide keep their stored values, and the
// default placeholder name never replaces a real one.
func (l *ServiceLoader) composeUpdate(session *Session, record *models.ServiceRecord, existing *models.FunctionalObject) (*models.FunctionalObject, error) {
	desired := *existing

	if record.Name != "" && record.Name != session.defaultName {
		desired.Name = record.Name
	}
	if record.OpeningHours != nil {
		desired.OpeningHours = record.OpeningHours
	}
	if record.Website != nil {
		desired.Website = record.Website
	}
	if record.Phone != nil {
		desired.Phone = record.Phone
	}
	if record.Capacity != nil {
		capacity, real, err := resolveCapacity(session.ServiceType, record.Capacity)
		if err != nil {
			return nil, err
		}
		desired.Capacity = capacity
		desired.IsCapacityReal = real
	}
	// Update merges properties as a delta over the stored JSONB.
	desired.Properties = record.Properties

	return &desired, nil
}

func resolveCapacity(serviceType *models.ServiceType, provided *int) (int, bool, error) {
	if provided == nil {
		return serviceType.DefaultCapacity(), false, nil
	}
	if !serviceType.CapacityWithinBounds(*provided) {
		return 0, false, apperrors.NewRowError(
			fmt.Sprintf("capacity %d outside [%d, %d]", *provided, serviceType.CapacityMin, serviceType.CapacityMax),
			apperrors.ErrCapacityOutOfBounds)
	}
	return *provided, true, nil
}

func readAll(src document.Source) ([]document.Row, error) {
	defer src.Close()

	var rows []document.Row
	for {
		row, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return rows, nil
			}
			return nil, err
		}
		rows = append(rows, row)
	}
}
