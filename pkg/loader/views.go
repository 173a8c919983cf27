package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iduprojects/insert-services/pkg/models"
	"github.com/iduprojects/insert-services/pkg/repositories"
)

// ViewRefresher re-materializes derived views after a batch. The catalog
// is read dynamically, so views added later are refreshed without code
// changes; the exclusion list holds views too expensive for per-batch
// refresh.
type ViewRefresher struct {
	matviews repositories.MatviewRepository
	schema   string
	excluded map[string]struct{}
	logger   *zap.Logger
}

// NewViewRefresher creates a new ViewRefresher over the given schema.
func NewViewRefresher(matviews repositories.MatviewRepository, schema string, excluded []string, logger *zap.Logger) *ViewRefresher {
	if schema == "" {
		schema = "public"
	}
	set := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		set[name] = struct{}{}
	}
	return &ViewRefresher{
		matviews: matviews,
		schema:   schema,
		excluded: set,
		logger:   logger.Named("views"),
	}
}

// RefreshAll refreshes every materialized view in the schema except the
// excluded ones. A single view's failure is recorded and the remaining
// views are still refreshed.
func (v *ViewRefresher) RefreshAll(ctx context.Context) (*models.RefreshReport, error) {
	names, err := v.matviews.List(ctx, v.schema)
	if err != nil {
		return nil, err
	}

	report := &models.RefreshReport{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("view refresh cancelled: %w", err)
		}
		if _, skip := v.excluded[name]; skip {
			v.logger.Debug("Skipping excluded view", zap.String("view", name))
			report.Skipped = append(report.Skipped, name)
			continue
		}

		v.logger.Info("Refreshing materialized view", zap.String("view", name))
		if err := v.matviews.Refresh(ctx, v.schema, name); err != nil {
			v.logger.Error("Failed to refresh materialized view", zap.String("view", name), zap.Error(err))
			report.Failed = append(report.Failed, models.RefreshFailure{View: name, Err: err})
			continue
		}
		report.Refreshed = append(report.Refreshed, name)
	}

	return report, nil
}
