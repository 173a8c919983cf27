// Package cli wires the loader pipeline into cobra commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iduprojects/insert-services/pkg/config"
	"github.com/iduprojects/insert-services/pkg/database"
	"github.com/iduprojects/insert-services/pkg/loader"
	"github.com/iduprojects/insert-services/pkg/logging"
	"github.com/iduprojects/insert-services/pkg/repositories"
)

// app holds the shared process state behind every command. It is built in
// the root PersistentPreRunE and torn down after the command finishes.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.DB

	cities            repositories.CityRepository
	serviceTypes      repositories.ServiceTypeRepository
	physicalObjects   repositories.PhysicalObjectRepository
	buildings         repositories.BuildingRepository
	functionalObjects repositories.FunctionalObjectRepository
	territory         repositories.TerritoryRepository
	matviews          repositories.MatviewRepository
}

// NewRootCommand builds the insert-services command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "insert-services",
		Short:         "Load city service documents into the spatial database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.AddCommand(
		newLoadCommand(a),
		newAssignLocationsCommand(a),
		newRefreshViewsCommand(a),
		newDeleteCommand(a),
		newMigrateCommand(a),
	)

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	dsn := cfg.Database.ConnectionString()
	logger.Info("Connecting to database",
		zap.String("dsn", logging.SanitizeConnectionString(dsn)))

	db, err := database.NewConnection(cmd.Context(), &database.Config{
		URL:            dsn,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return err
	}
	a.db = db

	a.cities = repositories.NewCityRepository(db.Pool)
	a.serviceTypes = repositories.NewServiceTypeRepository(db.Pool)
	a.physicalObjects = repositories.NewPhysicalObjectRepository(db.Pool)
	a.buildings = repositories.NewBuildingRepository(db.Pool)
	a.functionalObjects = repositories.NewFunctionalObjectRepository(db.Pool)
	a.territory = repositories.NewTerritoryRepository(db.Pool)
	a.matviews = repositories.NewMatviewRepository(db.Pool)

	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) newLoader() *loader.ServiceLoader {
	matcher := loader.NewGeometryMatcher(a.physicalObjects, a.buildings, a.logger)
	return loader.NewServiceLoader(
		a.db.Pool,
		a.cities,
		a.serviceTypes,
		a.physicalObjects,
		a.buildings,
		a.functionalObjects,
		matcher,
		a.logger,
	)
}

func (a *app) newAssigner() *loader.LocationAssigner {
	return loader.NewLocationAssigner(a.cities, a.territory, a.cfg.Loader.OverlapThreshold, a.logger)
}

func (a *app) newRefresher(excluded []string) *loader.ViewRefresher {
	if excluded == nil {
		excluded = a.cfg.Loader.ExcludedViews
	}
	return loader.NewViewRefresher(a.matviews, "public", excluded, a.logger)
}

func (a *app) newDeleter() *loader.Deleter {
	return loader.NewDeleter(a.db.Pool, a.physicalObjects, a.buildings, a.functionalObjects, a.logger)
}
