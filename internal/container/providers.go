package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/aggregate"
	"github.com/garyjia/event-budget/internal/application/dispatcher"
	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/application/service"
	"github.com/garyjia/event-budget/internal/application/workflow"
	"github.com/garyjia/event-budget/internal/config"
	"github.com/garyjia/event-budget/internal/infrastructure/persistence/repository"
	"github.com/garyjia/event-budget/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/event-budget/internal/infrastructure/storage"
	httpapi "github.com/garyjia/event-budget/internal/interfaces/http"
	"github.com/garyjia/event-budget/internal/report"
	"github.com/garyjia/event-budget/pkg/database"
)

// DatabaseBundle holds database-related components
type DatabaseBundle struct {
	Raw            *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies pending embedded migrations
func ProvideDatabase(cfg database.Config, logger *zap.Logger) (*DatabaseBundle, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if _, err := migrator.RunMigrations(database.EmbeddedMigrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Raw:            db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories over one transaction manager
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	return &RepositoryBundle{
		Budgets:   repository.NewBudgetRepository(db, logger),
		History:   repository.NewHistoryRepository(db, logger),
		Directory: repository.NewDirectoryRepository(db, logger),
	}, nil
}

// ProvideDispatcher creates the in-process event dispatcher
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(logger.Named("dispatcher")))
}

// ServiceDeps holds dependencies for creating services
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  *sqlite.DB
	Dispatcher dispatcher.Dispatcher
	Config     *config.Config
	Logger     *zap.Logger
}

// ProvideServices builds the aggregate store, the workflow engine and every
// application service, and registers the event subscribers
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.TxManager == nil || deps.Dispatcher == nil || deps.Config == nil {
		return nil, fmt.Errorf("incomplete service dependencies")
	}
	logger := deps.Logger
	repos := deps.Repos

	store := aggregate.NewStore(
		repos.Budgets,
		repos.History,
		deps.TxManager,
		logger.Named("store"),
		aggregate.WithDispatcher(deps.Dispatcher),
	)

	var statsOpts []service.StatisticsOption
	if deps.Config.Statistics.CacheEnabled {
		statsOpts = append(statsOpts, service.WithCache(deps.Dispatcher))
	}
	stats := service.NewStatisticsService(repos.Budgets, logger, statsOpts...)

	queries := service.NewBudgetQueryService(repos.Budgets, repos.History)

	var exportOpts []service.ExportOption
	if deps.Config.Reports.ArchiveOnLock {
		exportOpts = append(exportOpts, service.WithArchiveOnLock(deps.Dispatcher))
	}
	exports := service.NewExportService(
		queries,
		stats,
		repos.Budgets,
		storage.NewLocalReportStore(deps.Config.Reports.Dir, logger.Named("reports")),
		report.NewRenderer(logger),
		logger,
		exportOpts...,
	)

	return &ServiceBundle{
		Store:      store,
		Engine:     workflow.NewEngine(store, logger),
		Expenses:   service.NewExpenseService(store, repos.Directory, logger),
		Queries:    queries,
		Statistics: stats,
		Exports:    exports,
		Audit:      service.NewAuditTrail(deps.Dispatcher, logger),
	}, nil
}

// ProvideHTTPServer creates the gin API server over the service bundle
func ProvideHTTPServer(cfg *config.Config, services *ServiceBundle, roles port.RoleResolver, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(cfg.ServerOptions(), httpapi.Services{
		Engine:     services.Engine,
		Expenses:   services.Expenses,
		Queries:    services.Queries,
		Statistics: services.Statistics,
		Exports:    services.Exports,
		Roles:      roles,
	}, &zapLoggerAdapter{logger: logger.Named("http")})
}
