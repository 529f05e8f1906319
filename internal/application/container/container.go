// Package container provides dependency injection for all singleton services
package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/analytics"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	analyticsrepo "github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/analytics"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/leads"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/state"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Tracker Services
	Registry          *services.TrackerRegistry
	LeadReportService *services.LeadReportService
	AnalyticsService  *services.AnalyticsService

	// Infrastructure Dependencies
	Logger   *logging.ChanneledLogger
	Metrics  *performance.Metrics
	LeadFeed *messaging.LeadFeed
	State    repositories.KeyedStateStore
	Leads    repositories.LeadRepository
	DB       *database.DB
	LeadsDB  *database.DB
}

// NewLogger builds the channeled logger from config.
func NewLogger() (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDirectory
	cfg.JSONFormat = config.LogJSON
	cfg.DefaultLevel = logging.ParseLevel(config.LogLevel)
	cfg.ChannelLevels[logging.ChannelSlowQuery] = slog.LevelWarn
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		return nil, err
	}
	if err := logger.ApplyChannelLevels(config.LogChannelLevels); err != nil {
		logger.Close()
		return nil, fmt.Errorf("LOG_CHANNEL_LEVELS: %w", err)
	}
	return logger, nil
}

// NewContainer opens the configured backends and wires all singleton services
func NewContainer(ctx context.Context, logger *logging.ChanneledLogger) (*Container, error) {
	c := &Container{
		Logger:  logger,
		Metrics: performance.NewMetrics(),
	}

	start := time.Now()
	if err := c.openStateBackend(); err != nil {
		c.Close()
		return nil, err
	}
	logger.LogStartupPhase("state_backend", time.Since(start), true)

	start = time.Now()
	if err := c.openLeadStore(ctx); err != nil {
		c.Close()
		return nil, err
	}
	logger.LogStartupPhase("lead_store", time.Since(start), true)

	var eventRepo analytics.EventRepository
	if c.DB != nil {
		eventRepo = analyticsrepo.NewSQLEventRepository(c.DB, logger)
	}
	c.AnalyticsService = services.NewAnalyticsService(eventRepo, 1024, services.SystemClock{}, logger)

	c.LeadFeed = messaging.NewLeadFeed(nil, logger)

	var notifier services.LeadNotifier
	if config.ResendAPIKey != "" && config.LeadNotifyEmail != "" {
		emailService, err := email.NewService()
		if err != nil {
			logger.Startup().Warn("Lead email notifications disabled", "error", err.Error())
		} else {
			notifier = emailService
		}
	}

	c.Registry = services.NewTrackerRegistry(c.State, services.TrackerDeps{
		Config: services.TrackerConfig{
			SessionTimeout:    config.SessionTimeout,
			ReturnVisitWindow: config.ReturnVisitWindow,
			TimelineCapacity:  config.TimelineCapacity,
			LeadsCollection:   config.LeadsCollection,
		},
		Leads:     c.Leads,
		Analytics: c.AnalyticsService,
		Notifier:  notifier,
		Publisher: c.LeadFeed,
		Clock:     services.SystemClock{},
		Logger:    logger,
		Metrics:   c.Metrics,
	}, config.TrackerIdleTimeout)
	c.LeadFeed.SetActivitySource(c.Registry)

	c.LeadReportService = services.NewLeadReportService(c.Leads, config.LeadsCollection, logger)
	return c, nil
}

// sqlite returns the shared local SQLite database, opening it on first use.
func (c *Container) sqlite() (*database.DB, error) {
	if c.DB != nil {
		return c.DB, nil
	}
	db, err := database.OpenSQLite(config.SQLitePath, c.Logger)
	if err != nil {
		return nil, err
	}
	c.DB = db
	return db, nil
}

func (c *Container) openStateBackend() error {
	switch config.StateBackend {
	case config.BackendBadger:
		store, err := state.NewBadgerStore(config.StateDir, c.Logger)
		if err != nil {
			return err
		}
		c.State = store
	case config.BackendSQLite:
		db, err := c.sqlite()
		if err != nil {
			return err
		}
		c.State = state.NewSQLStore(db, c.Logger)
	case config.BackendMemory:
		c.State = state.NewMemoryStore()
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", config.StateBackend)
	}
	c.Logger.Startup().Info("State backend ready", "backend", config.StateBackend)
	return nil
}

func (c *Container) openLeadStore(ctx context.Context) error {
	switch config.LeadStoreBackend {
	case config.BackendSQLite:
		db, err := c.sqlite()
		if err != nil {
			return err
		}
		c.Leads = leads.NewSQLLeadRepository(db, c.Logger)
	case config.BackendTurso:
		if err := database.TestTursoConnectionWithLogger(config.TursoDatabaseURL, config.TursoAuthToken, c.Logger); err != nil {
			return fmt.Errorf("turso connection test failed: %w", err)
		}
		db, err := database.OpenTurso(config.TursoDatabaseURL, config.TursoAuthToken, c.Logger)
		if err != nil {
			return err
		}
		c.LeadsDB = db
		c.Leads = leads.NewSQLLeadRepository(db, c.Logger)
	case config.BackendDynamoDB:
		client, err := leads.NewDynamoDBClient(ctx, config.AWSRegion)
		if err != nil {
			return err
		}
		c.Leads = leads.NewDynamoDBLeadRepository(client, config.DynamoDBTable, c.Logger)
	case config.BackendNone:
		c.Logger.Startup().Warn("No lead store configured; leads will report store unavailable")
	default:
		return fmt.Errorf("unknown LEAD_STORE_BACKEND %q", config.LeadStoreBackend)
	}
	c.Logger.Startup().Info("Lead store ready", "backend", config.LeadStoreBackend)
	return nil
}

// Close releases every backend the container opened.
func (c *Container) Close() error {
	var firstErr error
	if c.State != nil {
		if err := c.State.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, db := range []*database.DB{c.LeadsDB, c.DB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
