package container

import (
	"context"
	"fmt"
	"time"

	"rubik/adapters/google"
	"rubik/adapters/postgres"
	redisstore "rubik/adapters/redis"
	"rubik/adapters/titles"
	"rubik/app"
	"rubik/internal/config"
	"rubik/internal/media"
	"rubik/internal/session"
	"rubik/ports"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	sweepSchedule           = "@every 10m"
	breakerFailureThreshold = 5
	breakerOpenTimeout      = time.Minute
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB           *sqlx.DB
	Store        ports.IdentityStore
	SessionStore session.Store
	Sessions     *session.Manager
	Blobs        *media.LocalBlobStore

	// Outbound search
	SearchProvider ports.SearchProvider
	TitleFetcher   ports.TitleFetcher

	// Application services
	Auth         *app.AuthService
	Registration *app.RegistrationService
	Approval     *app.ApprovalService
	Profile      *app.ProfileService
	Search       *app.SearchService
	Provisioning *app.ProvisioningService

	stopSweeper func()
	closeRedis  func() error
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Container{Config: cfg, Logger: logger}, nil
}

// InitWithDatabase initializes every component that needs the database, sessions or
// outbound HTTP
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.Store = postgres.NewIdentityStore(db)

	if err := c.initSessions(ctx); err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}
	if err := c.initMedia(); err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}
	c.initSearch()
	c.initServices()

	c.Logger.Info("container initialized",
		zap.String("session_backend", c.Config.Session.Backend),
		zap.String("media_root", c.Config.Media.Root))
	return nil
}

func (c *Container) initSessions(ctx context.Context) error {
	switch c.Config.Session.Backend {
	case config.SessionBackendRedis:
		store, err := redisstore.Open(ctx, c.Config.Session.RedisURL)
		if err != nil {
			return err
		}
		c.SessionStore = store
		c.closeRedis = store.Close
	default:
		store := session.NewMemoryStore()
		stop, err := store.StartSweeper(sweepSchedule, c.Logger)
		if err != nil {
			return err
		}
		c.SessionStore = store
		c.stopSweeper = stop
	}
	c.Sessions = session.NewManager(c.SessionStore, c.Config.Session.TTL, c.Logger)
	return nil
}

func (c *Container) initMedia() error {
	blobs, err := media.NewLocalBlobStore(c.Config.Media.Root)
	if err != nil {
		return err
	}
	c.Blobs = blobs
	return nil
}

// initSearch wires the result-page provider behind a circuit breaker, plus the title fetcher
func (c *Container) initSearch() {
	cfg := c.Config.Search
	provider := google.NewProvider(google.Config{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
	}, c.Logger.Named("search"))
	c.SearchProvider = google.NewBreakerProvider(provider, breakerFailureThreshold, breakerOpenTimeout, c.Logger.Named("search"))
	c.TitleFetcher = titles.NewFetcher(cfg.TitleTimeout, cfg.UserAgent, c.Logger.Named("titles"))
}

func (c *Container) initServices() {
	c.Auth = app.NewAuthService(c.Store, c.Logger)
	c.Registration = app.NewRegistrationService(c.Store, c.Logger)
	c.Approval = app.NewApprovalService(c.Store, c.Logger)
	c.Profile = app.NewProfileService(c.Store, c.Blobs, c.Logger)
	c.Provisioning = app.NewProvisioningService(c.Store, c.Logger)
	c.Search = app.NewSearchService(c.SearchProvider, c.TitleFetcher, c.SearchOptions(), c.Logger)
}

// SearchOptions are the provider limits taken from configuration
func (c *Container) SearchOptions() ports.SearchOptions {
	return ports.SearchOptions{
		NumResults: c.Config.Search.NumResults,
		Lang:       c.Config.Search.Lang,
		Stop:       c.Config.Search.Stop,
		Pause:      c.Config.Search.Pause,
	}
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.stopSweeper != nil {
		c.stopSweeper()
	}
	if c.closeRedis != nil {
		if err := c.closeRedis(); err != nil {
			c.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}

	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
