package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rubik/internal"
	"rubik/internal/config"
	"rubik/internal/container"
	apperrors "rubik/internal/errors"
	"rubik/internal/migration"
	"rubik/ui"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// checkDSN rejects URL-form connection strings the driver cannot parse
func checkDSN(dsn string) error {
	if dsn == "" {
		return apperrors.ConfigInvalid("DATABASE_URL is required")
	}
	if strings.Contains(dsn, "://") {
		if _, err := pq.ParseURL(dsn); err != nil {
			return apperrors.ConfigInvalid("DATABASE_URL is malformed: " + err.Error())
		}
	}
	return nil
}

// initDatabase connects to PostgreSQL, retrying with exponential backoff until the
// connect timeout, and applies pending migrations. Configuration errors are not retried.
func initDatabase(ctx context.Context, appConfig *config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	if err := checkDSN(appConfig.Database.URL); err != nil {
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = appConfig.Database.ConnectTimeout

	var db *sqlx.DB
	err := backoff.RetryNotify(func() error {
		conn, err := sqlx.Open("postgres", appConfig.Database.URL)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := conn.PingContext(ctx); err != nil {
			conn.Close()
			return err
		}
		db = conn
		return nil
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(appConfig.Database.MaxOpenConns)

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := internal.NewLogger(internal.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Log.Environment,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(appConfig, logger); err != nil {
		logger.Fatal("rubik stopped with error", zap.Error(err))
	}
}

func run(appConfig *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, appConfig, logger)
	if err != nil {
		return err
	}

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		db.Close()
		return err
	}
	defer appContainer.Shutdown(context.Background())

	if err := appContainer.InitWithDatabase(ctx, db); err != nil {
		return err
	}

	gin.SetMode(appConfig.Server.GinMode)
	server, err := ui.NewServer(ui.Services{
		Auth:         appContainer.Auth,
		Registration: appContainer.Registration,
		Approval:     appContainer.Approval,
		Profile:      appContainer.Profile,
		Search:       appContainer.Search,
	}, appContainer.Sessions, ui.Options{
		CookieName:   appConfig.Session.CookieName,
		CookieSecure: appConfig.Session.CookieSecure,
		CSRFEnabled:  appConfig.Server.CSRFEnabled,
		MediaRoot:    appContainer.Blobs.Root(),
	}, logger.Named("web"))
	if err != nil {
		return err
	}

	servers := []*http.Server{
		{Addr: ":" + appConfig.Server.Port, Handler: server, ReadHeaderTimeout: 10 * time.Second},
		{Addr: ":" + appConfig.Profiling.Port, Handler: ui.NewOpsRouter(db, appConfig.Profiling.Enabled, logger.Named("ops")), ReadHeaderTimeout: 10 * time.Second},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("server shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}
		return nil
	})
	return g.Wait()
}
