// Package bootstrap builds the application graph: storage, clients, stores,
// the analysis coordinator, the timeout monitor, and the router.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"calotrack/internal/analysis"
	"calotrack/internal/backend"
	"calotrack/internal/logs"
	"calotrack/internal/netclient"
	"calotrack/internal/savedmeals"
	"calotrack/internal/session"
	"calotrack/internal/shared/config"
	"calotrack/internal/shared/server"
	"calotrack/internal/shared/storage/kv"
	"calotrack/internal/shared/telemetry"
	"calotrack/internal/timeout"
	"calotrack/internal/water"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine

	Blobs  kv.Store
	Tokens *netclient.TokenStore

	Meals      *logs.Store
	Exercises  *logs.Store
	Weights    *logs.Store
	Water      *water.Store
	SavedMeals *savedmeals.Store

	Backend     *backend.Client
	Coordinator *analysis.Coordinator
	Monitor     *timeout.Monitor

	Session    *session.Service
	GoogleAuth *session.GoogleService

	closers []func() error
}

// Build prepares shared dependencies and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}

	blobs, err := buildBlobs(ctx, cfg, app)
	if err != nil {
		return nil, err
	}
	app.Blobs = blobs

	app.Tokens = netclient.NewTokenStore(ctx, blobs)
	net := netclient.New(cfg.BackendBaseURL, cfg.RequestTimeout, app.Tokens)
	app.Backend = backend.NewClient(net)

	app.Meals = logs.NewStore(ctx, logs.KindMeal, blobs)
	app.Exercises = logs.NewStore(ctx, logs.KindExercise, blobs)
	app.Weights = logs.NewStore(ctx, logs.KindWeight, blobs)
	app.Water = water.NewStore(ctx, blobs)
	app.SavedMeals = savedmeals.NewStore(ctx, blobs)

	app.Coordinator = analysis.NewCoordinator(app.Meals, app.Exercises, app.Weights, app.Backend, cfg.Fallback)

	app.Monitor = &timeout.Monitor{
		Stores:    []*logs.Store{app.Meals, app.Exercises},
		Threshold: cfg.AnalysisTimeout,
		Interval:  cfg.TickInterval,
	}

	app.Session = &session.Service{Backend: app.Backend, Tokens: app.Tokens}
	app.GoogleAuth = session.NewGoogleService(
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		LogsHandler:       logs.NewHandler(app.Meals, app.Exercises, app.Weights, app.Coordinator, cfg.AnalysisTimeout),
		AnalysisHandler:   analysis.NewHandler(app.Coordinator),
		WaterHandler:      water.NewHandler(app.Water),
		SavedMealsHandler: savedmeals.NewHandler(app.SavedMeals, app.Coordinator),
		SessionHandler:    session.NewHandler(app.Session),
		GoogleAuth:        app.GoogleAuth,
	})

	return app, nil
}

// Close releases held resources.
func (a *App) Close() error {
	var firstErr error
	for _, close := range a.closers {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildBlobs(ctx context.Context, cfg config.Config, app *App) (kv.Store, error) {
	switch cfg.StoreType {
	case "sqlite":
		store, err := kv.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		app.closers = append(app.closers, store.Close)
		telemetry.Info("bootstrap.store", map[string]any{"type": "sqlite", "path": cfg.SQLitePath})
		return store, nil
	case "memory":
		telemetry.Info("bootstrap.store", map[string]any{"type": "memory"})
		return kv.NewMemory(), nil
	default:
		telemetry.Info("bootstrap.store", map[string]any{"type": "file", "dir": cfg.StoreDir})
		return kv.NewFileStore(cfg.StoreDir), nil
	}
}
