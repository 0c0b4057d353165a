package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/daverlon/KotlinYOLO/internal/config"
	"github.com/daverlon/KotlinYOLO/internal/labels"
	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/repository/sqlite"
	"github.com/daverlon/KotlinYOLO/internal/route"
	"github.com/daverlon/KotlinYOLO/internal/service/ai"
	"github.com/daverlon/KotlinYOLO/internal/service/pipeline"
	"github.com/daverlon/KotlinYOLO/internal/service/storage"
	"github.com/daverlon/KotlinYOLO/internal/service/websocket"
	"github.com/daverlon/KotlinYOLO/internal/vision"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	db      *sqlite.DB
	labels  *labels.Set
	engine  *ai.NetEngine
	worker  *pipeline.Worker
	journal *storage.JournalService
	hub     *websocket.HubService
}

// NewApp wires every service from cfg. The model may fail to load; the
// server still starts and /healthz reports it.
func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.NewLogger(cfg)

	names := labels.Default()
	if cfg.LabelsPath != "" {
		loaded, err := labels.Load(cfg.LabelsPath)
		if err != nil {
			return nil, err
		}
		names.Replace(loaded)
	}
	if names.Len() != cfg.NumClasses {
		log.Warning("Label count %d differs from NUM_CLASSES %d", names.Len(), cfg.NumClasses)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	opts, err := PipelineOptions(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	engine := ai.NewNetEngine(cfg, log)
	hub := websocket.NewHubService(names, log)
	journal := storage.NewJournalService(cfg, log, names, sqlite.NewFrameRepository(db), sqlite.NewDetectionRepository(db))
	worker := pipeline.NewWorker(pipeline.New(engine, opts), log, cfg.ClearOnError, hub, journal)

	return &App{
		config:  cfg,
		logger:  log,
		db:      db,
		labels:  names,
		engine:  engine,
		worker:  worker,
		journal: journal,
		hub:     hub,
	}, nil
}

// PipelineOptions maps config values onto stage options.
func PipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	rotation, err := vision.ParseRotation(cfg.Rotation)
	if err != nil {
		return pipeline.Options{}, err
	}
	preview, err := vision.ParsePreviewScale(cfg.PreviewScale)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		InputSize:           cfg.InputSize,
		NumClasses:          cfg.NumClasses,
		ConfidenceThreshold: float32(cfg.ConfidenceThreshold),
		IoUThreshold:        float32(cfg.IoUThreshold),
		ClassAwareNMS:       cfg.ClassAwareNMS,
		Rotation:            rotation,
		Preview:             preview,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down in order: HTTP, worker,
// hub, journal (final flush), engine and database.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	start(func() { a.worker.Run(ctx) })
	start(func() { a.hub.Run(ctx) })
	start(func() { a.journal.Run(ctx) })
	if a.config.LabelsPath != "" {
		start(func() {
			if err := a.labels.Watch(ctx, a.config.LabelsPath, a.logger); err != nil {
				a.logger.Warning("Labels hot-reload disabled: %v", err)
			}
		})
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: route.SetupRoutes(route.Services{Worker: a.worker, Hub: a.hub, Journal: a.journal, Model: a.engine}, a.config, a.logger),
	}

	a.logger.Info("🚀 Detection overlay server")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("🤖 AI Model: %s (loaded: %v)", a.config.ModelPath, a.engine.Loaded())
	a.logger.Info("🗄️  Journal: %s", a.config.DatabasePath)
	a.logger.Info("⚙️  Pipeline: %s", a.Describe())

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	runErr = multierr.Append(runErr, server.Shutdown(shutdownCtx))

	cancel()
	wg.Wait()
	a.logger.Info("🛑 All services stopped")

	return multierr.Append(runErr, a.Close())
}

// Close releases the engine and the database.
func (a *App) Close() error {
	return multierr.Combine(
		a.engine.Close(),
		a.db.Close(),
	)
}

// Describe is a one-line summary of the effective pipeline settings.
func (a *App) Describe() string {
	c := a.config
	parts := []string{
		fmt.Sprintf("input=%d", c.InputSize),
		fmt.Sprintf("classes=%d", c.NumClasses),
		fmt.Sprintf("conf>%.2f", c.ConfidenceThreshold),
		fmt.Sprintf("iou>%.2f", c.IoUThreshold),
		fmt.Sprintf("preview=%s", c.PreviewScale),
		fmt.Sprintf("rotation=%d", c.Rotation),
	}
	return strings.Join(parts, " ")
}
