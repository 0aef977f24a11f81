package app

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"peoplecounter/internal/config"
	"peoplecounter/internal/logger"
	"peoplecounter/internal/repository/sqlite"
	"peoplecounter/internal/route"
	"peoplecounter/internal/service"
	"peoplecounter/internal/service/ai/onnx"
	"peoplecounter/internal/service/ai/opencv"
	"peoplecounter/internal/service/ai/remote"
	"peoplecounter/internal/service/auth"
	"peoplecounter/internal/service/detection"
	"peoplecounter/internal/service/storage"
	"peoplecounter/internal/service/websocket"
	"peoplecounter/internal/web"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	scorer     detection.Scorer
	sessions   *auth.Service
	renderer   *web.Renderer
	hubService *websocket.HubService
	manager    *service.Manager
}

// NewApp loads configuration and wires every service. The scorer is loaded
// once here and shared by all requests.
func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewLogger(cfg)
	app, err := newApp(cfg, log, NewScorer)
	if err != nil {
		log.Close()
		return nil, err
	}
	return app, nil
}

// newApp wires the services for cfg, building the scorer with newScorer.
func newApp(cfg *config.Config, log *logger.Logger,
	newScorer func(*config.Config, *logger.Logger) (detection.Scorer, error)) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	scorer, err := newScorer(cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	// everything built so far is released when a later step fails
	fail := func(err error) (*App, error) {
		closeScorer(scorer, log)
		db.Close()
		return nil, err
	}

	pipeline, err := detection.NewPipeline(scorer, detection.Options{
		InputSize:           cfg.InputSize,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		IoUThreshold:        cfg.IoUThreshold,
		ClassID:             detection.PersonClassID,
	})
	if err != nil {
		return fail(err)
	}

	store, err := storage.NewUploadStore(cfg, log)
	if err != nil {
		return fail(err)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return fail(err)
	}

	hub := websocket.NewHubService(log)
	sessions := auth.NewService(sqlite.NewUserRepository(db), cfg.SecretKey, cfg.BcryptCost, log)
	mng := service.NewManager(pipeline, store, sqlite.NewUploadRepository(db), sqlite.NewDetectionRepository(db), hub, log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		scorer:     scorer,
		sessions:   sessions,
		renderer:   renderer,
		hubService: hub,
		manager:    mng,
	}, nil
}

// NewScorer builds the scorer selected by cfg.ScorerBackend.
func NewScorer(cfg *config.Config, log *logger.Logger) (detection.Scorer, error) {
	switch cfg.ScorerBackend {
	case config.BackendOpenCV:
		return opencv.NewScorer(cfg.ModelPath, log)
	case config.BackendONNX:
		return onnx.NewScorer(onnx.Options{
			ModelPath:   cfg.ModelPath,
			LibraryPath: cfg.OnnxLibraryPath,
			InputName:   cfg.OnnxInputName,
			OutputName:  cfg.OnnxOutputName,
			InputSize:   cfg.InputSize,
		}, log)
	case config.BackendRemote:
		return remote.NewScorer(cfg.InferenceURL, time.Duration(cfg.InferenceTimeoutSec)*time.Second, log)
	default:
		return nil, &detection.DependencyError{Component: "scorer", Err: fmt.Errorf("unknown backend %q", cfg.ScorerBackend)}
	}
}

func (a *App) Run() error {
	// Start background services
	go a.hubService.Run()
	defer a.Close()

	// Setup routes
	router := route.SetupRoutes(a.manager, a.sessions, a.renderer, a.config, a.logger, a.db)

	a.logger.Info("People counter listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Scorer: %s (%s), input %d, confidence %.2f, IoU %.2f",
		a.config.ScorerBackend, a.config.ModelPath, a.config.InputSize, a.config.ConfidenceThreshold, a.config.IoUThreshold)
	a.logger.Info("Uploads: %s", a.config.UploadDirectory)

	return http.ListenAndServe(fmt.Sprintf(":%d", a.config.Port), router)
}

// Close stops the hub and releases the scorer, database and log files.
func (a *App) Close() error {
	a.hubService.Stop()
	closeScorer(a.scorer, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	return a.logger.Close()
}

// closeScorer releases backends that hold native resources (sessions, nets).
func closeScorer(scorer detection.Scorer, log *logger.Logger) {
	closer, ok := scorer.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		log.Error("Failed to close scorer: %v", err)
	}
}
