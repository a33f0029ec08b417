package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"flight_spotter/internal/api"
	"flight_spotter/internal/auth"
	"flight_spotter/internal/config"
	"flight_spotter/internal/database"
	"flight_spotter/internal/opensky"
	"flight_spotter/internal/planespotters"
	"flight_spotter/internal/reference"
	"flight_spotter/internal/resolver"
	"flight_spotter/internal/scheduler"
	"flight_spotter/internal/tasks"
)

const shutdownTimeout = 10 * time.Second

// Daemon owns the HTTP server, the background scheduler and the database
type Daemon struct {
	cancel    context.CancelFunc
	scheduler *scheduler.Scheduler
	database  *database.DB
	server    *http.Server
	started   bool
	done      chan struct{}
}

// New wires every component from cfg. Reference data is loaded before it returns,
// so a daemon that was created successfully can answer focus lookups immediately.
func New(cfg *config.Config) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	db, err := database.New(cfg.DBPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	sched := scheduler.New(ctx)

	var archivePath string
	if cfg.Reference.SyncInterval > 0 {
		sync := tasks.NewDatasetSync(cfg.Reference.DatasetURL, cfg.Reference.DatasetDir, cfg.Reference.SyncInterval)
		if _, err := sync.Sync(ctx); err != nil {
			slog.Error("Initial dataset sync failed", "error", err)
		}
		if _, err := os.Stat(sync.ArchivePath()); err == nil {
			archivePath = sync.ArchivePath()
		}
		sched.AddTask(sync)
	}

	store, err := buildReferenceStore(cfg.Reference, db, archivePath)
	if err != nil {
		cancel()
		_ = db.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.TokenTTL)
	if err != nil {
		cancel()
		_ = db.Close()
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	live := opensky.NewClient(opensky.Config{
		BaseURL:  cfg.OpenSky.BaseURL,
		Username: cfg.OpenSky.Username,
		Password: cfg.OpenSky.Password,
		Timeout:  cfg.OpenSky.Timeout,
	})
	photos := planespotters.NewClient(planespotters.Config{
		BaseURL:  cfg.Planespotters.BaseURL,
		Timeout:  cfg.Planespotters.Timeout,
		CacheTTL: cfg.Planespotters.CacheTTL,
	})

	res := resolver.New(reference.NewIndex(store), live, photos, resolver.Config{
		LiveTimeout:  cfg.Resolver.LiveTimeout,
		PhotoTimeout: cfg.Resolver.PhotoTimeout,
	})

	srv := api.NewServer(api.Deps{
		Resolver:   res,
		Area:       live,
		Users:      db.UserRepository(),
		Flights:    db.FlightRepository(),
		Tokens:     tokens,
		BcryptCost: cfg.Auth.BcryptCost,
		MapsAPIKey: cfg.Maps.APIKey,
	})

	return &Daemon{
		cancel:    cancel,
		scheduler: sched,
		database:  db,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		done: make(chan struct{}),
	}, nil
}

// buildReferenceStore selects the store named by cfg.Source. The relational store is
// filled from the FAA files on first start only.
func buildReferenceStore(cfg config.ReferenceConfig, db *database.DB, syncedArchive string) (reference.Store, error) {
	src := reference.Source{
		ArchivePath: cfg.ArchivePath,
		MasterPath:  cfg.MasterPath,
		AcftRefPath: cfg.AcftRefPath,
	}
	if src.ArchivePath == "" {
		src.ArchivePath = syncedArchive
	}

	switch cfg.Source {
	case config.SourceFile:
		store, err := reference.LoadFileStore(src)
		if err != nil {
			return nil, fmt.Errorf("failed to load reference files: %w", err)
		}
		return store, nil

	case config.SourceSQL:
		repo := db.ReferenceRepository()
		populated, err := repo.IsTablePopulated()
		if err != nil {
			return nil, fmt.Errorf("failed to check reference tables: %w", err)
		}
		if populated {
			slog.Info("Reference tables are already populated")
			return repo, nil
		}

		slog.Info("Reference tables are empty, loading FAA datasets",
			"archive", src.ArchivePath,
			"master", src.MasterPath,
			"acftref", src.AcftRefPath,
		)
		if err := repo.LoadFromSource(src, cfg.BatchSize); err != nil {
			return nil, fmt.Errorf("failed to load reference tables: %w", err)
		}
		slog.Info("Successfully loaded FAA datasets")
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown reference source %q", cfg.Source)
	}
}

// Handler returns the HTTP handler served by the daemon
func (d *Daemon) Handler() http.Handler {
	return d.server.Handler
}

func (d *Daemon) Start() error {
	slog.Info("Starting daemon", "listen_addr", d.server.Addr, "tasks", d.scheduler.Len())

	d.scheduler.Start()
	d.started = true

	go func() {
		defer close(d.done)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "error", err)
			d.cancel()
		}
	}()

	slog.Info("Daemon started successfully")
	return nil
}

// Done is closed once the HTTP server has stopped
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Stop gracefully stops the daemon
func (d *Daemon) Stop() error {
	slog.Info("Stopping daemon")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down HTTP server", "error", err)
	}
	if d.started {
		<-d.done
	}

	d.cancel()
	d.scheduler.Stop()

	if err := d.database.Close(); err != nil {
		slog.Error("Error closing database", "error", err)
	}

	slog.Info("Daemon stopped")
	return nil
}
