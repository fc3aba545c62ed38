// Command worldhub runs the environment state hub: a frame engine driving
// time of day, weather and sound volumes, served over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quasilyte/gdata/v2"

	"github.com/talgya/world-api/internal/api"
	"github.com/talgya/world-api/internal/audio"
	"github.com/talgya/world-api/internal/config"
	"github.com/talgya/world-api/internal/engine"
	"github.com/talgya/world-api/internal/environment"
	"github.com/talgya/world-api/internal/persistence"
	"github.com/talgya/world-api/internal/presets"
	"github.com/talgya/world-api/internal/snapshot"
	"github.com/talgya/world-api/internal/telemetry"
	"github.com/talgya/world-api/internal/weather"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "yaml config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Telemetry ─────────────────────────────────────────────────────
	shutdownTracing, err := telemetry.Setup(ctx, "worldhub", cfg.OTelEndpoint)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		slog.Error("failed to create data dir", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Hub ───────────────────────────────────────────────────────────
	hub := environment.New(environment.Config{Mode: cfg.Mode(), Logger: logger})
	startFrame, err := loadHub(ctx, hub, db, cfg)
	if err != nil {
		slog.Error("failed to load environment", "error", err)
		os.Exit(1)
	}

	client := weather.NewClient(cfg.WeatherKey, cfg.WeatherLocation)
	if client != nil {
		slog.Info("live weather enabled", "location", client.Location())
	} else {
		slog.Warn("WORLDAPI_WEATHER_KEY not set, live weather disabled")
	}
	binder := &extensionBinder{ctx: ctx, client: client, poll: cfg.WeatherPoll}
	binder.bind(hub)

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(hub)
	eng.Interval = cfg.FrameInterval
	eng.SetFrame(startFrame)

	view := api.NewView(hub.State())
	hub.SetSyncer(view)

	events := api.NewBroadcaster(eng.Frame)
	hub.AddListener(events)

	mixer := audio.NewMixer()
	mixer.SetVolumes(hub.Volume())
	hub.AddListener(mixer)

	recorder := persistence.NewRecorder(db, eng.Frame, 256)
	hub.AddListener(recorder)
	recCtx, stopRecorder := context.WithCancel(context.Background())
	recDone := make(chan struct{})
	go func() {
		defer close(recDone)
		recorder.Run(recCtx)
	}()

	eng.Every(cfg.AutosaveFrames, func(frame uint64) {
		env, err := snapshot.Capture(hub, frame)
		if err != nil {
			slog.Error("autosave capture failed", "error", err)
			return
		}
		go autosave(db, env, cfg.SnapshotKeep)
	})

	// ── Presets ───────────────────────────────────────────────────────
	var manager *gdata.Manager
	if m, err := gdata.Open(gdata.Config{AppName: cfg.PresetAppName}); err != nil {
		slog.Warn("preset storage unavailable, presets kept in memory", "error", err)
	} else {
		manager = m
	}
	store, err := presets.NewStore(manager)
	if err != nil {
		slog.Warn("failed to load saved presets", "error", err)
	}
	slog.Info("presets loaded", "names", store.Names())

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("WORLDAPI_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Eng:         eng,
		View:        view,
		Events:      events,
		DB:          db,
		Presets:     store,
		Logger:      logger,
		Port:        cfg.Port,
		AdminKey:    cfg.AdminKey,
		RateLimit:   cfg.RateLimit,
		CORSOrigins: cfg.CORSOrigins,
		OnRestore:   binder.bind,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nworldhub: %s\n", engine.FormatGameTime(hub.GameTime(), hub.Latitude()))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	if startFrame > 0 {
		fmt.Printf("Resuming from frame %d\n", startFrame)
	}
	fmt.Println("Starting frame engine... (Ctrl+C to stop)")

	eng.Run(ctx)

	hctx, hcancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := apiServer.Shutdown(hctx); err != nil {
		slog.Warn("HTTP shutdown failed", "error", err)
	}
	hcancel()
	binder.stop()

	// Final save on shutdown. The engine has stopped, so the hub is ours.
	slog.Info("final save...")
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := finalSave(sctx, hub, db, eng.Frame(), cfg.SnapshotFile); err != nil {
		slog.Error("final save failed", "error", err)
	}
	stopRecorder()
	<-recDone

	fmt.Println("Engine stopped. Environment saved.")
}

// loadHub restores the newest snapshot from db, falling back to the
// snapshot file, and otherwise seeds a fresh environment. It returns the
// frame to resume from.
func loadHub(ctx context.Context, hub *environment.Hub, db *persistence.DB, cfg config.Config) (uint64, error) {
	env, err := db.LatestSnapshot(ctx)
	switch {
	case err == nil:
		slog.Info("found saved environment, loading...", "id", env.Header.ID, "saved_at", env.Header.SavedAt)
	case errors.Is(err, persistence.ErrNoSnapshot) && cfg.SnapshotFile != "":
		env, err = snapshot.ReadFile(cfg.SnapshotFile)
		if errors.Is(err, os.ErrNotExist) {
			seedHub(hub, cfg, time.Now().UTC())
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		slog.Info("loading environment from file", "path", cfg.SnapshotFile, "id", env.Header.ID)
	case errors.Is(err, persistence.ErrNoSnapshot):
		seedHub(hub, cfg, time.Now().UTC())
		return 0, nil
	default:
		return 0, err
	}

	if err := snapshot.Restore(hub, env); err != nil {
		return 0, err
	}
	// Restoring marks everything it changed; nobody is listening yet.
	hub.LateTick()
	return env.Header.Frame, nil
}

// seedHub sets up a fresh environment at the configured location.
func seedHub(hub *environment.Hub, cfg config.Config, now time.Time) {
	slog.Info("no saved environment, starting fresh", "latitude", cfg.Latitude, "longitude", cfg.Longitude)
	hub.SetLatitude(cfg.Latitude)
	hub.SetLongitude(cfg.Longitude)
	hub.SetGameTime(now)
	hub.SetTemperature(15)
	hub.SetHumidity(0.6)
	hub.SetClouds(environment.Vec4{X: 0.3, Y: 800, Z: 2500})
	hub.SetFog(environment.Vec4{Y: 40, W: 2000})

	hub.AddExtension(engine.NewClock(cfg.FrameInterval, cfg.TimeScale))
	hub.AddExtension(&engine.Seasons{})
	hub.AddExtension(&engine.Moon{})
	hub.AddExtension(weather.NewGusts(cfg.GustSeed, 3, 225))
	hub.LateTick()
}

// extensionBinder reconnects extensions to process resources after the hub
// is built or restored.
type extensionBinder struct {
	ctx    context.Context
	client *weather.Client
	poll   time.Duration

	stopLive context.CancelFunc
}

func (b *extensionBinder) bind(h *environment.Hub) {
	if clock, ok := environment.Find[*engine.Clock](h); ok {
		clock.OnNewDay = func(t time.Time) {
			slog.Info("new day", "time", engine.FormatGameTime(t, h.Latitude()))
		}
	}

	b.stop()
	if b.client == nil {
		return
	}
	live, ok := environment.Find[*weather.Live](h)
	if !ok {
		live = weather.NewLive(b.client, b.poll)
		h.AddExtension(live)
	}
	live.Bind(b.client)
	ctx, cancel := context.WithCancel(b.ctx)
	b.stopLive = cancel
	live.Start(ctx)
}

func (b *extensionBinder) stop() {
	if b.stopLive != nil {
		b.stopLive()
		b.stopLive = nil
	}
}

func autosave(db *persistence.DB, env snapshot.Envelope, keep int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.SaveSnapshot(ctx, env); err != nil {
		slog.Error("autosave failed", "error", err)
		return
	}
	if err := db.SaveFrame(env.Header.Frame); err != nil {
		slog.Warn("failed to record frame", "error", err)
	}
	pruned, err := db.PruneSnapshots(ctx, keep)
	if err != nil {
		slog.Warn("snapshot prune failed", "error", err)
	}
	slog.Info("autosave", "id", env.Header.ID, "frame", env.Header.Frame, "pruned", pruned)
}

func finalSave(ctx context.Context, hub *environment.Hub, db *persistence.DB, frame uint64, file string) error {
	env, err := snapshot.Capture(hub, frame)
	if err != nil {
		return err
	}
	if err := db.SaveSnapshot(ctx, env); err != nil {
		return err
	}
	if err := db.SaveFrame(frame); err != nil {
		return err
	}
	if file != "" {
		if err := snapshot.WriteFile(file, env); err != nil {
			return fmt.Errorf("write snapshot file: %w", err)
		}
	}
	return nil
}
