// Command hexmap serves an editable hex map with path search over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/hexmap/internal/api"
	"github.com/talgya/hexmap/internal/config"
	"github.com/talgya/hexmap/internal/editor"
	"github.com/talgya/hexmap/internal/engine"
	"github.com/talgya/hexmap/internal/persistence"
)

const autosaveName = "autosave"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	fresh := flag.Bool("fresh", false, "ignore the autosaved map")
	debug := flag.Bool("debug", false, "log search timings")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// ── Config ────────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", *configPath)
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.Storage.DBPath); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.Storage.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.DBPath)

	// ── Map ───────────────────────────────────────────────────────────
	sess, err := editor.NewSession(cfg.Map.Width, cfg.Map.Height, cfg.Search.DefaultSpeed)
	if err != nil {
		slog.Error("failed to create map", "error", err)
		os.Exit(1)
	}

	resumed := false
	if !*fresh {
		info, err := sess.LoadFrom(db, autosaveName)
		switch {
		case err == nil:
			resumed = true
			slog.Info("resumed autosaved map",
				"width", info.Width,
				"height", info.Height,
				"units", info.Units,
				"saved_at", info.SavedAt,
			)
		case errors.Is(err, persistence.ErrMapNotFound):
		default:
			slog.Warn("autosaved map unreadable, starting fresh", "error", err)
		}
	}
	if !resumed && cfg.Map.Generate {
		sess.Generate(cfg.GenConfig())
	}

	var startTick uint64
	if resumed {
		if s, err := db.GetMeta("last_tick"); err == nil {
			if t, err := strconv.ParseUint(s, 10, 64); err == nil {
				startTick = t
			}
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(sess)
	eng.Interval = time.Duration(cfg.Engine.TickMS) * time.Millisecond
	eng.AutosaveEvery = uint64(cfg.Storage.AutosaveTicks)
	eng.Resume(startTick)

	save := func(tick uint64) {
		if _, err := sess.SaveTo(db, autosaveName); err != nil {
			slog.Error("autosave failed", "tick", tick, "error", err)
			return
		}
		if err := db.SaveMeta("last_tick", strconv.FormatUint(tick, 10)); err != nil {
			slog.Error("failed to record tick", "error", err)
		}
	}
	eng.OnAutosave = save

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("HEXMAP_ADMIN_KEY")
	if adminKey == "" {
		if cfg.Server.OpenAdmin {
			slog.Warn("HEXMAP_ADMIN_KEY not set, editing endpoints are open (open_admin)")
		} else {
			slog.Warn("HEXMAP_ADMIN_KEY not set, editing endpoints will be disabled")
		}
	}

	apiServer := &api.Server{
		Session:     sess,
		Eng:         eng,
		DB:          db,
		Gen:         cfg.GenConfig(),
		Port:        cfg.Server.Port,
		AdminKey:    adminKey,
		OpenAdmin:   cfg.Server.OpenAdmin,
		CORSOrigins: cfg.Server.CORSOrigins,
		ExportDir:   cfg.Storage.ExportDir,
		PathLimit:   cfg.Search.RateLimitPerMinute,
	}
	httpServer := apiServer.Start()
	eng.OnTick = func(uint64, bool) { apiServer.Publish() }

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	st := sess.Status()
	fmt.Printf("\nHex map ready: %dx%d cells in %d chunks, %d units.\n",
		st.Width, st.Height, st.Chunks, st.Units)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Server.Port)
	if resumed && startTick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", startTick, engine.Uptime(startTick, eng.Interval))
	}
	fmt.Println("Serving... (Ctrl+C to stop)")

	eng.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	save(eng.CurrentTick())

	fmt.Println("Server stopped. Map saved.")
}
