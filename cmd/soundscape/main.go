// Command soundscape drives one node (master or fallback slave) of a
// multi-channel, spatialized, generative audio installation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samgwise/555nm-soundscape/internal/config"
	"github.com/samgwise/555nm-soundscape/internal/control"
	"github.com/samgwise/555nm-soundscape/internal/dashboard"
	"github.com/samgwise/555nm-soundscape/internal/engine"
	"github.com/samgwise/555nm-soundscape/internal/health"
	"github.com/samgwise/555nm-soundscape/internal/observe"
	"github.com/samgwise/555nm-soundscape/pkg/audio"
	"github.com/samgwise/555nm-soundscape/pkg/audio/opus"
)

// engineStaleAfter bounds how long the event loop may run without
// publishing a snapshot before /readyz reports unhealthy.
const engineStaleAfter = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "soundscape-config.yml", "path to the soundscape YAML configuration")
	opsAddr := flag.String("ops-addr", ":8090", "address for /healthz, /readyz, /metrics, and /dashboard")
	flag.Parse()
	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "usage: soundscape [-config path] [-ops-addr addr] [config-path]")
		return 1
	}
	if flag.NArg() == 1 {
		*configPath = flag.Arg(0)
	}

	logger := newLogger()
	slog.SetDefault(logger)

	// ── Load and validate configuration ────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "soundscape: %v\n", err)
		return 1
	}

	// ── Pre-flight: every scene and every resource it names must exist
	// before the event loop starts (spec.md §7's ConfigLoad/SceneOpen
	// fatal policy) ──────────────────────────────────────────────────────
	scenes := make([]*config.Scene, len(cfg.Scenes))
	for i, path := range cfg.Scenes {
		scene, err := config.CheckSceneFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "soundscape: scene %q: %v\n", path, err)
			return 1
		}
		scenes[i] = scene
	}

	var backgroundScene *config.Scene
	if cfg.BackgroundScene != "" {
		backgroundScene, err = config.CheckSceneFile(cfg.BackgroundScene)
		if err != nil {
			fmt.Fprintf(os.Stderr, "soundscape: background scene %q: %v\n", cfg.BackgroundScene, err)
			return 1
		}
	}

	printStartupSummary(cfg, scenes, *configPath)

	// ── Control-plane transport: control.Listen binds the receive socket to
	// listen_addr and the send socket to listen_addr's host on port+1
	// (spec.md §6) ───────────────────────────────────────────────────────
	listenAddr := net.JoinHostPort(cfg.ListenAddr.Host, strconv.FormatUint(uint64(cfg.ListenAddr.Port), 10))
	subscribers := make([]string, len(cfg.Subscribers))
	for i, s := range cfg.Subscribers {
		subscribers[i] = net.JoinHostPort(s.Host, strconv.FormatUint(uint64(s.Port), 10))
	}
	transport, err := control.Listen(listenAddr, subscribers, logger)
	if err != nil {
		slog.Error("failed to open control-plane transport", "error", err)
		return 1
	}
	defer transport.Close()

	// ── Audio backend ────────────────────────────────────────────────────
	speakers := make([]audio.Position, len(cfg.SpeakerPositions.Positions))
	for i, p := range cfg.SpeakerPositions.Positions {
		speakers[i] = audio.Position(p)
	}
	backend := opus.New(os.Stdout, speakers, logger)
	device, err := backend.OpenDevice()
	if err != nil {
		slog.Error("failed to open audio output device", "error", err)
		return 1
	}

	eng, err := engine.New(cfg, scenes, backgroundScene, backend, device, transport, logger)
	if err != nil {
		slog.Error("failed to construct engine", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability: metrics, tracing, health, and the operator
	// dashboard all run alongside the engine but never block it ─────────
	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: "dev"})
	if err != nil {
		slog.Error("failed to init observability provider", "error", err)
		return 1
	}
	defer func() {
		if err := shutdownObserve(context.Background()); err != nil {
			slog.Warn("observability shutdown failed", "error", err)
		}
	}()

	board := dashboard.New(dashboard.Config{Source: eng, Logger: logger})
	board.Start(ctx)
	defer board.Stop()

	healthHandler := health.New(
		health.EngineLivenessChecker("engine", func() time.Time { return eng.Snapshot().TakenAt }, engineStaleAfter),
	)

	mux := http.NewServeMux()
	healthHandler.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /dashboard", board.Handler)

	opsServer := &http.Server{Addr: *opsAddr, Handler: mux}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops HTTP server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("soundscape running", "ops_addr", *opsAddr)
	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "error", err)
		return 1
	}

	slog.Info("soundscape stopped")
	return 0
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func printStartupSummary(cfg *config.Soundscape, scenes []*config.Scene, configPath string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        soundscape — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  config           : %-18s ║\n", truncate(configPath, 18))
	fmt.Printf("║  scenes loaded    : %-18d ║\n", len(scenes))
	fmt.Printf("║  metro_step_ms    : %-18d ║\n", cfg.MetroStepMs)
	fmt.Printf("║  speakers         : %-18d ║\n", len(cfg.SpeakerPositions.Positions))
	fmt.Printf("║  subscribers      : %-18d ║\n", len(cfg.Subscribers))
	role := "master"
	if cfg.IsFallbackSlaveOr(false) {
		role = "fallback slave"
	}
	fmt.Printf("║  role             : %-18s ║\n", role)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
