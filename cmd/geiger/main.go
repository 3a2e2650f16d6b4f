package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/obsidianstack/geiger/internal/actuate"
	"github.com/obsidianstack/geiger/internal/alerts"
	"github.com/obsidianstack/geiger/internal/api"
	"github.com/obsidianstack/geiger/internal/auth"
	"github.com/obsidianstack/geiger/internal/config"
	"github.com/obsidianstack/geiger/internal/dispatch"
	"github.com/obsidianstack/geiger/internal/metrics"
	"github.com/obsidianstack/geiger/internal/ratestate"
	"github.com/obsidianstack/geiger/internal/render"
	"github.com/obsidianstack/geiger/internal/security"
	"github.com/obsidianstack/geiger/internal/source"
	"github.com/obsidianstack/geiger/internal/ws"
	"github.com/obsidianstack/geiger/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file; empty uses defaults and GEIGER_* environment")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = alerts.ValidateRules(cfg.Server.Alerts)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "geiger:", err)
		return 1
	}

	logOut, closeLog, err := logWriter(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "geiger:", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.Level()})))

	slog.Info("geiger starting",
		"config", *configPath,
		"pulse_source", cfg.Counter.Pulse.Source,
		"actuator", cfg.Counter.Actuator,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Full-screen display needs a real terminal on both ends.
	stdinFd := int(os.Stdin.Fd())
	useTerminal := cfg.Counter.Terminal && term.IsTerminal(stdinFd) && term.IsTerminal(int(os.Stdout.Fd()))
	if cfg.Counter.Terminal && !useTerminal {
		slog.Warn("terminal display disabled: stdin or stdout is not a terminal")
	}

	act, err := actuate.ForOutput(cfg.Counter.Actuator, os.Stdout, useTerminal)
	if err != nil {
		slog.Error("failed to build actuator", "err", err)
		return 1
	}

	edge, err := source.NewEdge(cfg.Counter.Pulse)
	if err != nil {
		slog.Error("failed to build pulse source", "err", err)
		return 1
	}

	guard := ratestate.NewGuard()
	queue := source.NewQueue(source.QueueCapacity)
	pulses := source.NewPulseSource(queue, edge, act)
	ticks := source.NewTickSource(queue, source.NewTimer(), act)
	input := source.NewInputSource(queue)

	fb := render.NewFramebuffer()
	surfaces := []render.Surface{fb}
	var screen *render.Terminal
	if useTerminal {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			slog.Error("failed to enter raw mode", "err", err)
			return 1
		}
		screen = render.NewTerminal(os.Stdout)
		surfaces = append(surfaces, screen)
		defer func() {
			screen.Restore()                //nolint:errcheck
			term.Restore(stdinFd, oldState) //nolint:errcheck
		}()
	}
	renderer := render.New(guard, surfaces...)

	mets := metrics.New(queue)
	alertEngine := alerts.New(cfg.Server.Alerts)
	hub := ws.New(guard)

	disp := dispatch.New(guard, queue, renderer.Request,
		dispatch.WithEventHook(mets.ObserveEvent),
		dispatch.WithTickObserver(mets.ObserveTick),
		dispatch.WithTickObserver(func(snap ratestate.Snapshot) {
			alertEngine.Evaluate(snap.Reading(types.FormatTime(time.Now())))
		}),
		dispatch.WithTickObserver(hub.Publish),
		dispatch.WithResetObserver(mets.ObserveReset),
		dispatch.WithResetObserver(hub.Publish),
		dispatch.WithTeardown(pulses, ticks, input, dispatch.StopFunc(act.Off)),
	)

	// Alert rules follow the config file; everything else needs a restart.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				if err := alerts.ValidateRules(updated.Server.Alerts); err != nil {
					slog.Error("config reload rejected, keeping current alert rules", "err", err)
					return
				}
				alertEngine.SetRules(updated.Server.Alerts)
				slog.Info("config hot-reloaded", "alert_rules", len(updated.Server.Alerts.Rules))
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	var httpSrv *http.Server
	if cfg.Server.HTTPPort > 0 {
		go hub.Run(bgCtx)

		requireKey := auth.APIKeyMiddleware(cfg.Server.Auth.Mode, cfg.Server.Auth.Header, cfg.Server.Auth.Key())
		if cfg.Server.Auth.Mode == "apikey" && cfg.Server.Auth.Key() == "" {
			slog.Warn("server auth mode is apikey but no key is set; API is open", "key_env", cfg.Server.Auth.KeyEnv)
		}

		mux := http.NewServeMux()
		mux.Handle("/api/", requireKey(api.New(api.Deps{
			Guard:  guard,
			Input:  input,
			Screen: fb,
			Alerts: alertEngine,
			Queue:  queue,
			State:  func() string { return disp.Phase().String() },
		})))
		mux.Handle("/ws/stream", requireKey(hub))
		mux.Handle("/metrics", mets.Handler())

		httpSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server stopped", "err", err)
			}
		}()
	}

	go renderer.Run(bgCtx) //nolint:errcheck
	renderer.Request()

	if cfg.Counter.Pulse.Source == "prometheus" {
		go security.Report(bgCtx, cfg.Counter.Pulse)
	}

	act.Drive(actuate.StartupIntensity, actuate.ClickDuration)
	if err := pulses.Start(); err != nil {
		slog.Error("failed to start pulse source", "err", err)
		return 1
	}
	if err := ticks.Start(); err != nil {
		pulses.Stop()
		slog.Error("failed to start tick source", "err", err)
		return 1
	}

	if useTerminal {
		go func() {
			if err := source.NewKeyboard(os.Stdin, input).Run(bgCtx); err != nil {
				slog.Warn("keyboard input stopped", "err", err)
			}
		}()
	}

	if err := disp.Run(ctx); err != nil {
		slog.Error("dispatcher failed", "err", err)
	}

	slog.Info("geiger shutting down")
	stopBackground()
	if httpSrv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		httpSrv.Shutdown(sctx) //nolint:errcheck
		scancel()
	}
	alertEngine.Wait()
	return 0
}

// logWriter opens the log destination. Logs go to stderr unless a file is
// configured, keeping stdout free for the display.
func logWriter(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
