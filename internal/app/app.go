// Package app wires the session host: logging router, telemetry, the
// arena world, the hub and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"iron-and-ash/sim/internal/arena"
	"iron-and-ash/sim/internal/hub"
	"iron-and-ash/sim/internal/lockstep"
	"iron-and-ash/sim/internal/net/ws"
	"iron-and-ash/sim/internal/replay"
	"iron-and-ash/sim/internal/telemetry"
	"iron-and-ash/sim/logging"
	loggingSinks "iron-and-ash/sim/logging/sinks"
)

// Config carries the host-level knobs. Environment variables override the
// zero values in Run.
type Config struct {
	Addr       string
	Logger     telemetry.Logger
	Hub        hub.Config
	ReplayPath string
}

// DefaultConfig listens on :8080 with the default hub settings.
func DefaultConfig() Config {
	return Config{
		Addr: ":8080",
		Hub:  hub.DefaultConfig(),
	}
}

// Run wires and serves the session host until the context ends.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	applyEnvOverrides(&cfg, telemetryLogger)

	logConfig := logging.DefaultConfig()
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	}
	if path := os.Getenv("EVENT_LOG_PATH"); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer file.Close()
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	counters := telemetry.NewCounters()
	worldCfg := arena.DefaultConfig()
	worldCfg.PlayerCount = cfg.Hub.Lockstep.PlayerCount
	worldCfg.Seed = cfg.Hub.Seed
	world, err := arena.NewWorld(worldCfg)
	if err != nil {
		return err
	}

	sessionHub, err := hub.NewHub(cfg.Hub, world, lockstep.Deps{
		Logger:    telemetryLogger,
		Metrics:   counters,
		Publisher: router,
		Clock:     logging.SystemClock{},
	})
	if err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hubDone := make(chan error, 1)
	go func() {
		hubDone <- sessionHub.Run(hubCtx)
	}()

	wsHandler := ws.NewHandler(sessionHub, ws.HandlerConfig{Logger: telemetryLogger, Publisher: router})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.Handle)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		for _, sample := range counters.Snapshot() {
			fmt.Fprintf(w, "%s %d\n", sample.Key, sample.Value)
		}
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.ListenAndServe()
	}()
	telemetryLogger.Printf("session host listening on %s", cfg.Addr)

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case err := <-hubDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("hub failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetryLogger.Printf("server shutdown: %v", err)
	}
	stopHub()

	if cfg.ReplayPath != "" {
		if doc := sessionHub.ReplayDocument(); doc != nil {
			if err := replay.WriteFile(cfg.ReplayPath, doc); err != nil {
				telemetryLogger.Printf("failed to write replay: %v", err)
			} else {
				telemetryLogger.Printf("replay written to %s", cfg.ReplayPath)
			}
		}
	}
	return nil
}

// applyEnvOverrides folds recognized environment variables into the
// config, logging and skipping values that do not parse.
func applyEnvOverrides(cfg *Config, logger telemetry.Logger) {
	if raw := os.Getenv("LISTEN_ADDR"); raw != "" {
		cfg.Addr = raw
	}
	if raw := os.Getenv("TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Hub.Lockstep.TickRate = value
		} else {
			logger.Printf("invalid TICK_RATE=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("PLAYER_COUNT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Hub.Lockstep.PlayerCount = value
		} else {
			logger.Printf("invalid PLAYER_COUNT=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("SNAPSHOT_INTERVAL"); raw != "" {
		if value, err := strconv.ParseUint(raw, 10, 64); err == nil && value > 0 {
			cfg.Hub.Lockstep.SnapshotInterval = value
		} else {
			logger.Printf("invalid SNAPSHOT_INTERVAL=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("MAX_ROLLBACK_FRAMES"); raw != "" {
		if value, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cfg.Hub.Lockstep.MaxRollbackFrames = value
		} else {
			logger.Printf("invalid MAX_ROLLBACK_FRAMES=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("SIMULATED_DELAY_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.Hub.SimulatedDelay = time.Duration(value) * time.Millisecond
		} else {
			logger.Printf("invalid SIMULATED_DELAY_MS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("DELAY_JITTER_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.Hub.DelayJitter = time.Duration(value) * time.Millisecond
		} else {
			logger.Printf("invalid DELAY_JITTER_MS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("SIM_SEED"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.Hub.Seed = value
		} else {
			logger.Printf("invalid SIM_SEED=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("REPLAY_OUT"); raw != "" {
		cfg.ReplayPath = raw
	}
}
