// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
timingdemo serves a single page whose response carries a Server-Timing header
assembled with the servertiming package. Point a browser's network inspector
at it to see the timings.

	go run ./cmd/timingdemo -config config.yaml
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/pixivfe/servertiming"
	"codeberg.org/pixivfe/servertiming/middleware"
)

const (
	// Values for http.Server timeouts.
	// ref: gosec: G112
	readHeaderTimeout time.Duration = 15 * time.Second
	readTimeout       time.Duration = 15 * time.Second
	writeTimeout      time.Duration = 10 * time.Second
	idleTimeout       time.Duration = 30 * time.Second

	serverShutdownDeadline time.Duration = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Demo server failed")
	}
}

// run orchestrates startup and graceful shutdown.
func run() error {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.setupLogging()

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleIndex)

	server := &http.Server{
		Handler: middleware.WithServerTiming(
			mux,
			servertiming.WithPrecision(cfg.Precision),
		),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		addr := net.JoinHostPort(cfg.Host, cfg.Port)

		listener, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", addr)
		if err != nil {
			serverErrors <- fmt.Errorf("failed to start TCP listener on %v: %w", addr, err)

			return
		}

		log.Info().
			Str("address", listener.Addr().String()).
			Msg("Listening on address")

		serverErrors <- server.Serve(listener)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case s := <-quit:
		log.Info().Str("signal", s.String()).Msg("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), serverShutdownDeadline)

		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
	}

	log.Info().Msg("Server exited gracefully")

	return nil
}

// handleIndex simulates a cache miss followed by a database query and page
// render, recording each phase on the request's timing ledger.
func handleIndex(w http.ResponseWriter, r *http.Request) {
	timing := middleware.FromRequest(r)

	if err := timing.Add("miss", servertiming.WithDescription("Cache Miss")); err != nil {
		log.Err(err).Msg("Failed to record cache metric")
	}

	err := timing.Track("db", func() error {
		sleep(20 * time.Millisecond)

		return nil
	}, servertiming.WithDescription("Database Query"))
	if err != nil {
		log.Err(err).Msg("Database phase failed")
	}

	// render phases grouped into one fragment
	group, err := timing.Group()
	if err != nil {
		log.Err(err).Msg("Failed to create timing group")
	} else {
		_ = group.Track("tmpl", func() error {
			sleep(5 * time.Millisecond)

			return nil
		})
		_ = group.Add("app", servertiming.WithDuration(47200*time.Microsecond))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "check the Server-Timing response header")

	log.Debug().Str("server_timing", timing.String()).Msg("Request timed")
}

// sleep waits for roughly d, with jitter so repeated requests show moving
// numbers in the inspector.
func sleep(d time.Duration) {
	time.Sleep(d + rand.N(d/2)) // #nosec G404 -- cosmetic jitter only
}
