// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Command ringlink-signal runs the signaling hub that relays handshake
// envelopes between nodes. The hub holds no secrets: envelopes are
// signed end to end, so it can only delay or drop, never forge.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ringlink-foundation/ringlink/signaling"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ringlink-signal:", err)
		os.Exit(1)
	}
}

func run() error {
	listen := flag.String("listen", ":8480", "address to listen on")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", signaling.NewHub(logger))

	server := &http.Server{
		Addr:    *listen,
		Handler: mux,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("signaling hub listening", "address", *listen)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
