// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/archigraph/archigraph/internal/closure"
	"github.com/archigraph/archigraph/internal/config"
	"github.com/archigraph/archigraph/internal/diff"
	"github.com/archigraph/archigraph/internal/graph"
	"github.com/archigraph/archigraph/internal/journal"
	"github.com/archigraph/archigraph/internal/server"
	"github.com/archigraph/archigraph/internal/store"
	_ "github.com/archigraph/archigraph/internal/store/memory" // register memory backend
	_ "github.com/archigraph/archigraph/internal/store/neo4j"  // register neo4j backend
	"github.com/archigraph/archigraph/internal/view"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the archigraph server",
		Long:  "Load configuration, connect the graph store and journal, and start the HTTP server.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	log := newLogger(cfg.Logging, viper.GetBool("verbose"))
	slog.SetDefault(log)

	g, err := store.New(&cfg.Graph)
	if err != nil {
		return agerr.Wrap(err, agerr.CodeCLISetupFailure, "connecting graph store")
	}
	defer func() { _ = g.Close() }()

	jrnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return agerr.Wrap(err, agerr.CodeCLISetupFailure, "opening journal")
	}
	defer func() { _ = jrnl.Close() }()

	svc, err := server.NewServices(
		graph.NewService(g, jrnl, log),
		diff.NewService(g, log),
		view.NewService(g, log),
		closure.NewService(g, log),
		server.GraphSearch{Graph: g},
		jrnl,
		g,
	)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		return err
	}
	srv.RegisterServices(svc)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting archigraph",
		"listen", cfg.Server.Listen,
		"backend", cfg.Graph.Backend,
		"journal", cfg.Journal.Path)

	return srv.Start(ctx)
}

// newLogger builds the process logger from the logging config. The verbose
// flag forces debug level regardless of the configured one.
func newLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
