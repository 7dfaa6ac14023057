package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	ignite "github.com/kemurphy3/ignite-fitness-sub001"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analytics HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, cfg ignite.Config) error {
	sl, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	logger := ignite.NewSlogLogger(sl)

	store, err := ignite.OpenSQLStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	backend, err := ignite.OpenReportBackend(cfg.Storage)
	if err != nil {
		return err
	}
	archive := ignite.NewReportArchive(backend, store, logger)
	defer archive.Close()

	hub := ignite.NewStreamHub(cfg.HTTP.Stream, logger)
	analyzer := ignite.NewAnalyzer(cfg, ignite.WithLogger(logger))
	server := ignite.NewServer(cfg, analyzer, store, archive, hub, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})
	g.Go(func() error {
		return pruneLoop(ctx, archive, cfg.Storage.ReportRetention, logger)
	})
	return g.Wait()
}

// pruneLoop drops expired reports hourly until ctx is done.
func pruneLoop(ctx context.Context, archive *ignite.ReportArchive, retention time.Duration, logger ignite.Logger) error {
	if retention <= 0 {
		return nil
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if _, err := archive.Prune(ctx, time.Now(), retention); err != nil {
			logger.Warn("report pruning failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
