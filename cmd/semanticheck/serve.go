package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"semanticheck/internal/adapter/embedding"
	"semanticheck/internal/adapter/gateway"
	"semanticheck/internal/domain"
	"semanticheck/internal/infra/scheduler"
)

func serveCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, web UI and WebSocket gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{metrics: true})
	if err != nil {
		return err
	}
	defer a.Close()

	// The model is loaded before the listener opens so a broken
	// embedding backend stops the process instead of failing requests.
	provider, err := a.embeddings.Get()
	if err != nil {
		return fmt.Errorf("load embedding model: %w", err)
	}
	a.log.Info("embedding model loaded", "provider", provider.Name(), "dimensions", provider.Dimensions())

	if !a.analyzer.RemoteConfigured() {
		a.log.Warn("no llm provider configured, detailed analysis and ai detection will report a missing key")
	}

	sched := scheduler.New(a.log)
	for _, task := range a.maintenanceTasks(provider) {
		if err := sched.Add(task); err != nil {
			return err
		}
	}
	sched.Start(ctx)
	defer sched.Stop()

	a.log.Info("semanticheck starting", "version", version, "addr", cfg.Server.Addr)
	srv := gateway.NewServer(cfg, a.analyzer, a.metrics, a.log)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	a.log.Info("semanticheck stopped")
	return nil
}

// maintenanceTasks returns the background jobs for the configured audit
// trail and on-disk embedding cache.
func (a *app) maintenanceTasks(provider domain.EmbeddingProvider) []scheduler.Task {
	var tasks []scheduler.Task
	if a.audit != nil && (a.cfg.Audit.MaxAge > 0 || a.cfg.Audit.MaxSize != "") {
		tasks = append(tasks, scheduler.Task{
			Name:     "audit_retention",
			Schedule: a.cfg.Audit.RetentionSchedule,
			Run: func(ctx context.Context) error {
				removed, err := a.audit.EnforceRetention(ctx)
				if removed > 0 {
					a.log.Info("audit retention applied", "removed", removed)
				}
				return err
			},
		})
	}
	if pc, ok := embedding.Persistent(provider); ok && a.cfg.Embedding.Persist.MaxAge > 0 {
		maxAge := a.cfg.Embedding.Persist.MaxAge
		tasks = append(tasks, scheduler.Task{
			Name:     "embedding_cache_prune",
			Schedule: a.cfg.Embedding.Persist.PruneSchedule,
			Run: func(ctx context.Context) error {
				removed, err := pc.Prune(ctx, maxAge)
				if removed > 0 {
					a.log.Info("embedding cache pruned", "removed", removed)
				}
				return err
			},
		})
	}
	return tasks
}
