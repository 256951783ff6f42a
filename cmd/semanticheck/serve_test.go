package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/adapter/embedding"
	"semanticheck/internal/domain"
	"semanticheck/internal/infra/audit"
	"semanticheck/internal/infra/config"
	"semanticheck/internal/infra/scheduler"
)

func taskNames(tasks []scheduler.Task) []string {
	names := make([]string, len(tasks))
	for i, task := range tasks {
		names[i] = task.Name
	}
	return names
}

func TestMaintenanceTasksNoneConfigured(t *testing.T) {
	cfg := config.Defaults()
	a := &app{cfg: cfg, log: testLogger()}

	local, err := embedding.NewLocalProvider(8)
	require.NoError(t, err)
	assert.Empty(t, a.maintenanceTasks(local))
}

func TestMaintenanceTasksAuditAndCache(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Audit.Enabled = true
	cfg.Audit.Path = filepath.Join(dir, "audit.jsonl")
	cfg.Embedding.Persist.Path = filepath.Join(dir, "cache.db")

	auditLog, err := audit.NewFileLogger(cfg.Audit.Path)
	require.NoError(t, err)
	t.Cleanup(func() { auditLog.Close() })
	auditLog.SetRetention(audit.RetentionPolicy{MaxAge: time.Hour})

	cfg.Embedding.Provider = "local"
	cfg.Embedding.Dimensions = 8
	provider, err := embedding.New(cfg.Embedding)
	require.NoError(t, err)
	h := embedding.StaticHandle(provider)
	t.Cleanup(func() { h.Close() })

	a := &app{cfg: cfg, log: testLogger(), audit: auditLog}
	tasks := a.maintenanceTasks(provider)
	assert.Equal(t, []string{"audit_retention", "embedding_cache_prune"}, taskNames(tasks))

	ctx := context.Background()
	require.NoError(t, auditLog.Log(ctx, domain.AuditEvent{Operation: domain.AuditAIDetect, Outcome: domain.AuditOutcomeOK}))
	_, err = provider.Embed(ctx, []string{"cached"})
	require.NoError(t, err)
	for _, task := range tasks {
		assert.NoError(t, task.Run(ctx), task.Name)
	}
}

func TestMaintenanceTasksCacheKeptForever(t *testing.T) {
	cfg := config.Defaults()
	cfg.Embedding.Provider = "local"
	cfg.Embedding.Dimensions = 8
	cfg.Embedding.Persist.Path = filepath.Join(t.TempDir(), "cache.db")
	cfg.Embedding.Persist.MaxAge = 0

	provider, err := embedding.New(cfg.Embedding)
	require.NoError(t, err)
	h := embedding.StaticHandle(provider)
	t.Cleanup(func() { h.Close() })

	a := &app{cfg: cfg, log: testLogger()}
	assert.Empty(t, a.maintenanceTasks(provider))
}
