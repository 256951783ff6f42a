package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"semanticheck/internal/adapter/embedding"
	"semanticheck/internal/adapter/extract"
	"semanticheck/internal/domain"
	"semanticheck/internal/infra/audit"
	"semanticheck/internal/infra/config"
	"semanticheck/internal/infra/logger"
	"semanticheck/internal/infra/metrics"
	"semanticheck/internal/infra/tracer"
	"semanticheck/internal/usecase"
)

const tracerShutdownTimeout = 5 * time.Second

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	metrics    *metrics.Metrics
	llm        *LLMComponents
	embeddings *embedding.Handle
	analyzer   *usecase.Analyzer
	audit      *audit.FileLogger

	logCloser      func() error
	shutdownTracer func(context.Context) error
}

// appOptions selects the optional parts of the graph.
type appOptions struct {
	metrics bool
}

// newApp builds logger, tracer, metrics, LLM providers and the analyzer from
// cfg. The embedding model is loaded lazily on first use; callers that want
// startup to fail on a bad model call a.embeddings.Get themselves.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, log: log, logCloser: logCloser}

	a.shutdownTracer, err = tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	if opts.metrics && cfg.Metrics.Enabled {
		a.metrics, err = metrics.New(metrics.NewRegistry())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	}

	a.llm, err = initLLM(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.embeddings = embedding.NewHandle(func() (domain.EmbeddingProvider, error) {
		return embedding.Load(ctx, cfg.Embedding)
	})

	a.analyzer, err = buildAnalyzer(cfg, a.llm.DefaultLLM, a.embeddings, log, a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Audit.Enabled {
		a.audit, err = openAudit(cfg.Audit)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.analyzer.Audit = a.audit
		log.Info("audit trail enabled", "path", cfg.Audit.Path)
	}
	return a, nil
}

func openAudit(cfg config.AuditConfig) (*audit.FileLogger, error) {
	maxSize, err := config.ParseByteSize(cfg.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("audit max size: %w", err)
	}
	l, err := audit.NewFileLogger(cfg.Path)
	if err != nil {
		return nil, err
	}
	l.SetRetention(audit.RetentionPolicy{MaxAge: cfg.MaxAge, MaxSize: maxSize})
	return l, nil
}

// buildAnalyzer wires the use cases behind the analyzer facade.
func buildAnalyzer(cfg *config.Config, provider domain.LLMProvider, embeddings usecase.EmbeddingSource, log *slog.Logger, m *metrics.Metrics) (*usecase.Analyzer, error) {
	prompts, err := usecase.LoadPrompts(cfg.Prompts)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	budget := usecase.NewTokenBudget(cfg.Limits.MaxInputTokens, cfg.Limits.TokenizerModel)

	detector, err := usecase.NewAIDetector(provider, prompts, budget, log, m)
	if err != nil {
		return nil, fmt.Errorf("init ai detector: %w", err)
	}

	return &usecase.Analyzer{
		Similarity: usecase.NewSimilarityService(embeddings, log, m),
		Detector:   detector,
		Comparator: usecase.NewComparator(provider, prompts, budget, log, m),
		Extractor:  extract.New(cfg.Server.MaxUploadBytes),
		Logger:     log,
	}, nil
}

// Close flushes traces and closes the audit, embedding cache and log outputs.
func (a *app) Close() {
	if a.embeddings != nil {
		if err := a.embeddings.Close(); err != nil {
			a.log.Warn("embedding cache close failed", "error", err)
		}
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.log.Warn("audit close failed", "error", err)
		}
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		if err := a.shutdownTracer(ctx); err != nil {
			a.log.Warn("tracer shutdown failed", "error", err)
		}
		cancel()
	}
	if a.logCloser != nil {
		_ = a.logCloser()
	}
}

// loadConfig wraps config.Load with the path in the error.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
