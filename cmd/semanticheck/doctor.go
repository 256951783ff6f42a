package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"semanticheck/internal/adapter/embedding"
	"semanticheck/internal/adapter/llm"
	"semanticheck/internal/infra/config"
	"semanticheck/internal/usecase"
)

const doctorCheckTimeout = 10 * time.Second

// CheckStatus is the outcome class of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string
}

// Check is a named health check.
type Check struct {
	Name string
	Fn   func(ctx context.Context, cfg *config.Config) CheckResult
}

func doctorCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, models and provider connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), opts.configPath, cmd.OutOrStdout())
		},
	}
}

func runDoctor(ctx context.Context, cfgPath string, w io.Writer) error {
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "LLM API key", Fn: checkLLMAPIKey},
		{Name: "LLM connectivity", Fn: checkLLMConnectivity},
		{Name: "Embedding model", Fn: checkEmbedding},
		{Name: "Prompt templates", Fn: checkPrompts},
		{Name: "Tokenizer", Fn: checkTokenizer},
	}

	fmt.Fprintln(w, "semanticheck doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(ctx, cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  [%s] %s: %s\n", result.Status, result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "         Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func notLoaded() CheckResult {
	return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
}

func checkConfigFile(cfgPath string, cfgErr error) func(context.Context, *config.Config) CheckResult {
	return func(_ context.Context, _ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Fix the reported fields in " + cfgPath,
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("%s not found, using defaults and environment", cfgPath),
			}
		}
		return CheckResult{Status: StatusPass, Message: "config loaded from " + cfgPath}
	}
}

func checkLLMAPIKey(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded()
	}

	var withKey, withoutKey []string
	for _, p := range cfg.LLM.Providers {
		if !requiresAPIKey(p.Type) || p.APIKey != "" {
			withKey = append(withKey, p.Name)
		} else {
			withoutKey = append(withoutKey, p.Name)
		}
	}

	switch {
	case len(withKey) == 0:
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("no credentials for providers: %s; detailed analysis and ai detection are disabled", strings.Join(withoutKey, ", ")),
			Fix:     "Set GEMINI_API_KEY or SEMANTICHECK_LLM_PROVIDER_<NAME>_API_KEY",
		}
	case len(withoutKey) > 0:
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("credentials for [%s]; missing for [%s]", strings.Join(withKey, ", "), strings.Join(withoutKey, ", ")),
		}
	default:
		return CheckResult{
			Status:  StatusPass,
			Message: "credentials configured for: " + strings.Join(withKey, ", "),
		}
	}
}

// checkLLMConnectivity probes the default provider when it is a local
// Ollama server. Hosted providers are only checked for credentials.
func checkLLMConnectivity(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded()
	}
	pc, ok := cfg.FindProvider(cfg.LLM.DefaultProvider)
	if !ok {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("default provider %q not found in config", cfg.LLM.DefaultProvider),
		}
	}
	if pc.Type != "ollama" {
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("skipped for hosted provider %s (%s)", pc.Name, pc.Type),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, doctorCheckTimeout)
	defer cancel()

	p := llm.NewOllamaProvider(pc, slog.New(slog.DiscardHandler))
	if !p.IsHealthy(ctx) {
		return CheckResult{
			Status:  StatusFail,
			Message: "ollama is not reachable",
			Fix:     "Start it with 'ollama serve' or fix base_url",
		}
	}
	models, err := p.ListModels(ctx)
	if err != nil {
		return CheckResult{Status: StatusWarn, Message: fmt.Sprintf("ollama reachable, listing models failed: %v", err)}
	}
	for _, m := range models {
		if m.Name == pc.Model || strings.TrimSuffix(m.Name, ":latest") == pc.Model {
			return CheckResult{Status: StatusPass, Message: fmt.Sprintf("ollama reachable, model %s available", pc.Model)}
		}
	}
	return CheckResult{
		Status:  StatusFail,
		Message: fmt.Sprintf("ollama reachable but model %s is not pulled", pc.Model),
		Fix:     "Run 'ollama pull " + pc.Model + "'",
	}
}

func checkEmbedding(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded()
	}
	ctx, cancel := context.WithTimeout(ctx, doctorCheckTimeout)
	defer cancel()

	p, err := embedding.Load(ctx, cfg.Embedding)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s embedding backend failed: %v", cfg.Embedding.Provider, err),
			Fix:     "Check embedding.provider, embedding.model and embedding.base_url",
		}
	}
	msg := fmt.Sprintf("%s loaded (%d dimensions)", p.Name(), p.Dimensions())
	if pc, ok := embedding.Persistent(p); ok {
		if n, err := pc.Len(ctx); err == nil {
			msg += fmt.Sprintf(", %d cached vectors", n)
		}
		_ = pc.Close()
	}
	return CheckResult{Status: StatusPass, Message: msg}
}

func checkPrompts(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded()
	}
	if _, err := usecase.LoadPrompts(cfg.Prompts); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "Check prompts.dir or clear it to use the built-in templates",
		}
	}
	if cfg.Prompts.Dir == "" {
		return CheckResult{Status: StatusPass, Message: "using built-in templates"}
	}
	return CheckResult{Status: StatusPass, Message: "templates loaded from " + cfg.Prompts.Dir}
}

func checkTokenizer(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded()
	}
	budget := usecase.NewTokenBudget(cfg.Limits.MaxInputTokens, cfg.Limits.TokenizerModel)
	if !budget.Enabled() {
		return CheckResult{Status: StatusPass, Message: "token limit disabled"}
	}
	if _, err := budget.Count("semanticheck"); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("tokenizer for %s unavailable: %v", cfg.Limits.TokenizerModel, err),
			Fix:     "Allow network access on first run or set limits.max_input_tokens to 0",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s tokenizer ready, limit %d tokens", cfg.Limits.TokenizerModel, cfg.Limits.MaxInputTokens),
	}
}
