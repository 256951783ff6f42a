//go:build bedrock

package main

import (
	"log/slog"

	"semanticheck/internal/adapter/llm"
	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
)

func createBedrockProvider(pc config.ProviderConfig, log *slog.Logger) (domain.LLMProvider, error) {
	p, err := llm.NewBedrockProvider(pc, log)
	if err != nil {
		return nil, err
	}
	return p, nil
}
