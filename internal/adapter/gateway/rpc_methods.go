package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"semanticheck/internal/domain"
	"semanticheck/internal/usecase"
)

// RPC method names served over /ws.
const (
	MethodSimilarityLocal    = "similarity.local"
	MethodSimilarityDetailed = "similarity.detailed"
	MethodAIDetect           = "ai.detect"
)

// RegisterAnalyzerMethods exposes the analyzer operations on hub.
func RegisterAnalyzerMethods(hub *Hub, a *usecase.Analyzer) {
	hub.RegisterHandler(MethodSimilarityLocal, func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req textPairRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		res, err := a.Local(ctx, req.TextA, req.TextB)
		if err != nil {
			return nil, err
		}
		return json.Marshal(newLocalResponse(res))
	})

	hub.RegisterHandler(MethodSimilarityDetailed, func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req textPairRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		res, err := a.Detailed(ctx, req.TextA, req.TextB)
		if err != nil {
			return nil, err
		}
		return json.Marshal(newDetailedResponse(res))
	})

	hub.RegisterHandler(MethodAIDetect, func(ctx context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req singleTextRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		res, err := a.DetectAI(ctx, req.Text)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	})
}

func decodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", domain.ErrRPCInvalidPayload)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRPCInvalidPayload, err)
	}
	return nil
}
