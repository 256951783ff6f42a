//go:build bedrock

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/config"
	"semanticheck/internal/infra/tracer"
)

// bedrockConverseAPI abstracts the Bedrock runtime client for tests.
type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider implements domain.LLMProvider via the AWS Bedrock Converse API.
type BedrockProvider struct {
	name        string
	model       string
	temperature float64
	client      bedrockConverseAPI
	logger      *slog.Logger
}

// NewBedrockProvider creates a Bedrock provider using the default AWS credential chain.
func NewBedrockProvider(cfg config.ProviderConfig, logger *slog.Logger) (*BedrockProvider, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", domain.ErrCredentialMissing, err)
	}

	return &BedrockProvider{
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      bedrockruntime.NewFromConfig(awsCfg),
		logger:      logger,
	}, nil
}

func newBedrockProviderWithClient(name, model string, client bedrockConverseAPI, logger *slog.Logger) *BedrockProvider {
	return &BedrockProvider{name: name, model: model, client: client, logger: logger}
}

// Chat implements domain.LLMProvider.
func (p *BedrockProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	if req.Temperature == 0 {
		req.Temperature = p.temperature
	}

	ctx, span := startChatSpan(ctx, p.name, req.Model)
	defer span.End()

	output, err := p.client.Converse(ctx, toBedrockConverseInput(req))
	if err != nil {
		mapped := mapBedrockError(err)
		tracer.RecordError(span, mapped)
		return nil, mapped
	}

	result := fromBedrockConverseOutput(output, req.Model)
	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, p.name, result)

	return result, nil
}

// Name implements domain.LLMProvider.
func (p *BedrockProvider) Name() string { return p.name }

func toBedrockConverseInput(req domain.ChatRequest) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	input.InferenceConfig = &types.InferenceConfiguration{
		MaxTokens: aws.Int32(int32(maxTokens)),
	}
	if req.Temperature > 0 {
		input.InferenceConfig.Temperature = aws.Float32(float32(req.Temperature))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			input.System = []types.SystemContentBlock{
				&types.SystemContentBlockMemberText{Value: m.Content},
			}
		case domain.RoleUser, domain.RoleAssistant:
			role := types.ConversationRoleUser
			if m.Role == domain.RoleAssistant {
				role = types.ConversationRoleAssistant
			}
			input.Messages = append(input.Messages, types.Message{
				Role:    role,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		}
	}

	return input
}

func fromBedrockConverseOutput(output *bedrockruntime.ConverseOutput, model string) *domain.ChatResponse {
	now := time.Now()
	result := &domain.ChatResponse{Model: model, CreatedAt: now}

	if output.Usage != nil {
		in := int(aws.ToInt32(output.Usage.InputTokens))
		out := int(aws.ToInt32(output.Usage.OutputTokens))
		result.Usage = domain.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}
	}

	var sb strings.Builder
	if outMsg, ok := output.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range outMsg.Value.Content {
			if b, ok := block.(*types.ContentBlockMemberText); ok {
				sb.WriteString(b.Value)
			}
		}
	}
	result.Message = domain.Message{Role: domain.RoleAssistant, Content: sb.String(), Timestamp: now}
	return result
}

func mapBedrockError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case code == "ThrottlingException" || code == "TooManyRequestsException":
			return fmt.Errorf("%w: %s", domain.ErrRateLimit, msg)
		case code == "AccessDeniedException" || code == "UnrecognizedClientException":
			return fmt.Errorf("%w: %s", domain.ErrAuthInvalid, msg)
		case code == "ValidationException" && strings.Contains(msg, "too long"):
			return fmt.Errorf("%w: %s", domain.ErrContextOverflow, msg)
		case code == "ValidationException":
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrProviderError, msg)
}
