package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// OpenAIClient implementa LLMClient con chat completions de una API compatible con OpenAI.
type OpenAIClient struct {
	client oai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient construye el cliente. baseURL vacio usa la API publica.
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration, logger *zap.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAIClient{client: oai.NewClient(opts...), model: model, logger: logger}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: convertMessages(messages),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Warn("llm request failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	c.logger.Debug("llm request completed",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
	)
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func convertMessages(messages []Message) []oai.ChatCompletionMessageParamUnion {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	return out
}
