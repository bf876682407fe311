package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
	"github.com/kvsharma13/Invoice-extractor/internal/observability"
)

const (
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 1000
)

// Config configures the completion client.
type Config struct {
	APIKey    string
	BaseURL   string // empty means the OpenAI default
	Model     string
	MaxTokens int

	HTTPClient *http.Client
}

// Client sends vision prompts to an OpenAI-compatible chat completion API
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	logger    *observability.Logger
}

var _ domain.Completer = (*Client)(nil)

// NewClient creates a new LLM client
func NewClient(cfg Config, logger *observability.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ConfigError("completion API key is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if logger == nil {
		logger = observability.Nop()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		apiCfg.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		api:       openai.NewClientWithConfig(apiCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.WithComponent("llm"),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends one prompt with one image and returns the first choice's text.
// There are no retries; any failure is reported as a service error.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", domain.ServiceError(fmt.Sprintf("completion API returned status %d", apiErr.HTTPStatusCode), err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", domain.ServiceError(fmt.Sprintf("completion API returned status %d", reqErr.HTTPStatusCode), err)
		}
		return "", domain.ServiceError("completion request failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.ServiceError("completion returned no choices", nil)
	}

	c.logger.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("Completion received")

	return resp.Choices[0].Message.Content, nil
}

// buildRequest constructs the chat request with the text prompt followed by the image
func (c *Client) buildRequest(req domain.CompletionRequest) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: req.Prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: req.ImageURL,
						},
					},
				},
			},
		},
	}
}
