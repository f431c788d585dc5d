package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAI uses the Chat Completions API.
type OpenAI struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewOpenAI builds the provider. An empty baseURL uses the public API.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		apiKey: apiKey,
	}
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Available() bool { return p.apiKey != "" }

func (p *OpenAI) Complete(ctx context.Context, prompt string) Result {
	if !p.Available() {
		return Failed(CategoryNotConfigured, ErrNotConfigured)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		if r, done := FromContext(ctx); done {
			return r
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
				return Failed(CategoryRateLimited, err)
			}
			return Failed(CategoryAPI, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return Failed(CategoryAPI, fmt.Errorf("openai status %d: %w", reqErr.HTTPStatusCode, err))
		}
		return Failed(CategoryTransport, err)
	}

	if len(resp.Choices) == 0 {
		return Failed(CategoryEmpty, errors.New("openai returned no choices"))
	}
	return Success(resp.Choices[0].Message.Content)
}
