package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultGeminiModel = "gemini-1.5-flash"
)

// Gemini calls the generateContent endpoint over plain HTTP.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// GeminiOption configures a Gemini provider.
type GeminiOption func(*Gemini)

// WithGeminiBaseURL points the provider at another endpoint.
func WithGeminiBaseURL(u string) GeminiOption {
	return func(g *Gemini) { g.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) {
		if c != nil {
			g.client = c
		}
	}
}

func NewGemini(apiKey, model string, opts ...GeminiOption) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	g := &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Available() bool { return g.apiKey != "" }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      *geminiContent `json:"content"`
	FinishReason string         `json:"finishReason"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (g *Gemini) Complete(ctx context.Context, prompt string) Result {
	if !g.Available() {
		return Failed(CategoryNotConfigured, ErrNotConfigured)
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return Failed(CategoryAPI, fmt.Errorf("marshal gemini request: %w", err))
	}

	// Key goes in a header: transport errors quote the URL.
	endpoint := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Failed(CategoryTransport, fmt.Errorf("create gemini request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if r, done := FromContext(ctx); done {
			return r
		}
		return Failed(CategoryTransport, fmt.Errorf("gemini request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if r, done := FromContext(ctx); done {
			return r
		}
		return Failed(CategoryTransport, fmt.Errorf("read gemini response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Failed(CategoryRateLimited, fmt.Errorf("gemini returned status %d", resp.StatusCode))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Failed(CategoryAPI, fmt.Errorf("unmarshal gemini response: %w", err))
	}
	if apiResp.Error != nil {
		return Failed(CategoryAPI, fmt.Errorf("gemini API error (%s): %s", apiResp.Error.Status, apiResp.Error.Message))
	}
	if resp.StatusCode != http.StatusOK {
		return Failed(CategoryAPI, fmt.Errorf("gemini returned status %d", resp.StatusCode))
	}

	var text string
	if len(apiResp.Candidates) > 0 && apiResp.Candidates[0].Content != nil {
		for _, part := range apiResp.Candidates[0].Content.Parts {
			text += part.Text
		}
	}
	return Success(text)
}
