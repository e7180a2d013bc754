// Package genai wraps the Gemini API for short text completions.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-anon-inbox/internal/config"
	"google.golang.org/genai"
)

const maxOutputTokens = 256

// Client generates text from a single prompt.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient returns nil, nil when no API key is configured so callers can
// treat the feature as switched off.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	return newClient(ctx, cfg, nil)
}

func newClient(ctx context.Context, cfg *config.Config, httpClient *http.Client) (*Client, error) {
	if cfg.SuggestionAPIKey == "" {
		return nil, nil
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.SuggestionAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.SuggestionEndpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.SuggestionEndpoint
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: c, model: cfg.SuggestionModel}, nil
}

// Generate sends prompt as a single user turn and returns the text of the
// first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("generate content: empty response")
	}
	return text, nil
}
