// Package gemini wraps the Google Gemini API for one-shot text generation.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash-lite"

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response from model")

// Config configures the client
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint (tests)
	BaseURL string
}

// Client generates text with a Gemini model
type Client struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewClient creates a Gemini client. The API key is required.
func NewClient(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	return &Client{
		client: client,
		model:  model,
		log:    log.With().Str("client", "gemini").Logger(),
	}, nil
}

// Generate sends prompt and returns the first text part of the first candidate
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := FirstText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	c.log.Debug().Str("model", c.model).Int("chars", len(text)).Msg("Generated text")
	return text, nil
}

// FirstText returns the trimmed text of the first part of the first candidate,
// or "" when any step of that path is missing.
func FirstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 {
		return ""
	}
	part := cand.Content.Parts[0]
	if part == nil {
		return ""
	}
	return strings.TrimSpace(part.Text)
}
