// Package llmclient provides concrete adapters for the ports.Generator and
// ports.Embedder interfaces consumed by the catalog core.
package llmclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/evercatalog/catalog/pkg/ports"
)

// AnthropicGenerator implements ports.Generator over the Anthropic Messages
// API, used for LLM analysis, quality assessment, and NL query parsing.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicGenerator constructs a generator bound to model (e.g.
// "claude-3-5-sonnet-latest"). apiKey is forwarded as-is; an empty key
// defers to the ANTHROPIC_API_KEY environment variable the SDK reads by
// default.
func NewAnthropicGenerator(apiKey, model string) *AnthropicGenerator {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &AnthropicGenerator{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Generate sends req as a single-turn message and concatenates the text
// blocks of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: generate: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text := block.AsText(); text.Text != "" {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

// ListModels is not exposed by Anthropic's public API in a form useful for
// an availability probe; AnthropicGenerator intentionally does not implement
// ports.Embedder. Availability for generation is determined by a live call
// failing or succeeding, handled by callers (C5, C11) via their own
// fallback paths.
