package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/ports"
)

const analysisSystemPrompt = `You are analysing a software project's source layout. ` +
	`Respond with a single JSON object only, no prose, no code fences. Fields: ` +
	`description (one sentence, empty if you cannot tell), type (one of library, api, cli, web, service, ` +
	`application, tool, framework, plugin, script, docs, bot, game, data, template, other), ` +
	`frameworks (array of strings), tags (array of short strings, at most 10), ` +
	`complexity (one of low, medium, high), key_features (array of short strings), ` +
	`improvement_suggestions (array of short strings).`

// analysisInput is the evidence gathered for one project's LLM analysis.
type analysisInput struct {
	Name      string
	Readme    string
	FileNames []string
}

// analysisOutput is the normalized result of analyzeProject, already
// validated against the fixed type enum.
type analysisOutput struct {
	Description            string
	Type                    models.ProjectType
	Frameworks              []string
	Tags                    []string
	Complexity              string
	KeyFeatures             []string
	ImprovementSuggestions  []string
}

type rawAnalysis struct {
	Description            string   `json:"description"`
	Type                    string   `json:"type"`
	Frameworks              []string `json:"frameworks"`
	Tags                    []string `json:"tags"`
	Complexity              string   `json:"complexity"`
	KeyFeatures             []string `json:"key_features"`
	ImprovementSuggestions  []string `json:"improvement_suggestions"`
}

const readmeAnalysisChars = 3000

// analyzeProject requests a structured project analysis from gen. If gen is
// nil, the call errors, or the response is unparsable, it returns a zero
// analysisOutput (an empty analysis, not an error) so the caller can still
// merge whatever fields came back — the llm_analysis handler never fails a
// project solely because the LLM step produced nothing useful.
func analyzeProject(ctx context.Context, gen ports.Generator, in analysisInput) analysisOutput {
	if gen == nil {
		return analysisOutput{}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", in.Name)
	readme := in.Readme
	if len(readme) > readmeAnalysisChars {
		readme = readme[:readmeAnalysisChars]
	}
	if readme != "" {
		fmt.Fprintf(&sb, "README excerpt:\n%s\n", readme)
	}
	if len(in.FileNames) > 0 {
		fmt.Fprintf(&sb, "Files: %s\n", strings.Join(in.FileNames, ", "))
	}

	text, err := gen.Generate(ctx, ports.GenerateRequest{
		Prompt:      sb.String(),
		System:      analysisSystemPrompt,
		Temperature: 0.2,
		MaxTokens:   768,
	})
	if err != nil {
		slog.Warn("jobs: llm_analysis generate failed", "project", in.Name, "error", err)
		return analysisOutput{}
	}

	cleaned := stripCodeFence(text)
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		slog.Warn("jobs: llm_analysis response unparsable", "project", in.Name, "error", err)
		return analysisOutput{}
	}

	out := analysisOutput{
		Description:            raw.Description,
		Frameworks:              raw.Frameworks,
		Tags:                    raw.Tags,
		Complexity:              raw.Complexity,
		KeyFeatures:             raw.KeyFeatures,
		ImprovementSuggestions:  raw.ImprovementSuggestions,
	}
	t := models.ProjectType(strings.ToLower(strings.TrimSpace(raw.Type)))
	if models.IsValidProjectType(t) {
		out.Type = t
	}
	if len(out.Tags) > 10 {
		out.Tags = out.Tags[:10]
	}
	return out
}

// stripCodeFence removes an optional ``` wrapper, mirroring pkg/quality's
// lenient LLM-JSON parsing.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
