package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/ports"
)

const readmeContextChars = 3000
const maxContextFiles = 50

const assessmentSystemPrompt = `You are assessing the production quality of a software project. ` +
	`Respond with a single JSON object only, no prose, no code fences. Fields: ` +
	`production_readiness (one of unknown, prototype, alpha, beta, production, mature, legacy, deprecated), ` +
	`code_quality, documentation, tests, security, maintainability (integers 0-100), ` +
	`key_features, strengths, weaknesses, production_blockers, recommended_improvements, technology_stack, use_cases (arrays of short strings).`

// AssessInput is the evidence gathered for an LLM quality assessment.
type AssessInput struct {
	Name        string
	Description string
	Languages   []string
	Frameworks  []string
	Indicators  Indicators
	Readme      string
	FileNames   []string
}

// Assessment is the composite result of an LLM or fallback quality pass.
type Assessment struct {
	ProductionReadiness models.ProductionReadiness `json:"-"`
	CodeQuality         int                        `json:"code_quality"`
	Documentation       int                        `json:"documentation"`
	Tests               int                        `json:"tests"`
	Security            int                        `json:"security"`
	Maintainability     int                        `json:"maintainability"`

	KeyFeatures              []string `json:"key_features"`
	Strengths                []string `json:"strengths"`
	Weaknesses               []string `json:"weaknesses"`
	ProductionBlockers       []string `json:"production_blockers"`
	RecommendedImprovements  []string `json:"recommended_improvements"`
	TechnologyStack          []string `json:"technology_stack"`
	UseCases                 []string `json:"use_cases"`

	QualityScore float64 `json:"-"`
	Fallback     bool    `json:"-"`
}

// rawAssessment is the wire shape returned by the LLM, before readiness
// validation.
type rawAssessment struct {
	ProductionReadiness string `json:"production_readiness"`
	Assessment
}

// Assess requests a structured quality assessment from gen. If gen is nil,
// the call fails, or the response cannot be parsed, Assess falls back to an
// indicator-only assessment and never returns an error (per §9's "never let
// LLM-shaped output raise through the job handler").
func Assess(ctx context.Context, gen ports.Generator, in AssessInput) *Assessment {
	if gen == nil {
		return fallbackAssessment(in)
	}

	prompt := buildContext(in)
	text, err := gen.Generate(ctx, ports.GenerateRequest{
		Prompt:      prompt,
		System:      assessmentSystemPrompt,
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		slog.Warn("quality: llm generate failed, using fallback assessment", "project", in.Name, "error", err)
		return fallbackAssessment(in)
	}

	a, err := parseAssessment(text)
	if err != nil {
		slog.Warn("quality: llm response unparsable, using fallback assessment", "project", in.Name, "error", err)
		return fallbackAssessment(in)
	}

	completeness := CompletenessScore(in.Indicators)
	a.QualityScore = clampScore(meanDimensions(a) + 0.1*completeness)
	return a
}

func buildContext(in AssessInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", in.Name)
	if in.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", in.Description)
	}
	fmt.Fprintf(&sb, "Languages: %s\n", strings.Join(in.Languages, ", "))
	fmt.Fprintf(&sb, "Frameworks: %s\n", strings.Join(in.Frameworks, ", "))
	fmt.Fprintf(&sb, "Indicators: %v\n", in.Indicators.AsMap())

	readme := in.Readme
	if len(readme) > readmeContextChars {
		readme = readme[:readmeContextChars]
	}
	if readme != "" {
		fmt.Fprintf(&sb, "README excerpt:\n%s\n", readme)
	}

	files := in.FileNames
	if len(files) > maxContextFiles {
		files = files[:maxContextFiles]
	}
	if len(files) > 0 {
		fmt.Fprintf(&sb, "Files: %s\n", strings.Join(files, ", "))
	}
	return sb.String()
}

// parseAssessment strips an optional code-fence wrapper and parses the
// remaining JSON leniently, per §9's "LLM JSON parsing" design note.
func parseAssessment(text string) (*Assessment, error) {
	cleaned := stripCodeFence(text)

	var raw rawAssessment
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("quality: decode assessment json: %w", err)
	}

	readiness := models.ProductionReadiness(strings.ToLower(strings.TrimSpace(raw.ProductionReadiness)))
	if !models.IsValidReadiness(readiness) {
		readiness = models.ReadinessUnknown
	}

	a := raw.Assessment
	a.ProductionReadiness = readiness
	return &a, nil
}

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

func meanDimensions(a *Assessment) float64 {
	sum := a.CodeQuality + a.Documentation + a.Tests + a.Security + a.Maintainability
	return float64(sum) / 5
}

func clampScore(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// fallbackAssessment derives a readiness/score purely from the deterministic
// indicator bundle when the LLM is unavailable or its output is unusable.
func fallbackAssessment(in AssessInput) *Assessment {
	completeness := CompletenessScore(in.Indicators)

	readiness := models.ReadinessPrototype
	switch {
	case completeness >= 70 && in.Indicators.Tests && in.Indicators.CI:
		readiness = models.ReadinessProduction
	case completeness >= 40:
		readiness = models.ReadinessBeta
	case completeness >= 20:
		readiness = models.ReadinessAlpha
	}

	var weaknesses, improvements []string
	if !in.Indicators.README {
		weaknesses = append(weaknesses, "missing README")
		improvements = append(improvements, "add a README describing the project")
	}
	if !in.Indicators.Tests {
		weaknesses = append(weaknesses, "no test suite detected")
		improvements = append(improvements, "add automated tests")
	}
	if !in.Indicators.CI {
		weaknesses = append(weaknesses, "no CI configuration detected")
		improvements = append(improvements, "add a CI pipeline")
	}
	if !in.Indicators.License {
		weaknesses = append(weaknesses, "no license file detected")
		improvements = append(improvements, "add a LICENSE file")
	}

	score := int(completeness)
	return &Assessment{
		ProductionReadiness:     readiness,
		CodeQuality:             score,
		Documentation:           score,
		Tests:                   score,
		Security:                score,
		Maintainability:         score,
		Weaknesses:              weaknesses,
		RecommendedImprovements: improvements,
		QualityScore:            clampScore(completeness),
		Fallback:                true,
	}
}
