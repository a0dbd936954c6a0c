package quality

import "time"

// healthMaxPoints is the sum of every criterion's weight, used to normalize
// the attained score to a 0-100 percentage.
const healthMaxPoints = 15 + 10 + 15 + 10 + 10 + 20 + 5 + 5

// HealthInput is the evidence ComputeHealth scores.
type HealthInput struct {
	Indicators   Indicators
	Description  string
	Languages    []string
	Frameworks   []string
	LastCommitAt *time.Time
}

// ComputeHealth applies the fixed weight table from §4.5 and normalizes to
// a 0-100 percentage of the maximum attainable score.
func ComputeHealth(in HealthInput) float64 {
	var points float64
	if in.Indicators.README {
		points += 15
	}
	if in.Indicators.License {
		points += 10
	}
	if in.Indicators.Tests {
		points += 15
	}
	if in.Indicators.CI {
		points += 10
	}
	if in.Description != "" {
		points += 10
	}
	points += recentCommitPoints(in.LastCommitAt)
	if len(in.Languages) > 0 {
		points += 5
	}
	if len(in.Frameworks) > 0 {
		points += 5
	}

	return (points / healthMaxPoints) * 100
}

func recentCommitPoints(lastCommitAt *time.Time) float64 {
	if lastCommitAt == nil {
		return 0
	}
	age := time.Since(*lastCommitAt)
	switch {
	case age < 7*24*time.Hour:
		return 20
	case age < 30*24*time.Hour:
		return 15
	case age < 90*24*time.Hour:
		return 10
	case age < 365*24*time.Hour:
		return 5
	default:
		return 0
	}
}
