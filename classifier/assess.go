package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meinhoongagan/wheel-refurb/intake"
)

const assessPrompt = `You are inspecting a photo of a vehicle wheel for a refurbishment workshop.
Respond with a JSON object with exactly these keys:
"condition": a short description of visible damage,
"recommendation": the work you would recommend,
"estimatedEffort": one of "Low", "Medium" or "High".`

type Effort string

const (
	EffortLow    Effort = "Low"
	EffortMedium Effort = "Medium"
	EffortHigh   Effort = "High"
)

// Assessment is a rough, model-generated damage estimate for one photo.
type Assessment struct {
	Condition       string `json:"condition"`
	Recommendation  string `json:"recommendation"`
	EstimatedEffort Effort `json:"estimatedEffort"`
}

// Assessor produces damage assessments using the same model as Vision.
type Assessor struct {
	gen Generator
}

func NewAssessor(gen Generator) *Assessor {
	return &Assessor{gen: gen}
}

func (a *Assessor) Assess(ctx context.Context, img *intake.CandidateImage) (*Assessment, error) {
	answer, err := a.gen.Generate(ctx, Request{Prompt: assessPrompt, Image: img, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifier, err)
	}
	return parseAssessment(answer)
}

func parseAssessment(answer string) (*Assessment, error) {
	var out Assessment
	if err := json.Unmarshal([]byte(stripCodeFence(answer)), &out); err != nil {
		return nil, fmt.Errorf("%w: decode assessment: %w", ErrClassifier, err)
	}
	if strings.TrimSpace(out.Condition) == "" {
		return nil, fmt.Errorf("%w: assessment has no condition", ErrClassifier)
	}
	out.EstimatedEffort = normalizeEffort(out.EstimatedEffort)
	return &out, nil
}

func normalizeEffort(e Effort) Effort {
	switch strings.ToLower(strings.TrimSpace(string(e))) {
	case "low":
		return EffortLow
	case "high":
		return EffortHigh
	default:
		return EffortMedium
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
