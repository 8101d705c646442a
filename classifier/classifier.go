// Package classifier asks a vision model whether customer photos show a
// vehicle wheel and, on request, for a rough damage assessment.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/intake"
)

const wheelPrompt = "Is this image of a vehicle wheel or rim? Answer with only 'yes' or 'no'."

// ErrClassifier marks failures talking to the vision model.
var ErrClassifier = errors.New("classifier request failed")

// Generator sends one prompt plus one image to a model and returns its text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Request struct {
	Prompt string
	Image  *intake.CandidateImage
	// JSON asks the model to answer with a JSON document.
	JSON bool
}

// Classifier decides whether a single image shows a wheel or rim.
type Classifier interface {
	Classify(ctx context.Context, img *intake.CandidateImage) (bool, error)
}

// IsAffirmative reduces a free-text answer to a verdict: the trimmed,
// lowercased answer must contain "yes". The match is a plain substring test,
// so answers like "yes, but blurry", "not yes" or "eyes" also count as yes.
// Empty or malformed answers are no.
func IsAffirmative(answer string) bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(answer)), "yes")
}

type Vision struct {
	gen Generator
	log *zap.Logger
}

func NewVision(gen Generator, log *zap.Logger) *Vision {
	return &Vision{gen: gen, log: log}
}

func (v *Vision) Classify(ctx context.Context, img *intake.CandidateImage) (bool, error) {
	answer, err := v.gen.Generate(ctx, Request{Prompt: wheelPrompt, Image: img})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrClassifier, err)
	}

	verdict := IsAffirmative(answer)
	v.log.Debug("Classified image",
		zap.String("filename", img.Filename),
		zap.String("answer", answer),
		zap.Bool("wheel", verdict))
	return verdict, nil
}

// AcceptAll is used when no vision model is configured.
type AcceptAll struct{}

func (AcceptAll) Classify(context.Context, *intake.CandidateImage) (bool, error) {
	return true, nil
}
