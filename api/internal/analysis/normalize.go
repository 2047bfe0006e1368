// Package analysis turns free-form model completions into analysis records.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// FallbackSource selects which text the fallback summary is cut from.
type FallbackSource string

const (
	FallbackFromCompletion FallbackSource = "completion"
	FallbackFromAssignment FallbackSource = "assignment"
)

// ParseFallbackSource validates a configured fallback source.
func ParseFallbackSource(s string) (FallbackSource, error) {
	switch FallbackSource(strings.ToLower(strings.TrimSpace(s))) {
	case "", FallbackFromCompletion:
		return FallbackFromCompletion, nil
	case FallbackFromAssignment:
		return FallbackFromAssignment, nil
	default:
		return "", fmt.Errorf("unknown fallback source %q; use %q or %q", s, FallbackFromCompletion, FallbackFromAssignment)
	}
}

// Failure classifies why a completion could not be used.
type Failure string

const (
	FailureNone           Failure = ""
	FailureExtractionMiss Failure = "extraction_miss" // nothing recognisable, whole text did not parse
	FailureParse          Failure = "parse"           // extracted candidate is not valid JSON
	FailureValidation     Failure = "validation"      // JSON parsed but required fields are missing
)

// Outcome describes how a completion was normalized.
type Outcome struct {
	Strategy Strategy
	Failure  Failure
	// FallbackReason is empty when the model answer was used.
	FallbackReason string
}

// Normalizer is safe for concurrent use; it holds configuration only.
type Normalizer struct {
	source FallbackSource
	log    *zap.Logger
}

type Option func(*Normalizer)

func WithFallbackSource(src FallbackSource) Option {
	return func(n *Normalizer) { n.source = src }
}

func WithLogger(l *zap.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.log = l
		}
	}
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		source: FallbackFromCompletion,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize never fails: it returns either the validated model answer or the
// six-dimension fallback record.
func (n *Normalizer) Normalize(raw, assignment string) Record {
	rec, _ := n.Inspect(raw, assignment)
	return rec
}

// Inspect is Normalize plus the diagnostic outcome.
func (n *Normalizer) Inspect(raw, assignment string) (Record, Outcome) {
	candidate, strategy := ExtractCandidate(raw)
	out := Outcome{Strategy: strategy}

	rec, err := decodeRecord(candidate)
	if err == nil {
		n.log.Debug("completion normalized",
			zap.String("strategy", string(strategy)),
			zap.Int("overall_score", rec.OverallScore),
			zap.Int("barriers", len(rec.Barriers)))
		return rec, out
	}

	out.Failure = classify(strategy, err)
	out.FallbackReason = err.Error()
	n.log.Warn("completion not usable, using fallback record",
		zap.String("strategy", string(strategy)),
		zap.String("failure", string(out.Failure)),
		zap.Error(err),
		zap.Int("raw_len", len(raw)))
	return FallbackRecord(n.fallbackText(raw, assignment)), out
}

// fallbackText returns the configured source as is, even when it is blank.
func (n *Normalizer) fallbackText(raw, assignment string) string {
	if n.source == FallbackFromAssignment {
		return assignment
	}
	return raw
}

func classify(strategy Strategy, err error) Failure {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, errNotObject), errors.Is(err, errMissingScore), errors.Is(err, errMissingSummary), errors.As(err, &typeErr):
		return FailureValidation
	case strategy == StrategyWholeText:
		return FailureExtractionMiss
	default:
		return FailureParse
	}
}
