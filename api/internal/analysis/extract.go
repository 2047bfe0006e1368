package analysis

import (
	"regexp"
	"strings"
)

// Strategy names the extraction step that produced the candidate JSON text.
type Strategy string

const (
	StrategyJSONFence    Strategy = "json_fence"
	StrategyGenericFence Strategy = "generic_fence"
	StrategyScoreObject  Strategy = "score_object"
	StrategyWholeText    Strategy = "whole_text"
)

var (
	jsonFenceRe    = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	genericFenceRe = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	// Greedy on purpose: first '{' before an "overallScore" key through the last '}'.
	scoreObjectRe = regexp.MustCompile(`(?s)\{.*"overallScore".*\}`)
)

// extractor returns the candidate JSON text and true when it recognises its pattern.
type extractor struct {
	strategy Strategy
	extract  func(text string) (string, bool)
}

// extractors is tried in order; the first hit wins even if its content later
// fails to parse.
var extractors = []extractor{
	{StrategyJSONFence, submatch(jsonFenceRe)},
	{StrategyGenericFence, submatch(genericFenceRe)},
	{StrategyScoreObject, fullMatch(scoreObjectRe)},
	{StrategyWholeText, func(text string) (string, bool) { return strings.TrimSpace(text), true }},
}

func submatch(re *regexp.Regexp) func(string) (string, bool) {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	}
}

func fullMatch(re *regexp.Regexp) func(string) (string, bool) {
	return func(text string) (string, bool) {
		m := re.FindString(text)
		if m == "" {
			return "", false
		}
		return m, true
	}
}

// ExtractCandidate runs the extraction cascade over a raw completion.
func ExtractCandidate(raw string) (string, Strategy) {
	for _, e := range extractors {
		if c, ok := e.extract(raw); ok {
			return strings.TrimSpace(c), e.strategy
		}
	}
	return "", StrategyWholeText
}
