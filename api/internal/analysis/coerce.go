package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
)

var (
	errNotObject      = errors.New("top-level JSON value is not an object")
	errMissingScore   = errors.New("overallScore is missing or not numeric")
	errMissingSummary = errors.New("summary is missing or empty")
)

const (
	minScore = 0
	maxScore = 100
)

// flexString accepts any JSON scalar; objects and arrays decode to "".
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(strings.TrimSpace(str))
		return nil
	}
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' && b[0] != '[' && !bytes.Equal(b, []byte("null")) {
		*s = flexString(b)
		return nil
	}
	*s = ""
	return nil
}

// flexStrings accepts an array of scalars or a single string; blank items are dropped.
type flexStrings []string

func (l *flexStrings) UnmarshalJSON(b []byte) error {
	var items []flexString
	if err := json.Unmarshal(b, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				out = append(out, string(it))
			}
		}
		*l = out
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil && strings.TrimSpace(one) != "" {
		*l = []string{strings.TrimSpace(one)}
		return nil
	}
	*l = nil
	return nil
}

type barrierWire struct {
	Category      flexString  `json:"category"`
	Severity      flexString  `json:"severity"`
	Issue         flexString  `json:"issue"`
	Impact        flexString  `json:"impact"`
	Suggestions   flexStrings `json:"suggestions"`
	ResearchBasis flexString  `json:"researchBasis"`
}

// flexBarriers keeps the object elements of an array and skips everything else.
type flexBarriers []Barrier

func (l *flexBarriers) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		*l = nil
		return nil
	}
	out := make([]Barrier, 0, len(items))
	for _, it := range items {
		it = bytes.TrimSpace(it)
		if len(it) == 0 || it[0] != '{' {
			continue
		}
		var w barrierWire
		if err := json.Unmarshal(it, &w); err != nil {
			continue
		}
		out = append(out, Barrier{
			Category:      string(w.Category),
			Severity:      ParseSeverity(string(w.Severity)),
			Issue:         string(w.Issue),
			Impact:        string(w.Impact),
			Suggestions:   nonNil(w.Suggestions),
			ResearchBasis: string(w.ResearchBasis),
		})
	}
	*l = out
	return nil
}

type successWire struct {
	Barriers              flexBarriers `json:"barriers"`
	Strengths             flexStrings  `json:"strengths"`
	Recommendations       flexStrings  `json:"recommendations"`
	ReformattedAssignment flexString   `json:"reformattedAssignment"`
}

// decodeRecord parses candidate JSON text and validates the two required
// fields. Any returned error means the caller must fall back.
func decodeRecord(candidate string) (Record, error) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var top map[string]json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return Record{}, err
	}
	if top == nil {
		return Record{}, errNotObject
	}
	if dec.More() {
		return Record{}, errors.New("trailing data after JSON object")
	}

	score, err := parseScore(top["overallScore"])
	if err != nil {
		return Record{}, err
	}
	var summary string
	if raw, ok := top["summary"]; !ok || json.Unmarshal(raw, &summary) != nil || strings.TrimSpace(summary) == "" {
		return Record{}, errMissingSummary
	}

	var w successWire
	if err := json.Unmarshal([]byte(candidate), &w); err != nil {
		return Record{}, err
	}
	return Record{
		Shape:                 ShapeBarriers,
		OverallScore:          score,
		Summary:               strings.TrimSpace(summary),
		Barriers:              nonNilBarriers(w.Barriers),
		Strengths:             nonNil(w.Strengths),
		Recommendations:       nonNil(w.Recommendations),
		ReformattedAssignment: string(w.ReformattedAssignment),
	}, nil
}

// parseScore accepts JSON numbers only, rounds fractions and clamps to 0..100.
func parseScore(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, errMissingScore
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errMissingScore
	}
	// json.Number also accepts quoted strings; reject those.
	if t := bytes.TrimSpace(raw); len(t) > 0 && t[0] == '"' {
		return 0, errMissingScore
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errMissingScore
	}
	// clamp before converting; out-of-range float to int is undefined
	f = math.Max(minScore, math.Min(maxScore, math.Round(f)))
	return int(f), nil
}
