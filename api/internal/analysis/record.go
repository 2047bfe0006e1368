package analysis

import (
	"encoding/json"
	"strings"
)

// Shape tells the renderer which of the two report layouts a Record carries.
type Shape string

const (
	ShapeBarriers   Shape = "barriers"   // model answer was extracted and validated
	ShapeDimensions Shape = "dimensions" // six-dimension fallback
)

type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// ParseSeverity canonicalises a severity received from the model.
// Unknown or empty values are reported as Medium.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return SeverityHigh
	case "low":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

type Barrier struct {
	Category      string   `json:"category"`
	Severity      Severity `json:"severity"`
	Issue         string   `json:"issue"`
	Impact        string   `json:"impact"`
	Suggestions   []string `json:"suggestions"`
	ResearchBasis string   `json:"researchBasis"`
}

type Dimension struct {
	Name            string   `json:"name"`
	Score           int      `json:"score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Record is the normalized analysis handed to the rendering layer.
// Barriers, Strengths, Recommendations and ReformattedAssignment belong to
// ShapeBarriers; Dimensions belongs to ShapeDimensions.
type Record struct {
	Shape                 Shape
	OverallScore          int
	Summary               string
	Barriers              []Barrier
	Strengths             []string
	Recommendations       []string
	ReformattedAssignment string
	Dimensions            []Dimension
}

// IsFallback reports whether r is the six-dimension fallback record.
func (r Record) IsFallback() bool { return r.Shape == ShapeDimensions }

type barriersWire struct {
	Shape                 Shape     `json:"shape"`
	OverallScore          int       `json:"overallScore"`
	Summary               string    `json:"summary"`
	Barriers              []Barrier `json:"barriers"`
	Strengths             []string  `json:"strengths"`
	Recommendations       []string  `json:"recommendations"`
	ReformattedAssignment string    `json:"reformattedAssignment,omitempty"`
}

type dimensionsWire struct {
	Shape        Shape       `json:"shape"`
	OverallScore int         `json:"overallScore"`
	Summary      string      `json:"summary"`
	Dimensions   []Dimension `json:"dimensions"`
}

// MarshalJSON writes only the fields of r's shape, so the two layouts never
// appear mixed on the wire. Lists are always arrays, never null.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Shape == ShapeDimensions {
		return json.Marshal(dimensionsWire{
			Shape:        ShapeDimensions,
			OverallScore: r.OverallScore,
			Summary:      r.Summary,
			Dimensions:   nonNilDimensions(r.Dimensions),
		})
	}
	barriers := make([]Barrier, len(r.Barriers))
	for i, b := range r.Barriers {
		b.Suggestions = nonNil(b.Suggestions)
		barriers[i] = b
	}
	return json.Marshal(barriersWire{
		Shape:                 ShapeBarriers,
		OverallScore:          r.OverallScore,
		Summary:               r.Summary,
		Barriers:              barriers,
		Strengths:             nonNil(r.Strengths),
		Recommendations:       nonNil(r.Recommendations),
		ReformattedAssignment: r.ReformattedAssignment,
	})
}

// UnmarshalJSON restores a Record written by MarshalJSON (cache round trips).
func (r *Record) UnmarshalJSON(b []byte) error {
	var w struct {
		Shape                 Shape       `json:"shape"`
		OverallScore          int         `json:"overallScore"`
		Summary               string      `json:"summary"`
		Barriers              []Barrier   `json:"barriers"`
		Strengths             []string    `json:"strengths"`
		Recommendations       []string    `json:"recommendations"`
		ReformattedAssignment string      `json:"reformattedAssignment"`
		Dimensions            []Dimension `json:"dimensions"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Record{
		Shape:        w.Shape,
		OverallScore: w.OverallScore,
		Summary:      w.Summary,
	}
	if w.Shape == ShapeDimensions {
		r.Dimensions = w.Dimensions
		return nil
	}
	r.Shape = ShapeBarriers
	r.Barriers = nonNilBarriers(w.Barriers)
	r.Strengths = nonNil(w.Strengths)
	r.Recommendations = nonNil(w.Recommendations)
	r.ReformattedAssignment = w.ReformattedAssignment
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilBarriers(s []Barrier) []Barrier {
	if s == nil {
		return []Barrier{}
	}
	return s
}

func nonNilDimensions(s []Dimension) []Dimension {
	if s == nil {
		return []Dimension{}
	}
	return s
}
