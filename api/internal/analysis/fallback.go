package analysis

import "unicode/utf8"

const (
	FallbackScore       = 75
	fallbackIssue       = "Review required"
	fallbackExcerptLen  = 200
	fallbackExcerptTail = "..."
)

// FallbackDimension is one of the six fixed equity dimensions used when the
// model answer cannot be read.
type FallbackDimension struct {
	Name           string `json:"name"`
	Recommendation string `json:"recommendation"`
}

var fallbackDimensions = []FallbackDimension{
	{"Socioeconomic", "Consider student resources"},
	{"Time & Scheduling", "Consider flexibility"},
	{"Cultural & Linguistic", "Consider inclusivity"},
	{"Accessibility", "Consider accommodations"},
	{"Digital Divide", "Consider access"},
	{"Learning Support", "Consider guidance"},
}

// FallbackDimensions returns a copy of the fixed dimension table.
func FallbackDimensions() []FallbackDimension {
	out := make([]FallbackDimension, len(fallbackDimensions))
	copy(out, fallbackDimensions)
	return out
}

// FallbackRecord builds the deterministic six-dimension record whose summary
// is an excerpt of source.
func FallbackRecord(source string) Record {
	dims := make([]Dimension, 0, len(fallbackDimensions))
	for _, d := range fallbackDimensions {
		dims = append(dims, Dimension{
			Name:            d.Name,
			Score:           FallbackScore,
			Issues:          []string{fallbackIssue},
			Recommendations: []string{d.Recommendation},
		})
	}
	return Record{
		Shape:        ShapeDimensions,
		OverallScore: FallbackScore,
		Summary:      excerpt(source, fallbackExcerptLen) + fallbackExcerptTail,
		Dimensions:   dims,
	}
}

// excerpt returns the first n characters of s without splitting a rune.
func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
