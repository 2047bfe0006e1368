package analysis

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireFallback(t *testing.T, rec Record) {
	t.Helper()
	require.Equal(t, ShapeDimensions, rec.Shape)
	require.Equal(t, 75, rec.OverallScore)
	require.Len(t, rec.Dimensions, 6)
	assert.Empty(t, rec.Barriers)
	assert.Empty(t, rec.Strengths)
	assert.Empty(t, rec.Recommendations)
	assert.Empty(t, rec.ReformattedAssignment)
}

func TestNormalize_JSONFence(t *testing.T) {
	raw := "```json\n{\"overallScore\": 82, \"summary\": \"Good design\", \"barriers\": [], \"strengths\": [\"Flexible deadline\"], \"recommendations\": [\"Add captions\"]}\n```"

	rec, out := NewNormalizer().Inspect(raw, "Write an essay")

	require.Equal(t, StrategyJSONFence, out.Strategy)
	require.Empty(t, out.FallbackReason)
	assert.Equal(t, Record{
		Shape:           ShapeBarriers,
		OverallScore:    82,
		Summary:         "Good design",
		Barriers:        []Barrier{},
		Strengths:       []string{"Flexible deadline"},
		Recommendations: []string{"Add captions"},
	}, rec)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"shape": "barriers",
		"overallScore": 82,
		"summary": "Good design",
		"barriers": [],
		"strengths": ["Flexible deadline"],
		"recommendations": ["Add captions"]
	}`, string(b))
}

func TestNormalize_JSONFenceIgnoresSurroundingProse(t *testing.T) {
	raw := "Here is my analysis:\n```json\n{\"overallScore\": 64, \"summary\": \"Needs work\"}\n```\nLet me know if you need more."

	rec, out := NewNormalizer().Inspect(raw, "")

	require.Equal(t, StrategyJSONFence, out.Strategy)
	assert.Equal(t, 64, rec.OverallScore)
	assert.Equal(t, "Needs work", rec.Summary)
	assert.Equal(t, []Barrier{}, rec.Barriers)
	assert.Equal(t, []string{}, rec.Strengths)
}

func TestNormalize_GenericFence(t *testing.T) {
	raw := "Result:\n```\n{\"overallScore\": 55, \"summary\": \"Mixed\", \"strengths\": [\"Clear rubric\"]}\n```"

	rec, out := NewNormalizer().Inspect(raw, "")

	require.Equal(t, StrategyGenericFence, out.Strategy)
	require.Equal(t, ShapeBarriers, rec.Shape)
	assert.Equal(t, 55, rec.OverallScore)
	assert.Equal(t, []string{"Clear rubric"}, rec.Strengths)
}

func TestNormalize_ScoreObjectInProse(t *testing.T) {
	raw := `Sure! The analysis is {"overallScore": 71, "summary": "Reasonable", "recommendations": ["Offer audio version"]} and that is all.`

	rec, out := NewNormalizer().Inspect(raw, "")

	require.Equal(t, StrategyScoreObject, out.Strategy)
	assert.Equal(t, 71, rec.OverallScore)
	assert.Equal(t, []string{"Offer audio version"}, rec.Recommendations)
}

func TestNormalize_BareJSON(t *testing.T) {
	raw := `  {"summary": "Direct", "overallScore": 90}  `

	rec, out := NewNormalizer().Inspect(raw, "")

	// a bare object containing overallScore is found by the object pattern first
	require.Equal(t, StrategyScoreObject, out.Strategy)
	assert.Equal(t, 90, rec.OverallScore)
	assert.Equal(t, "Direct", rec.Summary)
}

func TestNormalize_EmptyInput(t *testing.T) {
	rec, out := NewNormalizer().Inspect("", "")

	requireFallback(t, rec)
	assert.Equal(t, StrategyWholeText, out.Strategy)
	assert.NotEmpty(t, out.FallbackReason)
	assert.Equal(t, "...", rec.Summary)
}

func TestNormalize_FallbackDimensionsTable(t *testing.T) {
	rec := NewNormalizer().Normalize("", "")

	want := []struct{ name, rec string }{
		{"Socioeconomic", "Consider student resources"},
		{"Time & Scheduling", "Consider flexibility"},
		{"Cultural & Linguistic", "Consider inclusivity"},
		{"Accessibility", "Consider accommodations"},
		{"Digital Divide", "Consider access"},
		{"Learning Support", "Consider guidance"},
	}
	require.Len(t, rec.Dimensions, len(want))
	for i, w := range want {
		d := rec.Dimensions[i]
		assert.Equal(t, w.name, d.Name)
		assert.Equal(t, 75, d.Score)
		assert.Equal(t, []string{"Review required"}, d.Issues)
		assert.Equal(t, []string{w.rec}, d.Recommendations)
	}
}

func TestNormalize_MissingSummaryFallsBack(t *testing.T) {
	rec, out := NewNormalizer().Inspect(`{"overallScore": 88, "strengths": ["x"]}`, "")

	requireFallback(t, rec)
	assert.Equal(t, errMissingSummary.Error(), out.FallbackReason)
}

func TestNormalize_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"blank summary", `{"overallScore": 80, "summary": "   "}`},
		{"null summary", `{"overallScore": 80, "summary": null}`},
		{"numeric summary", `{"overallScore": 80, "summary": 12}`},
		{"missing score", `{"summary": "ok"}`},
		{"null score", `{"overallScore": null, "summary": "ok"}`},
		{"string score", `{"overallScore": "80", "summary": "ok"}`},
		{"bool score", `{"overallScore": true, "summary": "ok"}`},
		{"array document", "```json\n[1,2,3]\n```"},
		{"broken json", "```json\n{\"overallScore\": 80, \"summary\": \"ok\"\n```"},
		{"tagged non-json fence", "```python\nprint('hi')\n```"},
		{"trailing garbage", `{"overallScore": 80, "summary": "ok"} and {"x": 1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireFallback(t, NewNormalizer().Normalize(tc.raw, "assignment"))
		})
	}
}

func TestNormalize_FallbackSummaryFromCompletion(t *testing.T) {
	raw := "Sorry, I cannot comply."

	rec := NewNormalizer().Normalize(raw, "Write a 10-page essay on...")

	requireFallback(t, rec)
	assert.Equal(t, "Sorry, I cannot comply....", rec.Summary)
}

func TestNormalize_FallbackSummaryFromAssignment(t *testing.T) {
	n := NewNormalizer(WithFallbackSource(FallbackFromAssignment))

	rec := n.Normalize("Sorry, I cannot comply.", "Write a 10-page essay on...")

	requireFallback(t, rec)
	assert.Equal(t, "Write a 10-page essay on......", rec.Summary)
}

func TestNormalize_FallbackSummaryNeverMixesSources(t *testing.T) {
	rec := NewNormalizer().Normalize("", "Write a 10-page essay")
	assert.Equal(t, "...", rec.Summary)

	rec = NewNormalizer(WithFallbackSource(FallbackFromAssignment)).Normalize("Sorry", "")
	assert.Equal(t, "...", rec.Summary)
}

func TestNormalize_FallbackSummaryKeepsSourceText(t *testing.T) {
	rec := NewNormalizer().Normalize("   Sorry", "")
	assert.Equal(t, "   Sorry...", rec.Summary)

	rec = NewNormalizer().Normalize("   ", "Design a poster")
	assert.Equal(t, "   ...", rec.Summary)
}

func TestNormalize_FallbackSummaryTruncatesRunes(t *testing.T) {
	long := strings.Repeat("é", 250)

	rec := NewNormalizer().Normalize(long, "")

	assert.Equal(t, strings.Repeat("é", 200)+"...", rec.Summary)
}

func TestNormalize_ScoreIsRoundedAndClamped(t *testing.T) {
	cases := map[string]int{
		`{"overallScore": 82.6, "summary": "s"}`: 83,
		`{"overallScore": 140, "summary": "s"}`:  100,
		`{"overallScore": -5, "summary": "s"}`:   0,
		`{"overallScore": 1e1, "summary": "s"}`:  10,
		`{"overallScore": 1e19, "summary": "s"}`:  100,
		`{"overallScore": 1e300, "summary": "s"}`: 100,
		`{"overallScore": -1e19, "summary": "s"}`: 0,
	}
	n := NewNormalizer()
	for raw, want := range cases {
		rec := n.Normalize(raw, "")
		require.Equal(t, ShapeBarriers, rec.Shape, raw)
		assert.Equal(t, want, rec.OverallScore, raw)
	}
}

func TestNormalize_CoercesBarriers(t *testing.T) {
	raw := "```json\n" + `{
		"overallScore": 60,
		"summary": "Several barriers",
		"barriers": [
			{"category": "Digital Divide", "severity": "HIGH", "issue": "Requires home internet",
			 "impact": "Students without broadband fall behind", "suggestions": ["Offer printed packet", 3, ""],
			 "researchBasis": "digital divide homework gap", "extra": true},
			"not an object",
			{"category": "Time", "severity": "urgent", "suggestions": "Extend deadline"}
		],
		"strengths": "Clear goals",
		"recommendations": null,
		"reformattedAssignment": "  Revised text  ",
		"dimensions": [{"name": "ignored"}],
		"unknown": {"a": 1}
	}` + "\n```"

	rec := NewNormalizer().Normalize(raw, "")

	require.Equal(t, ShapeBarriers, rec.Shape)
	require.Len(t, rec.Barriers, 2)
	assert.Equal(t, Barrier{
		Category:      "Digital Divide",
		Severity:      SeverityHigh,
		Issue:         "Requires home internet",
		Impact:        "Students without broadband fall behind",
		Suggestions:   []string{"Offer printed packet", "3"},
		ResearchBasis: "digital divide homework gap",
	}, rec.Barriers[0])
	assert.Equal(t, SeverityMedium, rec.Barriers[1].Severity)
	assert.Equal(t, []string{"Extend deadline"}, rec.Barriers[1].Suggestions)
	assert.Equal(t, []string{"Clear goals"}, rec.Strengths)
	assert.Equal(t, []string{}, rec.Recommendations)
	assert.Equal(t, "Revised text", rec.ReformattedAssignment)
	assert.Nil(t, rec.Dimensions)
}

func TestNormalize_MalformedListsBecomeEmpty(t *testing.T) {
	raw := `{"overallScore": 50, "summary": "s", "barriers": {"a": 1}, "strengths": {"b": 2}}`

	rec := NewNormalizer().Normalize(raw, "")

	require.Equal(t, ShapeBarriers, rec.Shape)
	assert.Equal(t, []Barrier{}, rec.Barriers)
	assert.Equal(t, []string{}, rec.Strengths)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Sorry, I cannot comply.",
		"```json\n{\"overallScore\": 82, \"summary\": \"Good design\"}\n```",
	}
	n := NewNormalizer()
	for _, raw := range inputs {
		a, err := json.Marshal(n.Normalize(raw, "assignment"))
		require.NoError(t, err)
		b, err := json.Marshal(n.Normalize(raw, "assignment"))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestNormalize_ConcurrentUse(t *testing.T) {
	n := NewNormalizer()
	raw := "```json\n{\"overallScore\": 70, \"summary\": \"ok\"}\n```"

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := n.Normalize(raw, "")
			assert.Equal(t, 70, rec.OverallScore)
		}()
	}
	wg.Wait()
}

func TestParseFallbackSource(t *testing.T) {
	src, err := ParseFallbackSource("")
	require.NoError(t, err)
	assert.Equal(t, FallbackFromCompletion, src)

	src, err = ParseFallbackSource(" Assignment ")
	require.NoError(t, err)
	assert.Equal(t, FallbackFromAssignment, src)

	_, err = ParseFallbackSource("prompt")
	require.Error(t, err)
}

func TestInspect_FailureClasses(t *testing.T) {
	cases := []struct {
		raw  string
		want Failure
	}{
		{"```json\n{\"overallScore\": 1, \"summary\": \"s\"}\n```", FailureNone},
		{"Sorry, I cannot comply.", FailureExtractionMiss},
		{"```json\n{broken\n```", FailureParse},
		{`{"overallScore": 1}`, FailureValidation},
		{"```\n[1, 2]\n```", FailureValidation},
	}
	n := NewNormalizer()
	for _, tc := range cases {
		_, out := n.Inspect(tc.raw, "")
		assert.Equal(t, tc.want, out.Failure, tc.raw)
	}
}
