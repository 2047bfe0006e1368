// Package report renders analysis records as chat messages.
package report

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"equity-lens/api/internal/analysis"
)

// MaxMessageRunes keeps each part under Telegram's 4096 character limit.
const MaxMessageRunes = 4000

const scholarSearch = "https://scholar.google.com/scholar?q="

// ScholarURL builds a Google Scholar search for a research basis string.
// Empty input yields "".
func ScholarURL(basis string) string {
	basis = strings.TrimSpace(basis)
	if basis == "" {
		return ""
	}
	return scholarSearch + url.QueryEscape(basis)
}

// Markdown renders rec in Telegram legacy Markdown.
func Markdown(rec analysis.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Equity score: %d/100*\n\n%s\n", rec.OverallScore, Escape(rec.Summary))

	if rec.IsFallback() {
		b.WriteString("\n_The model answer could not be read. Review each area below._\n")
		for _, d := range rec.Dimensions {
			fmt.Fprintf(&b, "\n*%s* (%d)\n", Escape(d.Name), d.Score)
			for _, is := range d.Issues {
				fmt.Fprintf(&b, "• %s\n", Escape(is))
			}
			for _, r := range d.Recommendations {
				fmt.Fprintf(&b, "→ %s\n", Escape(r))
			}
		}
		return strings.TrimRight(b.String(), "\n")
	}

	if len(rec.Barriers) > 0 {
		b.WriteString("\n*Barriers*\n")
		for i, br := range rec.Barriers {
			fmt.Fprintf(&b, "\n%d. *%s* [%s]\n", i+1, Escape(br.Category), br.Severity)
			if br.Issue != "" {
				fmt.Fprintf(&b, "Issue: %s\n", Escape(br.Issue))
			}
			if br.Impact != "" {
				fmt.Fprintf(&b, "Impact: %s\n", Escape(br.Impact))
			}
			for _, s := range br.Suggestions {
				fmt.Fprintf(&b, "→ %s\n", Escape(s))
			}
			if u := ScholarURL(br.ResearchBasis); u != "" {
				fmt.Fprintf(&b, "[Research: %s](%s)\n", escapeLinkText(br.ResearchBasis), u)
			}
		}
	}
	writeList(&b, "Strengths", rec.Strengths)
	writeList(&b, "Recommendations", rec.Recommendations)
	if s := strings.TrimSpace(rec.ReformattedAssignment); s != "" {
		fmt.Fprintf(&b, "\n*Suggested rewrite*\n%s\n", Escape(s))
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n*%s*\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "• %s\n", Escape(it))
	}
}

// Escape neutralises legacy Markdown markers in model text.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}

func escapeLinkText(s string) string {
	s = Escape(s)
	return strings.ReplaceAll(s, "]", ")")
}

// Split cuts text into parts of at most max runes, preferring line breaks.
// A single line longer than max is cut hard.
func Split(text string, max int) []string {
	if max <= 0 {
		max = MaxMessageRunes
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if s := strings.TrimRight(cur.String(), "\n"); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
		n = 0
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln > max {
			flush()
		}
		for ln > max {
			r := []rune(line)
			parts = append(parts, string(r[:max]))
			line = string(r[max:])
			ln -= max
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return parts
}
