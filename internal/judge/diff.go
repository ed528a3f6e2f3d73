package judge

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/ronten/internal/textnorm"
)

// Tag classifies a run of characters in a diff.
type Tag string

const (
	Equal   Tag = "equal"   // present in both
	Extra   Tag = "extra"   // typed by the learner but not in the reference
	Missing Tag = "missing" // in the reference but omitted by the learner
)

// Span is a contiguous run of characters sharing one Tag.
type Span struct {
	Tag  Tag    `json:"tag"`
	Text string `json:"text"`
}

// Diff aligns the normalized candidate against the normalized reference and
// returns tagged spans. Equal+Extra spans concatenate to the normalized
// candidate; Equal+Missing spans concatenate to the normalized reference.
func Diff(reference, candidate string) []Span {
	a := splitChars(textnorm.Normalize(candidate))
	b := splitChars(textnorm.Normalize(reference))

	spans := make([]Span, 0)
	add := func(tag Tag, text string) {
		if text == "" {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].Tag == tag {
			spans[n-1].Text += text
			return
		}
		spans = append(spans, Span{Tag: tag, Text: text})
	}

	for _, op := range newMatcher(a, b).GetOpCodes() {
		typed := strings.Join(a[op.I1:op.I2], "")
		want := strings.Join(b[op.J1:op.J2], "")
		switch op.Tag {
		case 'e':
			add(Equal, typed)
		case 'd':
			add(Extra, typed)
		case 'i':
			add(Missing, want)
		case 'r':
			// The shorter side goes first.
			if op.J2-op.J1 < op.I2-op.I1 {
				add(Missing, want)
				add(Extra, typed)
			} else {
				add(Extra, typed)
				add(Missing, want)
			}
		}
	}
	return spans
}

// Summary counts characters per tag.
type Summary struct {
	Equal   int `json:"equal"`
	Extra   int `json:"extra"`
	Missing int `json:"missing"`
}

// Summarize tallies the characters in spans.
func Summarize(spans []Span) Summary {
	var s Summary
	for _, sp := range spans {
		n := utf8.RuneCountInString(sp.Text)
		switch sp.Tag {
		case Equal:
			s.Equal += n
		case Extra:
			s.Extra += n
		case Missing:
			s.Missing += n
		}
	}
	return s
}

// Candidate rebuilds the normalized candidate text from spans.
func Candidate(spans []Span) string {
	return join(spans, Extra)
}

// Reference rebuilds the normalized reference text from spans.
func Reference(spans []Span) string {
	return join(spans, Missing)
}

func join(spans []Span, side Tag) string {
	var b strings.Builder
	for _, sp := range spans {
		if sp.Tag == Equal || sp.Tag == side {
			b.WriteString(sp.Text)
		}
	}
	return b.String()
}
