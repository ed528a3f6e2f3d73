package judge

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/ronten/internal/textnorm"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Method selects how similarity is computed.
type Method string

const (
	// MethodBlocks is the longest-matching-blocks ratio (Ratcliff/Obershelp).
	MethodBlocks Method = "blocks"
	// MethodIndel is the LCS-based ratio: 2*common / total characters.
	MethodIndel Method = "indel"
)

// ParseMethod validates a configured scoring method name.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodBlocks:
		return MethodBlocks, nil
	case MethodIndel:
		return MethodIndel, nil
	}
	return "", fmt.Errorf("unknown scoring method: %q", s)
}

// Score returns how closely candidate matches reference as a percentage in [0, 100].
func Score(candidate, reference string) float64 {
	return ScoreWith(MethodBlocks, candidate, reference)
}

// ScoreWith is Score with an explicit method. An empty (or all-space)
// candidate or reference always scores 0.
func ScoreWith(m Method, candidate, reference string) float64 {
	if strings.TrimSpace(candidate) == "" || strings.TrimSpace(reference) == "" {
		return 0
	}
	a := textnorm.Normalize(candidate)
	b := textnorm.Normalize(reference)
	if a == "" && b == "" {
		return 0
	}

	switch m {
	case MethodIndel:
		return indelRatio(a, b) * 100
	default:
		return newMatcher(splitChars(a), splitChars(b)).Ratio() * 100
	}
}

// newMatcher builds a character matcher with the popularity heuristic off,
// so frequent kana are never discarded as junk in long answers.
func newMatcher(a, b []string) *difflib.SequenceMatcher {
	return difflib.NewMatcherWithJunk(a, b, false, nil)
}

// splitChars splits s into one element per rune.
func splitChars(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}

func indelRatio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 0
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // no deadline: always the optimal script
	common := 0
	for _, d := range dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			common += utf8.RuneCountInString(d.Text)
		}
	}
	return 2 * float64(common) / float64(total)
}
