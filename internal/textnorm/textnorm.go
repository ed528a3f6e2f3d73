// Package textnorm canonicalizes answer text before it is scored or diffed.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// spaceRemover strips both ASCII and ideographic spaces. Tabs and newlines are kept.
var spaceRemover = strings.NewReplacer(" ", "", "　", "")

// Normalize applies NFKC and removes space characters so that full-width vs
// half-width input and spacing style never affect a comparison.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	out := spaceRemover.Replace(norm.NFKC.String(text))
	// Dropping a space can leave a combining mark next to a new base character.
	if !norm.NFKC.IsNormalString(out) {
		out = spaceRemover.Replace(norm.NFKC.String(out))
	}
	return out
}
