package render

import (
	"io"
	"strings"

	"github.com/dgallion1/ronten/internal/judge"
	"github.com/fatih/color"
)

// Terminal writes diffs with ANSI colors. With color disabled, extra and
// missing runs are bracketed so the output stays readable.
type Terminal struct {
	equal   *color.Color
	extra   *color.Color
	missing *color.Color
	plain   bool
}

func NewTerminal(useColor bool) *Terminal {
	t := &Terminal{
		equal:   color.New(color.Reset),
		extra:   color.New(color.FgBlue, color.CrossedOut),
		missing: color.New(color.FgRed, color.Bold),
		plain:   !useColor,
	}
	if useColor {
		t.equal.EnableColor()
		t.extra.EnableColor()
		t.missing.EnableColor()
	}
	return t
}

// Diff writes spans to w.
func (t *Terminal) Diff(w io.Writer, spans []judge.Span) error {
	var sb strings.Builder
	for _, sp := range spans {
		switch {
		case t.plain && sp.Tag == judge.Extra:
			sb.WriteString("[-" + sp.Text + "-]")
		case t.plain && sp.Tag == judge.Missing:
			sb.WriteString("{+" + sp.Text + "+}")
		case t.plain:
			sb.WriteString(sp.Text)
		case sp.Tag == judge.Extra:
			sb.WriteString(t.extra.Sprint(sp.Text))
		case sp.Tag == judge.Missing:
			sb.WriteString(t.missing.Sprint(sp.Text))
		default:
			sb.WriteString(t.equal.Sprint(sp.Text))
		}
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}
