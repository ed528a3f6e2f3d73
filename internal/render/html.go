// Package render turns judged answers into HTML and terminal output.
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/dgallion1/ronten/internal/judge"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Inline styles per span tag. Missing text is red and bold; extra text is
// blue and struck through.
var spanStyle = map[judge.Tag]string{
	judge.Equal:   "color: #333;",
	judge.Extra:   "background-color: #dbeafe; color: #1e40af; text-decoration: line-through;",
	judge.Missing: "background-color: #fee2e2; color: #991b1b; font-weight: bold;",
}

const diffBoxStyle = "font-family: monospace; white-space: pre-wrap; line-height: 1.5; " +
	"background-color: #f8f9fa; padding: 10px; border-radius: 5px; border: 1px solid #ddd;"

// DiffHTML renders spans as a styled block. Text is escaped and newlines
// become <br>.
func DiffHTML(spans []judge.Span) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<div class=\"diff\" style=\"%s\">", diffBoxStyle)
	for _, sp := range spans {
		text := strings.ReplaceAll(html.EscapeString(sp.Text), "\n", "<br>")
		fmt.Fprintf(&sb, "<span class=\"diff-%s\" style=\"%s\">%s</span>", sp.Tag, spanStyle[sp.Tag], text)
	}
	sb.WriteString("</div>")
	return sb.String()
}

// Legend explains the diff colors.
func Legend() string {
	return fmt.Sprintf("<span style=\"%s\">不足（赤）</span> / <span style=\"%s\">余分（青）</span>",
		spanStyle[judge.Missing], spanStyle[judge.Extra])
}

var md = goldmark.New(
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// AnswerHTML renders a reference answer. Answers are written as outline body
// text, so single newlines are kept as line breaks. Raw HTML in the source is
// not passed through.
func AnswerHTML(answer string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(answer), &buf); err != nil {
		return "", fmt.Errorf("render answer: %w", err)
	}
	return buf.String(), nil
}
