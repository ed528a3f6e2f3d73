package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/ronten/internal/doctree"
)

// OutlineParser handles line-oriented outline files (.md, .markdown, .txt):
// "# " themes, "## " categories, "### " questions, everything else answer text.
type OutlineParser struct{}

func (p *OutlineParser) Parse(r io.Reader, filename string) (*doctree.Fragment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := NewBuilder(filename)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !utf8.ValidString(line) {
			return nil, fmt.Errorf("line %d: invalid UTF-8", lineNo)
		}
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		b.Line(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
	}
	return b.Fragment(), nil
}
