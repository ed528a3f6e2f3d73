package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/ronten/internal/doctree"
)

// CSVParser handles flat question lists with a header row naming at least
// the theme, category, title and answer columns. Heading events are only
// emitted when a value changes from the previous row.
type CSVParser struct{}

var csvColumns = []string{"theme", "category", "title", "answer"}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Fragment, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	b := NewBuilder(filename)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return b.Fragment(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range csvColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("parse csv: missing %q column", name)
		}
	}
	field := func(row []string, name string) string {
		if i := col[name]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var theme, category string
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: row %d: %w", line, err)
		}

		if t := field(row, "theme"); t != "" && t != theme {
			theme, category = t, ""
			b.Apply(heading(1, t))
		}
		if c := field(row, "category"); c != "" && c != category {
			category = c
			b.Apply(heading(2, c))
		}
		if title := field(row, "title"); title != "" {
			b.Apply(heading(3, title))
		}
		for _, l := range strings.Split(field(row, "answer"), "\n") {
			b.Apply(body(strings.TrimSpace(l)))
		}
	}
	return b.Fragment(), nil
}
