package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/ronten/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML exports of outline notes: <h1>..<h3> are headings,
// block elements are answer lines, list items get a bullet.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Fragment, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	b := NewBuilder(filename)
	emitLines := func(prefix, text string) {
		for i, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if i == 0 {
				line = prefix + line
			}
			b.Apply(body(line))
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if title := collapseSpace(textContent(n)); title != "" {
					if level <= 3 {
						b.Apply(heading(level, title))
					} else {
						b.Apply(body(title))
					}
				}
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer":
				return
			case "li":
				emitLines(bullet, textContent(n))
				return
			case "p", "td", "blockquote", "pre":
				emitLines("", textContent(n))
				return
			case "hr":
				b.Apply(body(""))
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if root := findBody(doc); root != nil {
		walk(root)
	} else {
		walk(doc)
	}
	return b.Fragment(), nil
}

// bullet prefixes list items, matching the remote document service.
const bullet = "・"

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// textContent concatenates descendant text; <br> becomes a newline.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
