package parser

import (
	"strings"

	"github.com/dgallion1/ronten/internal/doctree"
)

// Event is one structural unit of an outline document. Level 1..3 marks a
// heading; Level 0 is a body line, blank when Text is empty.
type Event struct {
	Level int
	Text  string
}

func heading(level int, text string) Event { return Event{Level: level, Text: text} }
func body(text string) Event               { return Event{Text: text} }

// state is the position of the parser within the tree being built.
type state struct {
	theme    string
	category string
	question bool // a question heading is open
}

// step applies one event to tree and returns the next state.
func step(st state, tree *doctree.Tree, counts *doctree.HeadingCounts, ev Event) state {
	switch ev.Level {
	case 1:
		counts.H1++
		tree.EnsureTheme(ev.Text)
		return state{theme: ev.Text}

	case 2:
		counts.H2++
		if st.theme == "" {
			st.theme = doctree.Uncategorized
		}
		tree.EnsureTheme(st.theme).EnsureCategory(ev.Text)
		return state{theme: st.theme, category: ev.Text}

	case 3:
		counts.H3++
		if st.theme == "" {
			st.theme = doctree.Uncategorized
		}
		if st.category == "" {
			st.category = doctree.Uncategorized
		}
		cat := tree.EnsureTheme(st.theme).EnsureCategory(st.category)
		if last := cat.Last(); last != nil && last.Title == doctree.Whole {
			last.Title = doctree.Preamble
		}
		cat.Questions = append(cat.Questions, doctree.Question{Title: ev.Text})
		st.question = true
		return st
	}

	// Body text is only kept once both a theme and a category are open.
	if st.theme == "" || st.category == "" {
		return st
	}
	cat := tree.EnsureTheme(st.theme).EnsureCategory(st.category)
	if !st.question {
		if last := cat.Last(); last == nil || last.Title != doctree.Whole {
			cat.Questions = append(cat.Questions, doctree.Question{Title: doctree.Whole})
		}
	}
	last := cat.Last()
	last.Answer = appendLine(last.Answer, ev.Text)
	return st
}

// appendLine adds a body line to an answer. Leading blanks are dropped and at
// most one blank line separates paragraphs.
func appendLine(answer, line string) string {
	if line == "" {
		if answer != "" && !strings.HasSuffix(answer, "\n\n") {
			return answer + "\n"
		}
		return answer
	}
	switch {
	case answer == "":
		return line
	case strings.HasSuffix(answer, "\n"):
		return answer + line
	default:
		return answer + "\n" + line
	}
}

// Builder folds a stream of events into a Fragment.
type Builder struct {
	st   state
	frag *doctree.Fragment
}

func NewBuilder(source string) *Builder {
	return &Builder{frag: &doctree.Fragment{Source: source, Tree: doctree.New()}}
}

// Apply feeds one event to the state machine.
func (b *Builder) Apply(ev Event) {
	b.st = step(b.st, b.frag.Tree, &b.frag.Headings, ev)
}

// Line classifies a raw outline line and applies it.
func (b *Builder) Line(raw string) {
	b.Apply(classify(raw))
}

// Fragment finishes the build: every answer is trimmed of surrounding blank lines.
func (b *Builder) Fragment() *doctree.Fragment {
	b.frag.Tree.TrimAnswers()
	return b.frag
}

// classify maps an outline line to an event. Lines are trimmed first, so
// indentation never matters; "#### " and deeper are ordinary body text.
func classify(raw string) Event {
	line := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(line, "# "):
		return heading(1, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "## "):
		return heading(2, strings.TrimSpace(line[3:]))
	case strings.HasPrefix(line, "### "):
		return heading(3, strings.TrimSpace(line[4:]))
	}
	return body(line)
}
