// Package doctree holds the three-level study tree: Theme → Category → Questions.
// Themes and categories keep the order in which they were first seen.
package doctree

import "strings"

const (
	// Uncategorized names the theme or category used when a heading is missing.
	Uncategorized = "Uncategorized"
	// Whole titles body text that appeared before any question heading.
	Whole = "(whole)"
	// Preamble replaces Whole once a real question heading follows it.
	Preamble = "(preamble)"
	// NoHeading titles a remote answer block found outside any question heading.
	NoHeading = "(no heading)"
)

// Question is a single point with its reference answer.
type Question struct {
	Title  string `json:"title"`
	Answer string `json:"answer"`
}

// Category groups the questions of one theme.
type Category struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Theme is a top-level topic.
type Theme struct {
	Title      string      `json:"title"`
	Categories []*Category `json:"categories"`

	index map[string]*Category
}

// Tree is the root of the study content.
type Tree struct {
	Themes []*Theme `json:"themes"`

	index map[string]*Theme
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{Themes: []*Theme{}, index: make(map[string]*Theme)}
}

// Theme looks up a theme by title.
func (t *Tree) Theme(title string) (*Theme, bool) {
	th, ok := t.index[title]
	return th, ok
}

// EnsureTheme returns the theme with the given title, appending it if new.
func (t *Tree) EnsureTheme(title string) *Theme {
	if th, ok := t.index[title]; ok {
		return th
	}
	if t.index == nil {
		t.index = make(map[string]*Theme)
	}
	th := &Theme{Title: title, Categories: []*Category{}, index: make(map[string]*Category)}
	t.Themes = append(t.Themes, th)
	t.index[title] = th
	return th
}

// Category looks up a category by title.
func (th *Theme) Category(title string) (*Category, bool) {
	c, ok := th.index[title]
	return c, ok
}

// EnsureCategory returns the category with the given title, appending it if new.
func (th *Theme) EnsureCategory(title string) *Category {
	if c, ok := th.index[title]; ok {
		return c
	}
	if th.index == nil {
		th.index = make(map[string]*Category)
	}
	c := &Category{Title: title, Questions: []Question{}}
	th.Categories = append(th.Categories, c)
	th.index[title] = c
	return c
}

// CategoryIndex returns the position of a category within the theme, or -1.
func (th *Theme) CategoryIndex(title string) int {
	for i, c := range th.Categories {
		if c.Title == title {
			return i
		}
	}
	return -1
}

// Last returns the final question of the category, or nil when empty.
func (c *Category) Last() *Question {
	if len(c.Questions) == 0 {
		return nil
	}
	return &c.Questions[len(c.Questions)-1]
}

// Merge folds other into t. Identical theme and category titles merge;
// question sequences are concatenated in order.
func (t *Tree) Merge(other *Tree) {
	if other == nil {
		return
	}
	for _, oth := range other.Themes {
		th := t.EnsureTheme(oth.Title)
		for _, oc := range oth.Categories {
			c := th.EnsureCategory(oc.Title)
			c.Questions = append(c.Questions, oc.Questions...)
		}
	}
}

// TrimAnswers strips leading and trailing blank space from every answer.
func (t *Tree) TrimAnswers() {
	for _, th := range t.Themes {
		for _, c := range th.Categories {
			for i := range c.Questions {
				c.Questions[i].Answer = strings.TrimSpace(c.Questions[i].Answer)
			}
		}
	}
}

// Counts reports how many themes, categories and questions the tree holds.
func (t *Tree) Counts() (themes, categories, questions int) {
	themes = len(t.Themes)
	for _, th := range t.Themes {
		categories += len(th.Categories)
		for _, c := range th.Categories {
			questions += len(c.Questions)
		}
	}
	return themes, categories, questions
}

// HeadingCounts tallies heading lines seen while building a fragment.
type HeadingCounts struct {
	H1 int `json:"h1_count"`
	H2 int `json:"h2_count"`
	H3 int `json:"h3_count"`
}

// Add accumulates o into h.
func (h *HeadingCounts) Add(o HeadingCounts) {
	h.H1 += o.H1
	h.H2 += o.H2
	h.H3 += o.H3
}

// Fragment is the tree built from a single source document.
type Fragment struct {
	Source   string
	Tree     *Tree
	Headings HeadingCounts
}
