package notion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/ronten/internal/doctree"
)

// AnswerMarker marks a toggle block whose children hold the reference answer.
const AnswerMarker = "解答"

// bullet prefixes bulleted list items inside answers.
const bullet = "・"

var (
	// ErrNoToken is returned when no API token is configured.
	ErrNoToken = errors.New("notion: API token is not set")
	// ErrRequestCeiling is returned when a request would exceed the
	// traversal's request ceiling.
	ErrRequestCeiling = errors.New("notion: request ceiling reached")
)

type retryGateKey struct{}

// withRetryGate attaches a check the client consults before each retry.
// A retry is a separate HTTP request and is charged like one.
func withRetryGate(ctx context.Context, allow func() bool) context.Context {
	return context.WithValue(ctx, retryGateKey{}, allow)
}

func retryAllowed(ctx context.Context) bool {
	allow, ok := ctx.Value(retryGateKey{}).(func() bool)
	return !ok || allow()
}

// ChildLister fetches one page of a block's children.
type ChildLister interface {
	ListChildren(ctx context.Context, blockID, cursor string) (*ChildrenPage, error)
}

// Limits bounds a single page-tree traversal.
type Limits struct {
	MaxRequests int
	MaxDepth    int
}

// DefaultLimits is a request ceiling of 200 and a depth cap of 10.
var DefaultLimits = Limits{MaxRequests: 200, MaxDepth: 10}

// Diagnostics reports what a traversal saw.
type Diagnostics struct {
	TotalBlocks  int                   `json:"total_blocks"`
	Headings     doctree.HeadingCounts `json:"headings"`
	TogglesFound int                   `json:"toggles_found"`
	Requests     int                   `json:"requests"`
	Errors       []string              `json:"errors,omitempty"`
	Warning      string                `json:"warning,omitempty"`
}

// budget is the traversal context: visited blocks and the request ceiling.
type budget struct {
	visited  map[string]bool
	requests int
	limits   Limits
}

func newBudget(l Limits) *budget {
	if l.MaxRequests <= 0 {
		l.MaxRequests = DefaultLimits.MaxRequests
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultLimits.MaxDepth
	}
	return &budget{visited: make(map[string]bool), limits: l}
}

// enter marks id as visited and reports whether it may be traversed.
func (b *budget) enter(id string, depth int) bool {
	if b.visited[id] || b.exhausted() {
		return false
	}
	b.visited[id] = true
	return depth <= b.limits.MaxDepth
}

// spend counts one request and reports whether it was within the ceiling.
func (b *budget) spend() bool {
	if b.exhausted() {
		return false
	}
	b.requests++
	return true
}

func (b *budget) exhausted() bool {
	return b.requests >= b.limits.MaxRequests
}

// frame is one block whose children are being walked.
type frame struct {
	id      string
	depth   int
	cursor  string
	pending []Block
	fetched bool
	more    bool
}

// heading context while walking a page.
type position struct {
	theme    string
	category string
	question string
}

// Walker converts a page's block tree into a study tree.
type Walker struct {
	lister ChildLister
	limits Limits
	logger *slog.Logger
}

func NewWalker(lister ChildLister, limits Limits, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{lister: lister, limits: limits, logger: logger}
}

// Walk traverses the page depth-first in document order. Fetch failures
// stop descent into that branch and are reported in the diagnostics; the
// request ceiling yields a partial tree with a warning.
func (w *Walker) Walk(ctx context.Context, pageID string) (*doctree.Tree, Diagnostics) {
	tree := doctree.New()
	var diag Diagnostics
	bud := newBudget(w.limits)
	ctx = withRetryGate(ctx, bud.spend)
	var pos position

	var stack []*frame
	push := func(id string, depth int) {
		if bud.enter(id, depth) {
			stack = append(stack, &frame{id: id, depth: depth})
		}
	}
	push(pageID, 0)

	for len(stack) > 0 {
		if ctx.Err() != nil {
			diag.Errors = append(diag.Errors, ctx.Err().Error())
			break
		}
		f := stack[len(stack)-1]

		if len(f.pending) == 0 {
			if f.fetched && !f.more {
				stack = stack[:len(stack)-1]
				continue
			}
			if !bud.spend() {
				stack = stack[:len(stack)-1]
				continue
			}
			page, err := w.lister.ListChildren(ctx, f.id, f.cursor)
			if err != nil {
				w.logger.Error("error traversing block", "block_id", f.id, "error", err)
				diag.Errors = append(diag.Errors, err.Error())
				stack = stack[:len(stack)-1]
				continue
			}
			f.pending = page.Results
			f.cursor = page.Cursor()
			f.more = page.HasMore && f.cursor != ""
			f.fetched = true
			continue
		}

		b := f.pending[0]
		f.pending = f.pending[1:]
		diag.TotalBlocks++

		if w.visit(ctx, tree, &pos, &diag, bud, b) && b.HasChildren {
			push(b.ID, f.depth+1)
		}
	}

	diag.Requests = bud.requests
	if bud.exhausted() {
		diag.Warning = fmt.Sprintf("request ceiling (%d) reached; scan stopped early", bud.limits.MaxRequests)
		w.logger.Warn("notion traversal truncated", "page_id", pageID, "requests", bud.requests)
	}
	return tree, diag
}

// visit applies one block and reports whether its children should be walked.
func (w *Walker) visit(ctx context.Context, tree *doctree.Tree, pos *position, diag *Diagnostics, bud *budget, b Block) bool {
	switch b.Type {
	case TypeHeading1:
		text := b.Text()
		if text == "" {
			return false
		}
		*pos = position{theme: text}
		diag.Headings.H1++
		tree.EnsureTheme(text)
		return true

	case TypeHeading2:
		text := b.Text()
		if text == "" {
			return false
		}
		if pos.theme == "" {
			pos.theme = doctree.Uncategorized
		}
		pos.category, pos.question = text, ""
		diag.Headings.H2++
		tree.EnsureTheme(pos.theme).EnsureCategory(text)
		return true

	case TypeHeading3:
		text := b.Text()
		if text == "" {
			return false
		}
		pos.question = text
		diag.Headings.H3++
		return true

	case TypeToggle:
		if !strings.Contains(b.Text(), AnswerMarker) {
			return true
		}
		diag.TogglesFound++
		title := pos.question
		if title == "" {
			title = doctree.NoHeading
		}
		theme, category := pos.theme, pos.category
		if theme == "" {
			theme = doctree.Uncategorized
		}
		if category == "" {
			category = doctree.Uncategorized
		}
		answer, err := w.answer(ctx, bud, b.ID)
		if err != nil {
			w.logger.Error("error reading answer toggle", "block_id", b.ID, "question", title, "error", err)
			diag.Errors = append(diag.Errors, fmt.Sprintf("%s / %s / %s: answer skipped: %v", theme, category, title, err))
			return false
		}
		cat := tree.EnsureTheme(theme).EnsureCategory(category)
		cat.Questions = append(cat.Questions, doctree.Question{Title: title, Answer: answer})
		return false
	}

	return isContainer(b.Type)
}

// answer collects paragraph and bullet text beneath an answer toggle, one
// line per block. An answer that cannot be read in full is an error.
func (w *Walker) answer(ctx context.Context, bud *budget, toggleID string) (string, error) {
	var lines []string
	cursor := ""
	for {
		if !bud.spend() {
			return "", ErrRequestCeiling
		}
		page, err := w.lister.ListChildren(ctx, toggleID, cursor)
		if err != nil {
			return "", err
		}
		for _, child := range page.Results {
			text := child.Text()
			if text == "" {
				continue
			}
			switch child.Type {
			case TypeParagraph:
				lines = append(lines, text)
			case TypeBulletedListItem:
				lines = append(lines, bullet+text)
			}
		}
		cursor = page.Cursor()
		if !page.HasMore || cursor == "" {
			break
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Source loads the study tree from a single remote page.
type Source struct {
	client *Client
	pageID string
	limits Limits
	logger *slog.Logger
}

func NewSource(client *Client, pageID string, limits Limits, logger *slog.Logger) *Source {
	return &Source{client: client, pageID: pageID, limits: limits, logger: logger}
}

// Name identifies the source in diagnostics.
func (s *Source) Name() string {
	return "notion:" + s.pageID
}

// Fetch walks the configured page.
func (s *Source) Fetch(ctx context.Context) (*doctree.Tree, Diagnostics, error) {
	if s.client == nil || s.client.cfg.Token == "" {
		return nil, Diagnostics{}, ErrNoToken
	}
	if s.pageID == "" {
		return nil, Diagnostics{}, errors.New("notion: page id is not set")
	}
	tree, diag := NewWalker(s.client, s.limits, s.logger).Walk(ctx, s.pageID)
	return tree, diag, nil
}
