package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dgallion1/ronten/internal/doctree"
)

type fakeLister struct {
	pages map[string][]*ChildrenPage
	fail  map[string]bool
	calls []string
}

func (f *fakeLister) ListChildren(_ context.Context, id, cursor string) (*ChildrenPage, error) {
	f.calls = append(f.calls, id+"@"+cursor)
	if f.fail[id] {
		return nil, fmt.Errorf("list children %s: boom", id)
	}
	pages := f.pages[id]
	idx := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "%d", &idx)
	}
	if idx >= len(pages) {
		return &ChildrenPage{}, nil
	}
	return pages[idx], nil
}

func single(blocks ...Block) []*ChildrenPage {
	return []*ChildrenPage{{Results: blocks}}
}

func paged(pages ...[]Block) []*ChildrenPage {
	out := make([]*ChildrenPage, len(pages))
	for i, blocks := range pages {
		out[i] = &ChildrenPage{Results: blocks}
		if i < len(pages)-1 {
			next := fmt.Sprintf("%d", i+1)
			out[i].HasMore = true
			out[i].NextCursor = &next
		}
	}
	return out
}

func text(s string) *textBlock {
	return &textBlock{RichText: []RichText{{PlainText: s}}}
}

func h1(id, s string) Block {
	return Block{ID: id, Type: TypeHeading1, Heading1: text(s)}
}

func h2(id, s string) Block {
	return Block{ID: id, Type: TypeHeading2, Heading2: text(s)}
}

func h3(id, s string, children bool) Block {
	return Block{ID: id, Type: TypeHeading3, Heading3: text(s), HasChildren: children}
}

func toggle(id, s string) Block {
	return Block{ID: id, Type: TypeToggle, Toggle: text(s), HasChildren: true}
}

func para(s string) Block {
	return Block{ID: "p-" + s, Type: TypeParagraph, Paragraph: text(s)}
}

func item(s string) Block {
	return Block{ID: "li-" + s, Type: TypeBulletedListItem, BulletedListItem: text(s)}
}

func mustCategory(t *testing.T, tree *doctree.Tree, theme, category string) *doctree.Category {
	t.Helper()
	th, ok := tree.Theme(theme)
	if !ok {
		t.Fatalf("theme %q not found", theme)
	}
	c, ok := th.Category(category)
	if !ok {
		t.Fatalf("category %q not found", category)
	}
	return c
}

func TestWalk_HeadingsAndAnswers(t *testing.T) {
	lister := &fakeLister{pages: map[string][]*ChildrenPage{
		"page": paged(
			[]Block{h1("a", "Theme"), h2("b", "Cat"), h3("c", "Q1", false), toggle("t1", "解答")},
			[]Block{h3("d", "Q2", true), {ID: "cols", Type: TypeColumnList, HasChildren: true}},
		),
		"t1": single(para("line one"), item("point"), Block{ID: "img", Type: "image"}),
		"d":  single(toggle("t2", "▶ 解答を見る")),
		"t2": single(para("second")),
		"cols": single(
			Block{ID: "col", Type: TypeColumn, HasChildren: true},
		),
		"col": single(toggle("other", "メモ"), h3("e", "Q3", false), toggle("t3", "解答")),
		"other": single(
			toggle("t4", "解答"),
		),
		"t3": single(para("third")),
		"t4": single(para("nested")),
	}}

	tree, diag := NewWalker(lister, DefaultLimits, nil).Walk(context.Background(), "page")

	got := mustCategory(t, tree, "Theme", "Cat").Questions
	want := []doctree.Question{
		{Title: "Q1", Answer: "line one\n・point"},
		{Title: "Q2", Answer: "second"},
		{Title: "Q2", Answer: "nested"},
		{Title: "Q3", Answer: "third"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d questions, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("question %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	if diag.Headings != (doctree.HeadingCounts{H1: 1, H2: 1, H3: 3}) {
		t.Errorf("unexpected heading counts: %+v", diag.Headings)
	}
	if diag.TogglesFound != 4 {
		t.Errorf("expected 4 answer toggles, got %d", diag.TogglesFound)
	}
	if diag.Warning != "" || len(diag.Errors) != 0 {
		t.Errorf("unexpected warning/errors: %q %v", diag.Warning, diag.Errors)
	}
	if diag.Requests != len(lister.calls) {
		t.Errorf("expected %d requests, got %d", len(lister.calls), diag.Requests)
	}
}

func TestWalk_AnswerWithoutHeadings(t *testing.T) {
	lister := &fakeLister{pages: map[string][]*ChildrenPage{
		"page": single(toggle("t", "解答")),
		"t":    single(para("orphan")),
	}}

	tree, _ := NewWalker(lister, DefaultLimits, nil).Walk(context.Background(), "page")

	got := mustCategory(t, tree, doctree.Uncategorized, doctree.Uncategorized).Questions
	if len(got) != 1 || got[0].Title != doctree.NoHeading || got[0].Answer != "orphan" {
		t.Errorf("unexpected questions: %+v", got)
	}
}

func TestWalk_RequestCeiling(t *testing.T) {
	lister := &endlessLister{}

	_, diag := NewWalker(lister, Limits{MaxRequests: 5, MaxDepth: 10}, nil).Walk(context.Background(), "page")

	if lister.calls != 5 {
		t.Errorf("expected 5 calls, got %d", lister.calls)
	}
	if diag.Requests != 5 {
		t.Errorf("expected 5 requests, got %d", diag.Requests)
	}
	if !strings.Contains(diag.Warning, "5") {
		t.Errorf("expected ceiling warning, got %q", diag.Warning)
	}
}

func TestWalk_RetriesChargedToCeiling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, diag := NewWalker(testClient(srv.URL, 3), Limits{MaxRequests: 2, MaxDepth: 10}, nil).
		Walk(context.Background(), "page")

	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 HTTP calls within a ceiling of 2, got %d", got)
	}
	if diag.Requests != 2 {
		t.Errorf("expected 2 requests, got %d", diag.Requests)
	}
	if len(diag.Errors) != 1 || !strings.Contains(diag.Errors[0], "request ceiling") {
		t.Errorf("expected a ceiling error, got %v", diag.Errors)
	}
	if diag.Warning == "" {
		t.Error("expected ceiling warning")
	}
}

func TestWalk_AnswerSkippedAtCeiling(t *testing.T) {
	lister := &fakeLister{pages: map[string][]*ChildrenPage{
		"page": single(h1("a", "T"), h2("b", "C"), h3("c", "Q", false), toggle("t", "解答")),
		"t":    single(para("never read")),
	}}

	tree, diag := NewWalker(lister, Limits{MaxRequests: 1, MaxDepth: 10}, nil).Walk(context.Background(), "page")

	if got := mustCategory(t, tree, "T", "C").Questions; len(got) != 0 {
		t.Errorf("expected no question with an unread answer, got %+v", got)
	}
	if len(lister.calls) != 1 {
		t.Errorf("expected only the page fetch, got %v", lister.calls)
	}
	if len(diag.Errors) != 1 || !strings.Contains(diag.Errors[0], "Q") || !strings.Contains(diag.Errors[0], "answer skipped") {
		t.Errorf("expected a per-question error, got %v", diag.Errors)
	}
	if diag.TogglesFound != 1 {
		t.Errorf("expected 1 toggle found, got %d", diag.TogglesFound)
	}
}

func TestWalk_AnswerFetchFailureSkipsQuestion(t *testing.T) {
	lister := &fakeLister{
		pages: map[string][]*ChildrenPage{
			"page": single(h1("a", "T"), h2("b", "C"), h3("c", "Q1", false), toggle("t1", "解答"),
				h3("d", "Q2", false), toggle("t2", "解答")),
			"t2": single(para("second")),
		},
		fail: map[string]bool{"t1": true},
	}

	tree, diag := NewWalker(lister, DefaultLimits, nil).Walk(context.Background(), "page")

	got := mustCategory(t, tree, "T", "C").Questions
	if len(got) != 1 || got[0].Title != "Q2" || got[0].Answer != "second" {
		t.Errorf("unexpected questions: %+v", got)
	}
	if len(diag.Errors) != 1 || !strings.Contains(diag.Errors[0], "Q1") || !strings.Contains(diag.Errors[0], "boom") {
		t.Errorf("expected the failed answer reported, got %v", diag.Errors)
	}
}

// endlessLister always reports another page.
type endlessLister struct{ calls int }

func (l *endlessLister) ListChildren(_ context.Context, _, _ string) (*ChildrenPage, error) {
	l.calls++
	next := fmt.Sprintf("c%d", l.calls)
	return &ChildrenPage{Results: []Block{para("x")}, HasMore: true, NextCursor: &next}, nil
}

func TestWalk_VisitedBlocksNotRefetched(t *testing.T) {
	loop := Block{ID: "page", Type: TypeSyncedBlock, HasChildren: true}
	lister := &fakeLister{pages: map[string][]*ChildrenPage{
		"page": single(loop, loop),
	}}

	_, diag := NewWalker(lister, DefaultLimits, nil).Walk(context.Background(), "page")

	if len(lister.calls) != 1 {
		t.Errorf("expected a single fetch, got %v", lister.calls)
	}
	if diag.Warning != "" {
		t.Errorf("unexpected warning %q", diag.Warning)
	}
}

func TestWalk_DepthCap(t *testing.T) {
	pages := map[string][]*ChildrenPage{}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("n%d", i)
		child := fmt.Sprintf("n%d", i+1)
		pages[id] = single(Block{ID: child, Type: TypeColumn, HasChildren: true})
	}
	lister := &fakeLister{pages: pages}

	NewWalker(lister, Limits{MaxRequests: 100, MaxDepth: 2}, nil).Walk(context.Background(), "n0")

	want := []string{"n0@", "n1@", "n2@"}
	if strings.Join(lister.calls, ",") != strings.Join(want, ",") {
		t.Errorf("expected calls %v, got %v", want, lister.calls)
	}
}

func TestWalk_FailedBranchSkipped(t *testing.T) {
	lister := &fakeLister{
		pages: map[string][]*ChildrenPage{
			"page": single(h1("a", "T"), h2("b", "C"), h3("bad", "Broken", true), h3("c", "Q", false), toggle("t", "解答")),
			"t":    single(para("ok")),
		},
		fail: map[string]bool{"bad": true},
	}

	tree, diag := NewWalker(lister, DefaultLimits, nil).Walk(context.Background(), "page")

	got := mustCategory(t, tree, "T", "C").Questions
	if len(got) != 1 || got[0].Answer != "ok" {
		t.Errorf("unexpected questions: %+v", got)
	}
	if len(diag.Errors) != 1 || !strings.Contains(diag.Errors[0], "boom") {
		t.Errorf("expected one branch error, got %v", diag.Errors)
	}
}

func TestBudget(t *testing.T) {
	b := newBudget(Limits{MaxRequests: 2, MaxDepth: 1})

	if !b.enter("a", 0) {
		t.Fatal("expected root to be entered")
	}
	if b.enter("a", 0) {
		t.Error("visited block entered twice")
	}
	if b.enter("deep", 2) {
		t.Error("block beyond depth cap entered")
	}
	if b.enter("deep", 1) {
		t.Error("block rejected for depth stays visited")
	}
	if !b.spend() || !b.spend() {
		t.Fatal("expected two requests within budget")
	}
	if b.spend() {
		t.Error("request beyond ceiling allowed")
	}
	if b.enter("fresh", 0) {
		t.Error("exhausted budget admitted a new block")
	}
}

func TestSource_RequiresToken(t *testing.T) {
	s := NewSource(NewClient(ClientConfig{}, nil, nil), "page", DefaultLimits, nil)
	if _, _, err := s.Fetch(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}
