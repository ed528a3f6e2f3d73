package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/ronten/internal/doctree"
	"github.com/dgallion1/ronten/internal/judge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTree struct{ tree *doctree.Tree }

func (s staticTree) Tree() *doctree.Tree { return s.tree }

type fakeLedger struct {
	mu      sync.Mutex
	credits []float64
}

func (f *fakeLedger) Add(_ context.Context, _ time.Time, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits = append(f.credits, seconds)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func sampleTree() *doctree.Tree {
	tree := doctree.New()
	th := tree.EnsureTheme("法人税")
	c1 := th.EnsureCategory("1.納税義務者")
	c1.Questions = append(c1.Questions,
		doctree.Question{Title: "(1)内国法人", Answer: "内国法人とは、国内に本店を有する法人をいう。"},
		doctree.Question{Title: "(2)外国法人", Answer: "外国法人とは、内国法人以外の法人をいう。"},
	)
	c2 := th.EnsureCategory("2.課税所得")
	c2.Questions = append(c2.Questions, doctree.Question{Title: "(1)範囲", Answer: "全ての所得"})
	tree.EnsureTheme("空のテーマ")
	return tree
}

func newTestManager(t *testing.T) (*Manager, *clock, *fakeLedger) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)}
	led := &fakeLedger{}
	m := NewManager(staticTree{sampleTree()}, Options{
		TTL:        time.Hour,
		IdleCutoff: 30 * time.Minute,
		Judge:      judge.New(judge.MethodBlocks),
		Ledger:     led,
		Now:        clk.now,
	})
	return m, clk, led
}

func TestFlow_SelectionToWriting(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	v := m.Create()
	require.NotEmpty(t, v.ID)
	assert.Equal(t, StepSelection, v.Step)

	v, err := m.SelectTheme(ctx, v.ID, "法人税")
	require.NoError(t, err)
	assert.Equal(t, StepStructure, v.Step)
	require.Len(t, v.Structure, 2)
	assert.Equal(t, []string{"(1)内国法人", "(2)外国法人"}, v.Structure[0].Questions)

	v, err = m.StartWriting(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StepWriting, v.Step)
	assert.Equal(t, "1.納税義務者", v.Category)
	assert.Equal(t, []string{"1.納税義務者", "2.課税所得"}, v.Categories)
	assert.True(t, v.HasNext)
	require.Len(t, v.Questions, 2)
	assert.Equal(t, Unanswered, v.Questions[0].State)
	assert.Empty(t, v.Questions[0].Answer)

	v, err = m.NextCategory(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.課税所得", v.Category)
	assert.False(t, v.HasNext)

	_, err = m.NextCategory(ctx, v.ID)
	assert.ErrorIs(t, err, ErrLastCategory)

	v, err = m.SelectCategory(ctx, v.ID, "1.納税義務者")
	require.NoError(t, err)
	assert.Equal(t, "1.納税義務者", v.Category)

	v, err = m.Back(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StepSelection, v.Step)
	assert.Empty(t, v.Theme)
	assert.Empty(t, v.Category)
}

func TestFlow_Errors(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	id := m.Create().ID

	_, err := m.SelectTheme(ctx, "nope", "法人税")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.SelectTheme(ctx, id, "missing")
	assert.ErrorIs(t, err, ErrUnknownTheme)

	_, err = m.StartWriting(ctx, id)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.Submit(ctx, id, 0, "x")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.SelectTheme(ctx, id, "法人税")
	require.NoError(t, err)
	_, err = m.SelectTheme(ctx, id, "法人税")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.StartWriting(ctx, id)
	require.NoError(t, err)
	_, err = m.SelectCategory(ctx, id, "missing")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = m.Submit(ctx, id, 2, "x")
	assert.ErrorIs(t, err, ErrQuestionIndex)
	_, err = m.Submit(ctx, id, -1, "x")
	assert.ErrorIs(t, err, ErrQuestionIndex)
}

func TestFlow_EmptyTheme(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	id := m.Create().ID

	_, err := m.SelectTheme(ctx, id, "空のテーマ")
	require.NoError(t, err)
	v, err := m.StartWriting(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, v.Category)
	assert.Empty(t, v.Questions)
	assert.False(t, v.HasNext)
}

func writingSession(t *testing.T, m *Manager) string {
	t.Helper()
	ctx := context.Background()
	id := m.Create().ID
	_, err := m.SelectTheme(ctx, id, "法人税")
	require.NoError(t, err)
	_, err = m.StartWriting(ctx, id)
	require.NoError(t, err)
	return id
}

func TestQuestionLifecycle(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	id := writingSession(t, m)

	_, err := m.Resubmit(ctx, id, 0, "x")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	v, err := m.Submit(ctx, id, 0, "内国法人とは、国内に本店を有する法人")
	require.NoError(t, err)
	q := v.Questions[0]
	assert.Equal(t, Judged, q.State)
	require.NotNil(t, q.Attempt)
	assert.False(t, q.Attempt.Perfect)
	assert.Greater(t, q.Attempt.Score, 50.0)
	assert.Equal(t, "内国法人とは、国内に本店を有する法人をいう。", q.Answer)
	assert.Equal(t, Unanswered, v.Questions[1].State)

	_, err = m.Submit(ctx, id, 0, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	v, err = m.Resubmit(ctx, id, 0, "内国法人とは、国内に本店を有する法人をいう。")
	require.NoError(t, err)
	assert.True(t, v.Questions[0].Attempt.Perfect)
	assert.Equal(t, 100.0, v.Questions[0].Attempt.Score)

	v, err = m.Reset(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, Unanswered, v.Questions[0].State)
	assert.Empty(t, v.Questions[0].Input)
	assert.Nil(t, v.Questions[0].Attempt)
	assert.Empty(t, v.Questions[0].Answer)
}

func TestQuestionStateSurvivesCategorySwitch(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	id := writingSession(t, m)

	_, err := m.Submit(ctx, id, 1, "外国法人")
	require.NoError(t, err)
	_, err = m.NextCategory(ctx, id)
	require.NoError(t, err)
	v, err := m.SelectCategory(ctx, id, "1.納税義務者")
	require.NoError(t, err)

	assert.Equal(t, Judged, v.Questions[1].State)
	assert.Equal(t, "外国法人", v.Questions[1].Input)
}

func TestStudyTimeCredited(t *testing.T) {
	m, clk, led := newTestManager(t)
	ctx := context.Background()
	id := m.Create().ID

	// Time on the selection screen is not study time.
	clk.advance(5 * time.Minute)
	_, err := m.SelectTheme(ctx, id, "法人税")
	require.NoError(t, err)
	assert.Empty(t, led.credits)

	clk.advance(2 * time.Minute)
	_, err = m.StartWriting(ctx, id)
	require.NoError(t, err)

	clk.advance(45 * time.Minute)
	_, err = m.Submit(ctx, id, 0, "x")
	require.NoError(t, err)

	clk.advance(30 * time.Minute)
	_, err = m.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, []float64{120, 1800}, led.credits)
}

func TestStoreCleanup(t *testing.T) {
	m, clk, _ := newTestManager(t)
	id := m.Create().ID
	clk.advance(30 * time.Minute)
	fresh := m.Create().ID

	assert.Equal(t, 1, m.Store().Cleanup(clk.t.Add(45*time.Minute)))
	assert.Nil(t, m.Store().Get(id))
	assert.NotNil(t, m.Store().Get(fresh))

	require.NoError(t, m.Delete(fresh))
	assert.ErrorIs(t, m.Delete(fresh), ErrNotFound)
	assert.Equal(t, 0, m.Store().Len())
}

func TestQuestionFSM(t *testing.T) {
	j := judge.New(judge.MethodBlocks)
	var q Question

	require.NoError(t, q.Submit(j, "abc", "abcd"))
	assert.Equal(t, Judged, q.State)
	assert.ErrorIs(t, q.Submit(j, "abc", "abcd"), ErrInvalidTransition)
	require.NoError(t, q.Resubmit(j, "abcd", "abcd"))
	assert.True(t, q.Attempt.Perfect)

	q.Reset()
	assert.Equal(t, Unanswered, q.State)
	assert.ErrorIs(t, q.Resubmit(j, "x", "y"), ErrInvalidTransition)
}
