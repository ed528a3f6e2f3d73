// Package session runs the three-step study flow: pick a theme, recall its
// structure, then write out each answer and have it judged.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/ronten/internal/doctree"
	"github.com/dgallion1/ronten/internal/judge"
	"github.com/dgallion1/ronten/internal/ledger"
	"github.com/dgallion1/ronten/internal/metrics"
)

// TreeSource provides the current study tree.
type TreeSource interface {
	Tree() *doctree.Tree
}

// TimeLedger records study time.
type TimeLedger interface {
	Add(ctx context.Context, at time.Time, seconds float64) error
}

// Options configures a Manager.
type Options struct {
	TTL        time.Duration
	IdleCutoff time.Duration
	Judge      *judge.Judge
	Ledger     TimeLedger
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
	Now        func() time.Time
}

// Manager applies flow actions to stored sessions.
type Manager struct {
	store   *Store
	tree    TreeSource
	judge   *judge.Judge
	ledger  TimeLedger
	cutoff  time.Duration
	log     *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

func NewManager(tree TreeSource, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.IdleCutoff <= 0 {
		opts.IdleCutoff = 30 * time.Minute
	}
	if opts.Judge == nil {
		opts.Judge = judge.New(judge.MethodBlocks)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:   NewStore(opts.TTL),
		tree:    tree,
		judge:   opts.Judge,
		ledger:  opts.Ledger,
		cutoff:  opts.IdleCutoff,
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
}

// Store exposes the underlying session store.
func (m *Manager) Store() *Store {
	return m.store
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.store.Cleanup(m.now()); n > 0 {
				m.log.Info("sessions expired", "count", n)
			}
			m.metrics.RecordSessions(m.store.Len())
		}
	}
}

// Create starts a new session on the selection step.
func (m *Manager) Create() View {
	sess := newSession(m.now())
	m.store.Put(sess)
	m.metrics.RecordSessions(m.store.Len())
	return m.view(sess)
}

// Get returns a session's current view.
func (m *Manager) Get(ctx context.Context, id string) (View, error) {
	return m.do(ctx, id, func(*Session, *doctree.Tree) error { return nil })
}

// Delete drops a session.
func (m *Manager) Delete(id string) error {
	if !m.store.Delete(id) {
		return ErrNotFound
	}
	m.metrics.RecordSessions(m.store.Len())
	return nil
}

// SelectTheme picks a theme and moves to structure recall.
func (m *Manager) SelectTheme(ctx context.Context, id, theme string) (View, error) {
	return m.do(ctx, id, func(s *Session, tree *doctree.Tree) error {
		if s.Step != StepSelection {
			return fmt.Errorf("%w: select theme from %s", ErrInvalidTransition, s.Step)
		}
		if _, ok := tree.Theme(theme); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
		}
		s.Theme = theme
		s.Category = ""
		s.Step = StepStructure
		return nil
	})
}

// StartWriting moves from structure recall to writing, opening the first category.
func (m *Manager) StartWriting(ctx context.Context, id string) (View, error) {
	return m.do(ctx, id, func(s *Session, tree *doctree.Tree) error {
		if s.Step != StepStructure {
			return fmt.Errorf("%w: start writing from %s", ErrInvalidTransition, s.Step)
		}
		th, err := currentTheme(s, tree)
		if err != nil {
			return err
		}
		s.Step = StepWriting
		s.Category = ""
		if len(th.Categories) > 0 {
			s.Category = th.Categories[0].Title
		}
		return nil
	})
}

// SelectCategory switches the category being written.
func (m *Manager) SelectCategory(ctx context.Context, id, category string) (View, error) {
	return m.do(ctx, id, func(s *Session, tree *doctree.Tree) error {
		if s.Step != StepWriting {
			return fmt.Errorf("%w: select category from %s", ErrInvalidTransition, s.Step)
		}
		th, err := currentTheme(s, tree)
		if err != nil {
			return err
		}
		if _, ok := th.Category(category); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		s.Category = category
		return nil
	})
}

// NextCategory advances to the category after the current one.
func (m *Manager) NextCategory(ctx context.Context, id string) (View, error) {
	return m.do(ctx, id, func(s *Session, tree *doctree.Tree) error {
		if s.Step != StepWriting {
			return fmt.Errorf("%w: next category from %s", ErrInvalidTransition, s.Step)
		}
		th, err := currentTheme(s, tree)
		if err != nil {
			return err
		}
		i := th.CategoryIndex(s.Category)
		if i+1 >= len(th.Categories) {
			return ErrLastCategory
		}
		s.Category = th.Categories[i+1].Title
		return nil
	})
}

// Back returns to theme selection.
func (m *Manager) Back(ctx context.Context, id string) (View, error) {
	return m.do(ctx, id, func(s *Session, _ *doctree.Tree) error {
		s.Step = StepSelection
		s.Theme = ""
		s.Category = ""
		return nil
	})
}

// Submit judges the first answer to a question of the open category.
func (m *Manager) Submit(ctx context.Context, id string, index int, input string) (View, error) {
	return m.answer(ctx, id, index, func(q *Question, ref string) error {
		return q.Submit(m.judge, input, ref)
	})
}

// Resubmit judges an edited answer.
func (m *Manager) Resubmit(ctx context.Context, id string, index int, input string) (View, error) {
	return m.answer(ctx, id, index, func(q *Question, ref string) error {
		return q.Resubmit(m.judge, input, ref)
	})
}

// Reset clears a question back to unanswered.
func (m *Manager) Reset(ctx context.Context, id string, index int) (View, error) {
	return m.answer(ctx, id, index, func(q *Question, _ string) error {
		q.Reset()
		return nil
	})
}

func (m *Manager) answer(ctx context.Context, id string, index int, fn func(*Question, string) error) (View, error) {
	return m.do(ctx, id, func(s *Session, tree *doctree.Tree) error {
		if s.Step != StepWriting {
			return fmt.Errorf("%w: answer from %s", ErrInvalidTransition, s.Step)
		}
		cat, err := currentCategory(s, tree)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(cat.Questions) {
			return fmt.Errorf("%w: %d", ErrQuestionIndex, index)
		}
		q := s.question(s.Theme, s.Category, index)
		if err := fn(q, cat.Questions[index].Answer); err != nil {
			return err
		}
		if q.Attempt != nil && q.State == Judged {
			m.metrics.RecordJudgement(string(m.judge.Method()), q.Attempt.Score, q.Attempt.Perfect)
		}
		return nil
	})
}

// do runs one action under the session lock. Time since the previous
// action is credited to the ledger first when the session was studying.
func (m *Manager) do(ctx context.Context, id string, fn func(*Session, *doctree.Tree) error) (View, error) {
	sess := m.store.Get(id)
	if sess == nil {
		return View{}, ErrNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	m.credit(ctx, sess)
	if err := fn(sess, m.tree.Tree()); err != nil {
		return View{}, err
	}
	return m.viewLocked(sess), nil
}

func (m *Manager) credit(ctx context.Context, s *Session) {
	now := m.now()
	elapsed := now.Sub(s.LastAction)
	s.LastAction = now
	if !s.Step.studying() || m.ledger == nil {
		return
	}
	seconds, ok := ledger.Credit(elapsed, m.cutoff)
	if !ok {
		return
	}
	if err := m.ledger.Add(ctx, now, seconds); err != nil {
		m.log.Error("credit study time", "session_id", s.ID, "error", err)
		return
	}
	m.metrics.RecordStudySeconds(seconds)
}

func currentTheme(s *Session, tree *doctree.Tree) (*doctree.Theme, error) {
	th, ok := tree.Theme(s.Theme)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, s.Theme)
	}
	return th, nil
}

func currentCategory(s *Session, tree *doctree.Tree) (*doctree.Category, error) {
	th, err := currentTheme(s, tree)
	if err != nil {
		return nil, err
	}
	cat, ok := th.Category(s.Category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, s.Category)
	}
	return cat, nil
}
