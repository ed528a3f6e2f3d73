package session

import (
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrUnknownTheme      = errors.New("unknown theme")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrQuestionIndex     = errors.New("question index out of range")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrLastCategory      = errors.New("already at the last category")
)

// Step is the screen of the study flow a session is on.
type Step string

const (
	StepSelection Step = "selection"
	StepStructure Step = "structure"
	StepWriting   Step = "writing"
)

// studying reports steps whose time counts toward the ledger.
func (s Step) studying() bool {
	return s == StepStructure || s == StepWriting
}

type questionKey struct {
	theme    string
	category string
	index    int
}

// Session is one learner's walk through the study flow.
type Session struct {
	mu sync.Mutex

	ID         string
	Step       Step
	Theme      string
	Category   string
	CreatedAt  time.Time
	LastAction time.Time

	questions map[questionKey]*Question
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:         ulid.Make().String(),
		Step:       StepSelection,
		CreatedAt:  now,
		LastAction: now,
		questions:  make(map[questionKey]*Question),
	}
}

// question returns the state for a question, creating it on first use.
func (s *Session) question(theme, category string, index int) *Question {
	k := questionKey{theme, category, index}
	q, ok := s.questions[k]
	if !ok {
		q = &Question{State: Unanswered}
		s.questions[k] = q
	}
	return q
}

// peek returns the state for a question without creating it.
func (s *Session) peek(theme, category string, index int) Question {
	if q, ok := s.questions[questionKey{theme, category, index}]; ok {
		return *q
	}
	return Question{State: Unanswered}
}

// Store is a thread-safe in-memory session registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes sessions idle for longer than the TTL and returns how
// many were dropped.
func (s *Store) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.LastAction)
		sess.mu.Unlock()
		if idle > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
