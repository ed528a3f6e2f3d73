package session

import (
	"time"

	"github.com/dgallion1/ronten/internal/judge"
)

// View is a read-only, JSON-safe copy of session state for the current step.
type View struct {
	ID         string    `json:"session_id"`
	Step       Step      `json:"step"`
	Theme      string    `json:"theme,omitempty"`
	Category   string    `json:"category,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastAction time.Time `json:"last_action"`

	// Set on the structure step: the outline to recall.
	Structure []StructureCategory `json:"structure,omitempty"`

	// Set on the writing step.
	Categories []string       `json:"categories,omitempty"`
	Questions  []QuestionView `json:"questions,omitempty"`
	HasNext    bool           `json:"has_next"`
}

// StructureCategory lists the question titles of one category.
type StructureCategory struct {
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
}

// QuestionView is one question of the open category. The reference answer
// is only revealed once the question is judged.
type QuestionView struct {
	Index   int            `json:"index"`
	Title   string         `json:"title"`
	State   QuestionState  `json:"state"`
	Input   string         `json:"input"`
	Attempt *judge.Attempt `json:"attempt,omitempty"`
	Answer  string         `json:"answer,omitempty"`
}

func (m *Manager) view(s *Session) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.viewLocked(s)
}

func (m *Manager) viewLocked(s *Session) View {
	v := View{
		ID:         s.ID,
		Step:       s.Step,
		Theme:      s.Theme,
		Category:   s.Category,
		CreatedAt:  s.CreatedAt,
		LastAction: s.LastAction,
	}
	if s.Step == StepSelection {
		return v
	}

	th, ok := m.tree.Tree().Theme(s.Theme)
	if !ok {
		return v
	}

	if s.Step == StepStructure {
		v.Structure = make([]StructureCategory, 0, len(th.Categories))
		for _, c := range th.Categories {
			sc := StructureCategory{Title: c.Title, Questions: make([]string, 0, len(c.Questions))}
			for _, q := range c.Questions {
				sc.Questions = append(sc.Questions, q.Title)
			}
			v.Structure = append(v.Structure, sc)
		}
		return v
	}

	v.Categories = make([]string, 0, len(th.Categories))
	for _, c := range th.Categories {
		v.Categories = append(v.Categories, c.Title)
	}
	cat, ok := th.Category(s.Category)
	if !ok {
		return v
	}
	v.HasNext = th.CategoryIndex(s.Category) < len(th.Categories)-1
	v.Questions = make([]QuestionView, 0, len(cat.Questions))
	for i, item := range cat.Questions {
		q := s.peek(s.Theme, s.Category, i)
		qv := QuestionView{
			Index:   i,
			Title:   item.Title,
			State:   q.state(),
			Input:   q.Input,
			Attempt: q.Attempt,
		}
		if qv.State == Judged {
			qv.Answer = item.Answer
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}
