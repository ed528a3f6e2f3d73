package api

import (
	"net/http"

	"github.com/dgallion1/ronten/internal/doctree"
	"github.com/dgallion1/ronten/internal/judge"
	"github.com/dgallion1/ronten/internal/render"
)

type themeSummary struct {
	Title      string `json:"title"`
	Categories int    `json:"categories"`
	Questions  int    `json:"questions"`
}

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	tree := s.deps.Content.Tree()
	themes := make([]themeSummary, 0, len(tree.Themes))
	for _, th := range tree.Themes {
		sum := themeSummary{Title: th.Title, Categories: len(th.Categories)}
		for _, c := range th.Categories {
			sum.Questions += len(c.Questions)
		}
		themes = append(themes, sum)
	}
	writeJSON(w, http.StatusOK, map[string]any{"themes": themes})
}

type categoryOutline struct {
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
}

// handleGetTheme returns the theme outline without answers.
func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	th, ok := s.deps.Content.Tree().Theme(pathParam(r, "theme"))
	if !ok {
		jsonError(w, "theme not found", http.StatusNotFound)
		return
	}
	cats := make([]categoryOutline, 0, len(th.Categories))
	for _, c := range th.Categories {
		co := categoryOutline{Title: c.Title, Questions: make([]string, 0, len(c.Questions))}
		for _, q := range c.Questions {
			co.Questions = append(co.Questions, q.Title)
		}
		cats = append(cats, co)
	}
	writeJSON(w, http.StatusOK, map[string]any{"title": th.Title, "categories": cats})
}

type questionDetail struct {
	Index      int    `json:"index"`
	Title      string `json:"title"`
	Answer     string `json:"answer"`
	AnswerHTML string `json:"answer_html"`
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.lookupCategory(pathParam(r, "theme"), pathParam(r, "category"))
	if !ok {
		jsonError(w, "category not found", http.StatusNotFound)
		return
	}
	out := make([]questionDetail, 0, len(cat.Questions))
	for i, q := range cat.Questions {
		rendered, err := render.AnswerHTML(q.Answer)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, questionDetail{Index: i, Title: q.Title, Answer: q.Answer, AnswerHTML: rendered})
	}
	writeJSON(w, http.StatusOK, map[string]any{"title": cat.Title, "questions": out})
}

func (s *Server) lookupCategory(theme, category string) (*doctree.Category, bool) {
	th, ok := s.deps.Content.Tree().Theme(theme)
	if !ok {
		return nil, false
	}
	return th.Category(category)
}

type judgeRequest struct {
	Candidate string `json:"candidate"`

	// Either Reference, or Theme/Category/Index naming a stored question.
	Reference *string `json:"reference,omitempty"`
	Theme     string  `json:"theme,omitempty"`
	Category  string  `json:"category,omitempty"`
	Index     *int    `json:"index,omitempty"`
}

type judgeResponse struct {
	judge.Attempt
	Method   judge.Method `json:"method"`
	DiffHTML string       `json:"diff_html"`
	Legend   string       `json:"legend"`
}

// handleJudge scores a candidate without touching any session.
func (s *Server) handleJudge(w http.ResponseWriter, r *http.Request) {
	var req judgeRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var reference string
	switch {
	case req.Reference != nil:
		reference = *req.Reference
	case req.Index != nil:
		cat, ok := s.lookupCategory(req.Theme, req.Category)
		if !ok {
			jsonError(w, "category not found", http.StatusNotFound)
			return
		}
		if *req.Index < 0 || *req.Index >= len(cat.Questions) {
			jsonError(w, "question index out of range", http.StatusBadRequest)
			return
		}
		reference = cat.Questions[*req.Index].Answer
	default:
		jsonError(w, "reference or theme/category/index is required", http.StatusBadRequest)
		return
	}

	a := s.deps.Judge.Judge(req.Candidate, reference)
	s.deps.Metrics.RecordJudgement(string(s.deps.Judge.Method()), a.Score, a.Perfect)
	writeJSON(w, http.StatusOK, judgeResponse{
		Attempt:  a,
		Method:   s.deps.Judge.Method(),
		DiffHTML: render.DiffHTML(a.Spans),
		Legend:   render.Legend(),
	})
}
