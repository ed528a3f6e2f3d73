package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dgallion1/ronten/internal/render"
	"github.com/dgallion1/ronten/internal/session"
)

// sessionResponse adds rendered diffs, keyed by question index, to a view.
type sessionResponse struct {
	session.View
	Diffs map[int]string `json:"diffs,omitempty"`
}

func (s *Server) writeView(w http.ResponseWriter, code int, v session.View) {
	resp := sessionResponse{View: v}
	for _, q := range v.Questions {
		if q.Attempt == nil {
			continue
		}
		if resp.Diffs == nil {
			resp.Diffs = make(map[int]string)
		}
		resp.Diffs[q.Index] = render.DiffHTML(q.Attempt.Spans)
	}
	writeJSON(w, code, resp)
}

func (s *Server) writeResult(w http.ResponseWriter, v session.View, err error) {
	if err != nil {
		jsonError(w, err.Error(), sessionStatus(err))
		return
	}
	s.writeView(w, http.StatusOK, v)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s.writeView(w, http.StatusCreated, s.deps.Sessions.Create())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Sessions.Get(r.Context(), pathParam(r, "sessionID"))
	s.writeResult(w, v, err)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Delete(pathParam(r, "sessionID")); err != nil {
		jsonError(w, err.Error(), sessionStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := s.deps.Sessions.SelectTheme(r.Context(), pathParam(r, "sessionID"), req.Theme)
	s.writeResult(w, v, err)
}

func (s *Server) handleStartWriting(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Sessions.StartWriting(r.Context(), pathParam(r, "sessionID"))
	s.writeResult(w, v, err)
}

func (s *Server) handleSelectCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := s.deps.Sessions.SelectCategory(r.Context(), pathParam(r, "sessionID"), req.Category)
	s.writeResult(w, v, err)
}

func (s *Server) handleNextCategory(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Sessions.NextCategory(r.Context(), pathParam(r, "sessionID"))
	s.writeResult(w, v, err)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Sessions.Back(r.Context(), pathParam(r, "sessionID"))
	s.writeResult(w, v, err)
}

type answerRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.handleAnswer(w, r, s.deps.Sessions.Submit)
}

func (s *Server) handleResubmit(w http.ResponseWriter, r *http.Request) {
	s.handleAnswer(w, r, s.deps.Sessions.Resubmit)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, id string, index int, input string) (session.View, error)) {
	index, ok := questionIndex(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := action(r.Context(), pathParam(r, "sessionID"), index, req.Input)
	s.writeResult(w, v, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	index, ok := questionIndex(w, r)
	if !ok {
		return
	}
	v, err := s.deps.Sessions.Reset(r.Context(), pathParam(r, "sessionID"), index)
	s.writeResult(w, v, err)
}

func questionIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(pathParam(r, "index"))
	if err != nil {
		jsonError(w, "question index must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}
