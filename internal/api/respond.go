package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dgallion1/ronten/internal/session"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathParam returns a decoded URL parameter. Titles are free text, so the
// raw path is unescaped when the router matched on it.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// sessionStatus maps flow errors to HTTP status codes.
func sessionStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrUnknownTheme),
		errors.Is(err, session.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, session.ErrQuestionIndex):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrLastCategory):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
