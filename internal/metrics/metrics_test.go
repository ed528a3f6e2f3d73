package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RecordJudgement("blocks", 50, false)
	r.RecordLoad("local", "ok", 0.1)
	r.RecordQuestions(3)
	r.RecordRemoteCall("ok", 0.2)
	r.RecordRetry("status_503")
	r.RecordCircuitBreakerState("notion-api", 0)
	r.RecordSessions(1)
	r.RecordStudySeconds(12)
}

func TestRecorderExposition(t *testing.T) {
	r := NewRecorder(true)
	r.RecordQuestions(7)
	r.RecordJudgement("indel", 100, true)
	r.RecordCircuitBreakerState("notion-api", 2)

	body := scrape(t)
	for _, want := range []string{
		"ronten_questions_loaded 7",
		`ronten_judgements_total{method="indel",result="perfect"}`,
		`ronten_circuit_breaker_state{name="notion-api"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}

	NewRecorder(false).RecordQuestions(99)
	if body := scrape(t); !strings.Contains(body, "ronten_questions_loaded 7") {
		t.Error("disabled recorder changed the questions gauge")
	}
}
