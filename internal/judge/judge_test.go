package judge

import (
	"math"
	"testing"
)

func TestJudge_Perfect(t *testing.T) {
	j := New("")
	if j.Method() != MethodBlocks {
		t.Errorf("default method = %q, want %q", j.Method(), MethodBlocks)
	}

	a := j.Judge("内国法人とは、国内に本店を有する法人をいう。", "内国法人とは、国内に本店を有する法人をいう。")
	if !a.Perfect || a.Score != 100 {
		t.Errorf("expected a perfect 100, got score %v perfect %v", a.Score, a.Perfect)
	}
	if a.Summary.Extra != 0 || a.Summary.Missing != 0 {
		t.Errorf("unexpected summary: %+v", a.Summary)
	}
}

func TestJudge_Partial(t *testing.T) {
	a := New(MethodBlocks).Judge("abcd", "abce")
	if a.Perfect {
		t.Error("partial answer marked perfect")
	}
	if math.Abs(a.Score-75) > 1e-9 {
		t.Errorf("score = %v, want 75", a.Score)
	}
	if a.Candidate != "abcd" {
		t.Errorf("candidate = %q", a.Candidate)
	}
	if want := (Summary{Equal: 3, Extra: 1, Missing: 1}); a.Summary != want {
		t.Errorf("summary = %+v, want %+v", a.Summary, want)
	}
}

func TestJudge_EmptyAnswer(t *testing.T) {
	a := New(MethodIndel).Judge("", "reference")
	if a.Score != 0 {
		t.Errorf("score = %v, want 0", a.Score)
	}
	assertSpans(t, a.Spans, []Span{{Tag: Missing, Text: "reference"}})
}
