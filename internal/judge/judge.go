// Package judge scores a typed answer against its reference text and explains
// the difference as tagged character spans.
package judge

// Attempt is the outcome of judging one answer. It is recomputed on every
// submission and never persisted.
type Attempt struct {
	Candidate string  `json:"candidate"`
	Score     float64 `json:"score"`
	Perfect   bool    `json:"perfect"`
	Spans     []Span  `json:"spans"`
	Summary   Summary `json:"summary"`
}

// Judge scores answers with a fixed method.
type Judge struct {
	method Method
}

func New(method Method) *Judge {
	if method == "" {
		method = MethodBlocks
	}
	return &Judge{method: method}
}

// Method returns the scoring method in use.
func (j *Judge) Method() Method {
	return j.method
}

// Judge scores candidate against reference and builds the diff.
func (j *Judge) Judge(candidate, reference string) Attempt {
	score := ScoreWith(j.method, candidate, reference)
	spans := Diff(reference, candidate)
	return Attempt{
		Candidate: candidate,
		Score:     score,
		Perfect:   score == 100,
		Spans:     spans,
		Summary:   Summarize(spans),
	}
}
