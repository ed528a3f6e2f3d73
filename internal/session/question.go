package session

import (
	"fmt"

	"github.com/dgallion1/ronten/internal/judge"
)

// QuestionState is the judging state of a single question.
type QuestionState string

const (
	Unanswered QuestionState = "unanswered"
	Judged     QuestionState = "judged"
)

// Question tracks a learner's work on one question. The zero value is
// Unanswered with no input.
type Question struct {
	State   QuestionState
	Input   string
	Attempt *judge.Attempt
}

func (q *Question) state() QuestionState {
	if q.State == "" {
		return Unanswered
	}
	return q.State
}

// Submit judges the first answer. Only valid while Unanswered.
func (q *Question) Submit(j *judge.Judge, input, reference string) error {
	if q.state() != Unanswered {
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, q.state())
	}
	q.judge(j, input, reference)
	return nil
}

// Resubmit judges an edited answer. Only valid once Judged.
func (q *Question) Resubmit(j *judge.Judge, input, reference string) error {
	if q.state() != Judged {
		return fmt.Errorf("%w: resubmit from %s", ErrInvalidTransition, q.state())
	}
	q.judge(j, input, reference)
	return nil
}

// Reset clears the input and returns the question to Unanswered.
func (q *Question) Reset() {
	*q = Question{State: Unanswered}
}

func (q *Question) judge(j *judge.Judge, input, reference string) {
	a := j.Judge(input, reference)
	q.State = Judged
	q.Input = input
	q.Attempt = &a
}
