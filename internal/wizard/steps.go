// Package wizard implements the storefront's multi-step forms.
//
// A wizard is a linear step machine over 1..N. Moving never leaves that
// range, no step validates its fields, and a wizard can only be submitted from
// its final step. A successful submit clears the form and returns to step 1;
// a failed one keeps everything the user typed.
package wizard

import "github.com/go-faster/errors"

// ErrNotFinalStep is returned by Submit before the final step is reached.
var ErrNotFinalStep = errors.New("wizard is not at its final step")

// Steps tracks the current step of an N-step wizard.
type Steps struct {
	current int
	total   int
}

// NewSteps returns a machine positioned at step 1 of total.
func NewSteps(total int) Steps {
	return Steps{current: 1, total: max(total, 1)}
}

func (s Steps) Current() int { return s.current }
func (s Steps) Total() int   { return s.total }

// IsFinal reports whether the current step is the last one.
func (s Steps) IsFinal() bool { return s.current == s.total }

// Next advances one step unless already at the last.
func (s *Steps) Next() {
	if s.current < s.total {
		s.current++
	}
}

// Prev goes back one step unless already at the first.
func (s *Steps) Prev() {
	if s.current > 1 {
		s.current--
	}
}

// Reset returns to step 1.
func (s *Steps) Reset() {
	s.current = 1
}

// Outcome is the user-facing result of a submit.
type Outcome struct {
	OK      bool
	Message string
}
