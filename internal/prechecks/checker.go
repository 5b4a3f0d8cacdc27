// Package prechecks validates a case record before any model call is spent
// on it. An invalid case fails fast with an explicit error-status result
// instead of producing a meaningless dialogue.
package prechecks

import (
	"fmt"

	"github.com/medeval/tcm-dialogue-bench/internal/models"
)

type Checker interface {
	Name() string
	Check(cs models.CaseData) error
}

type Runner struct {
	checkers []Checker
}

func NewRunner(checkers []Checker) *Runner {
	return &Runner{checkers: checkers}
}

// Run returns the first failing check, wrapped with the checker's name.
func (r *Runner) Run(cs models.CaseData) error {
	for _, c := range r.checkers {
		if err := c.Check(cs); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}

// Default returns the checks every execution mode needs.
func Default() *Runner {
	return NewRunner([]Checker{
		&SectionChecker{},
		&GroundTruthChecker{},
	})
}
