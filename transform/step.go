// Package transform changes post documents through steps: atomic,
// invertible changes whose effect on positions is recorded in step maps, so
// that positions taken before a change can be carried over it.
package transform

import (
	"fmt"

	"github.com/gamedesk/richedit/model"
)

// Step is an atomic change. Its positions refer to the document it was made
// for.
type Step interface {
	// Apply returns the changed document, or a failed result when the step
	// does not fit doc.
	Apply(doc *model.Node) StepResult
	// GetMap tells how the step moves positions.
	GetMap() *StepMap
	// Invert returns the step undoing this one, given the document the step
	// applied to.
	Invert(doc *model.Node) Step
	// Map moves the step over another change. It returns nil when the change
	// deleted what the step was about.
	Map(mapping Mappable) Step
	// Merge combines the step with one applied right after it, when a
	// single step can do both.
	Merge(other Step) (Step, bool)
}

// StepResult holds the document made by a step, or why it failed.
type StepResult struct {
	Doc    *model.Node
	Failed string
}

// OK is a successful result.
func OK(doc *model.Node) StepResult {
	return StepResult{Doc: doc}
}

// Fail is a failed result.
func Fail(message string) StepResult {
	return StepResult{Failed: message}
}

// FromReplace replaces from-to in doc with slice, turning an error into a
// failed result.
func FromReplace(doc *model.Node, from, to int, slice *model.Slice) StepResult {
	replaced, err := doc.Replace(from, to, slice)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(replaced)
}

// StepError is returned by Transform.Step when a step can not be applied.
type StepError struct {
	Step    Step
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%T failed: %s", e.Step, e.Message)
}
