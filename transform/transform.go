package transform

import (
	"github.com/gamedesk/richedit/model"
)

// Transform is an abstraction for building up and tracking an array of
// steps representing a document transformation.
//
// Most transforming methods return an error when the change they describe
// can not be applied. In that case the transform is left as it was before
// the call.
type Transform struct {
	// The current document (the result of applying the steps in the
	// transform).
	Doc *model.Node
	// The steps in this transform.
	Steps []Step
	// The documents before each of the steps.
	Docs []*model.Node
	// A mapping with the maps for each of the steps in this transform.
	Mapping *Mapping
}

// NewTransform creates a transform that starts with the given document.
func NewTransform(doc *model.Node) *Transform {
	return &Transform{Doc: doc, Mapping: NewMapping()}
}

// Before returns the starting document.
func (tr *Transform) Before() *model.Node {
	if len(tr.Docs) > 0 {
		return tr.Docs[0]
	}
	return tr.Doc
}

// Step applies a new step in this transform, saving the result. Returns a
// *StepError when the step fails.
func (tr *Transform) Step(step Step) error {
	result := tr.MaybeStep(step)
	if result.Failed != "" {
		return &StepError{Step: step, Message: result.Failed}
	}
	return nil
}

// MaybeStep tries to apply a step in this transformation, ignoring it if it
// fails. Returns the step result.
func (tr *Transform) MaybeStep(step Step) StepResult {
	result := step.Apply(tr.Doc)
	if result.Failed == "" {
		tr.addStep(step, result.Doc)
	}
	return result
}

// DocChanged is true when the document has been changed (when there are any
// steps).
func (tr *Transform) DocChanged() bool {
	return len(tr.Steps) > 0
}

func (tr *Transform) addStep(step Step, doc *model.Node) {
	tr.Docs = append(tr.Docs, tr.Doc)
	tr.Steps = append(tr.Steps, step)
	tr.Mapping.AppendMap(step.GetMap())
	tr.Doc = doc
}

// rollback undoes the steps added after the given count.
func (tr *Transform) rollback(count int) {
	if count >= len(tr.Steps) {
		return
	}
	tr.Doc = tr.Docs[count]
	tr.Docs = tr.Docs[:count]
	tr.Steps = tr.Steps[:count]
	tr.Mapping.Maps = tr.Mapping.Maps[:count]
}

// Replace the part of the document between from and to with the given slice.
// Nothing happens when the replacement would not change the document.
func (tr *Transform) Replace(from, to int, slice *model.Slice) error {
	if slice == nil {
		slice = model.EmptySlice
	}
	if from == to && slice.Size() == 0 {
		return nil
	}
	return tr.Step(NewReplaceStep(from, to, slice))
}

// ReplaceWith replaces the given range with the given content, which may be
// a fragment, node, or array of nodes.
func (tr *Transform) ReplaceWith(from, to int, content interface{}) error {
	fragment, err := model.FragmentFrom(content)
	if err != nil {
		return err
	}
	return tr.Replace(from, to, model.NewSlice(fragment, 0, 0))
}

// Delete the content between the given positions.
func (tr *Transform) Delete(from, to int) error {
	return tr.Replace(from, to, model.EmptySlice)
}

// Insert the given content at the given position.
func (tr *Transform) Insert(pos int, content interface{}) error {
	return tr.ReplaceWith(pos, pos, content)
}

// InsertText inserts text with the given marks, replacing the range between
// from and to.
func (tr *Transform) InsertText(text string, from, to int, marks []*model.Mark) error {
	schema := tr.Doc.Type.Schema
	if text == "" {
		return tr.Delete(from, to)
	}
	return tr.ReplaceWith(from, to, schema.Text(text, marks))
}

// SetAttrs changes the attributes of the node at pos, keeping the ones not
// given.
func (tr *Transform) SetAttrs(pos int, attrs map[string]interface{}) error {
	return tr.Step(NewSetAttrsStep(pos, attrs))
}
