package editor

import (
	"errors"
	"fmt"

	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/schema/cms"
	"github.com/gamedesk/richedit/transform"
)

// ImageAttrs are the attributes edited by the image modal.
type ImageAttrs struct {
	Src   string
	Alt   string
	Title string
}

// LinkAttrs are the attributes edited by the link modal. Text is the text
// of the link.
type LinkAttrs struct {
	Href   string
	Target string
	Text   string
}

// Action is the button a property modal was closed with.
type Action int

// Modal actions. Remove only applies to links.
const (
	Cancel Action = iota
	Save
	Remove
)

func (a Action) String() string {
	switch a {
	case Cancel:
		return "cancel"
	case Save:
		return "save"
	case Remove:
		return "remove"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ImageResult is what the image modal returns.
type ImageResult struct {
	Action Action
	Attrs  ImageAttrs
}

// LinkResult is what the link modal returns.
type LinkResult struct {
	Action Action
	Attrs  LinkAttrs
}

var errMissingSrc = errors.New("editor: image src is required")
var errMissingHref = errors.New("editor: link href is required")

// pendingOf returns the pending target when it has the given kind.
func (s *Session) pendingOf(kind EntityKind) (*PendingEditTarget, error) {
	if s.mode == Raw {
		return nil, ErrRawMode
	}
	if s.pending == nil {
		return nil, ErrNoPendingEdit
	}
	if s.pending.Kind != kind {
		return nil, fmt.Errorf("%w: pending %s, got %s", ErrTargetKind, s.pending.Kind, kind)
	}
	return s.pending, nil
}

// CompleteImage applies the result of the image modal to the pending image.
func (s *Session) CompleteImage(result ImageResult) error {
	target, err := s.pendingOf(EntityImage)
	if err != nil {
		return err
	}
	switch result.Action {
	case Cancel:
		s.pending = nil
		return nil
	case Save:
	default:
		return fmt.Errorf("%w: %s on an image", ErrNotApplicable, result.Action)
	}
	if result.Attrs.Src == "" {
		return errMissingSrc
	}
	s.pending = nil
	r, err := s.mapTarget(target)
	if err != nil {
		return err
	}

	doc := s.state.Doc
	attrs := map[string]interface{}{
		"src":   result.Attrs.Src,
		"alt":   result.Attrs.Alt,
		"title": result.Attrs.Title,
	}
	// A tagged image keeps its upload tag while its source stays the same.
	if old := doc.NodeAt(r.From); old.Attr("src") == result.Attrs.Src {
		attrs["upload"] = old.Attr("upload")
	}
	image, err := cms.Image.Create(attrs, nil, nil)
	if err != nil {
		return err
	}
	tr := transform.NewTransform(doc)
	if err := tr.ReplaceWith(r.From, r.To, image); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	s.logger.Debug("image saved", "range", r.String(), "src", result.Attrs.Src)
	s.commit(tr, mapSelection(s.state.Selection, tr.Mapping))
	return nil
}

// CompleteLink applies the result of the link modal to the pending link.
//
// Saving with the same text swaps the link mark and keeps the formatting of
// the text. Saving with another text replaces the range with that text,
// carrying the marks shared by the old text.
func (s *Session) CompleteLink(result LinkResult) error {
	target, err := s.pendingOf(EntityLink)
	if err != nil {
		return err
	}
	var link *model.Mark
	switch result.Action {
	case Cancel:
		s.pending = nil
		return nil
	case Save:
		if link, err = s.linkMark(result.Attrs); err != nil {
			return err
		}
	case Remove:
	default:
		return fmt.Errorf("%w: %s on a link", ErrNotApplicable, result.Action)
	}
	s.pending = nil
	r, err := s.mapTarget(target)
	if err != nil {
		return err
	}

	doc := s.state.Doc
	tr := transform.NewTransform(doc)
	switch {
	case link == nil:
		err = tr.RemoveMark(r.From, r.To, cms.Link)
	case result.Attrs.Text == "" || result.Attrs.Text == doc.TextBetween(r.From, r.To):
		err = tr.AddMark(r.From, r.To, link)
	default:
		marks := link.AddToSet(cms.Link.RemoveFromSet(commonMarks(doc, r)))
		err = tr.ReplaceWith(r.From, r.To, doc.Type.Schema.Text(result.Attrs.Text, marks))
	}
	if err != nil {
		return fmt.Errorf("%s link: %w", result.Action, err)
	}
	s.logger.Debug("link completed", "action", result.Action.String(), "range", r.String())
	s.commit(tr, mapSelection(s.state.Selection, tr.Mapping))
	return nil
}

func (s *Session) linkMark(attrs LinkAttrs) (*model.Mark, error) {
	if attrs.Href == "" {
		return nil, errMissingHref
	}
	target := attrs.Target
	if target == "" {
		target = s.cfg.Links.DefaultTarget
	}
	if !s.cfg.TargetAllowed(target) {
		return nil, fmt.Errorf("editor: link target %q is not allowed", target)
	}
	return cms.Link.Create(map[string]interface{}{"href": attrs.Href, "target": target}), nil
}

// commonMarks returns the marks carried by every text node of the range.
func commonMarks(doc *model.Node, r Range) []*model.Mark {
	var common []*model.Mark
	first := true
	doc.NodesBetween(r.From, r.To, func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		if !node.IsText() {
			return true
		}
		if first {
			common, first = node.Marks, false
			return false
		}
		var kept []*model.Mark
		for _, m := range common {
			if m.IsInSet(node.Marks) {
				kept = append(kept, m)
			}
		}
		common = kept
		return false
	})
	return common
}

// mapTarget maps the range of a pending target through the changes made
// since it was resolved, and checks that it still holds the same entity.
func (s *Session) mapTarget(target *PendingEditTarget) (Range, error) {
	if target.epoch != s.epoch || target.offset > len(s.history) {
		return Range{}, fmt.Errorf("%w: the document was replaced", ErrStaleTarget)
	}
	mapping := transform.NewMapping(s.history[target.offset:]...)
	from := mapping.MapResult(target.Range.From, 1)
	to := mapping.MapResult(target.Range.To, -1)
	if from.Deleted || to.Deleted {
		return Range{}, fmt.Errorf("%w: %s was deleted", ErrStaleTarget, target.Range)
	}
	r := Range{From: from.Pos, To: to.Pos}
	if r.Size() != target.Range.Size() {
		return Range{}, fmt.Errorf("%w: %s is now %s", ErrStaleTarget, target.Range, r)
	}
	doc := s.state.Doc
	switch target.Kind {
	case EntityImage:
		node := doc.NodeAt(r.From)
		if node == nil || node.Type != cms.Image || node.Attr("src") != target.Image.Src {
			return Range{}, fmt.Errorf("%w: no image %q at %s", ErrStaleTarget, target.Image.Src, r)
		}
	case EntityLink:
		if !markAcross(doc, r.From, r.To, target.mark) || doc.TextBetween(r.From, r.To) != target.Link.Text {
			return Range{}, fmt.Errorf("%w: the link at %s changed", ErrStaleTarget, r)
		}
	}
	return r, nil
}
