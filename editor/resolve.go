package editor

import (
	"fmt"

	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/schema/cms"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EntityKind is the kind of an entity edited through a property modal.
type EntityKind int

// Entity kinds.
const (
	EntityImage EntityKind = iota
	EntityLink
)

func (k EntityKind) String() string {
	switch k {
	case EntityImage:
		return "image"
	case EntityLink:
		return "link"
	}
	return fmt.Sprintf("EntityKind(%d)", int(k))
}

// ClickTarget is a double-clicked element of the rendered document, with the
// document position under the pointer. Pos is only used for links.
type ClickTarget struct {
	Element *html.Node
	Pos     int
}

// PendingEditTarget is the document range of an entity opened in a property
// modal, with a snapshot of its attributes.
type PendingEditTarget struct {
	Kind  EntityKind
	Range Range
	Image ImageAttrs
	Link  LinkAttrs
	// Version of the session document when the target was resolved.
	Version int

	mark *model.Mark
	// Number of step maps in the session history when resolved, and the
	// history epoch they belong to.
	offset int
	epoch  int
}

// ResolveEntity finds the document range of the image or link rendered by
// the clicked element or one of its ancestors.
//
// An image is identified by its src: the first image of the document, in
// document order, with the same src is the target. A link is found from the
// position under the click and spans the adjacent text carrying the same
// link mark, within its textblock.
func ResolveEntity(doc *model.Node, target ClickTarget) (*PendingEditTarget, error) {
	el := target.Element
	for ; el != nil; el = el.Parent {
		if el.Type == html.ElementNode && (el.DataAtom == atom.Img || el.DataAtom == atom.A) {
			break
		}
	}
	if el == nil {
		return nil, ErrEntityNotFound
	}
	if el.DataAtom == atom.Img {
		return resolveImage(doc, model.AttrValue(el, "src"))
	}
	return resolveLink(doc, model.AttrValue(el, "href"), target.Pos)
}

func resolveImage(doc *model.Node, src string) (*PendingEditTarget, error) {
	if src == "" {
		return nil, ErrEntityNotFound
	}
	var found *PendingEditTarget
	doc.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.Type == cms.Image && node.Attr("src") == src {
			found = &PendingEditTarget{
				Kind:  EntityImage,
				Range: Range{From: pos, To: pos + node.NodeSize()},
				Image: imageAttrsOf(node),
			}
		}
		return !node.IsInline()
	})
	if found == nil {
		return nil, fmt.Errorf("%w: no image with src %q", ErrEntityNotFound, src)
	}
	return found, nil
}

func imageAttrsOf(node *model.Node) ImageAttrs {
	return ImageAttrs{Src: node.Attr("src"), Alt: node.Attr("alt"), Title: node.Attr("title")}
}

func linkWithHref(node *model.Node, href string) *model.Mark {
	if node == nil {
		return nil
	}
	mark := cms.Link.IsInSet(node.Marks)
	if mark == nil || mark.Attr("href") != href {
		return nil
	}
	return mark
}

func resolveLink(doc *model.Node, href string, pos int) (*PendingEditTarget, error) {
	if href == "" || pos < 0 || pos > doc.Content.Size {
		return nil, ErrEntityNotFound
	}
	rp, err := doc.Resolve(pos)
	if err != nil {
		return nil, err
	}
	parent := rp.Parent()
	if !parent.InlineContent() {
		return nil, ErrEntityNotFound
	}
	index := rp.Index()
	mark := linkWithHref(parent.MaybeChild(index), href)
	if mark == nil && rp.TextOffset() == 0 && index > 0 {
		index--
		mark = linkWithHref(parent.MaybeChild(index), href)
	}
	if mark == nil {
		return nil, fmt.Errorf("%w: no link to %q at %d", ErrEntityNotFound, href, pos)
	}

	first, last := index, index
	for first > 0 && mark.IsInSet(parent.Content.Content[first-1].Marks) {
		first--
	}
	for last < parent.ChildCount()-1 && mark.IsInSet(parent.Content.Content[last+1].Marks) {
		last++
	}
	from := rp.Start()
	for i := 0; i < first; i++ {
		from += parent.Content.Content[i].NodeSize()
	}
	to := from
	for i := first; i <= last; i++ {
		to += parent.Content.Content[i].NodeSize()
	}
	return &PendingEditTarget{
		Kind:  EntityLink,
		Range: Range{From: from, To: to},
		Link: LinkAttrs{
			Href:   href,
			Target: mark.Attr("target"),
			Text:   doc.TextBetween(from, to),
		},
		mark: mark,
	}, nil
}
