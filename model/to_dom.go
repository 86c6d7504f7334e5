package model

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToDOM renders a node or a mark as an element. Content goes into the
// deepest first descendant of that element.
type ToDOM = func(NodeOrMark) *html.Node

// NodeOrMark is what a ToDOM function renders.
type NodeOrMark interface {
	GetAttrs(names []string) []html.Attribute
	Attr(name string) string
}

// GetAttrs returns the named attributes, in that order, or all of them
// sorted by name when names is nil. Empty strings and values that are
// neither strings nor ints are left out.
func (n *Node) GetAttrs(names []string) []html.Attribute {
	return htmlAttrs(n.Attrs, names)
}

// Attr returns a string attribute, or "" when unset.
func (n *Node) Attr(name string) string {
	return attrString(n.Attrs, name)
}

func (m *Mark) GetAttrs(names []string) []html.Attribute {
	return htmlAttrs(m.Attrs, names)
}

func htmlAttrs(attrs map[string]interface{}, names []string) []html.Attribute {
	if names == nil {
		for name := range attrs {
			names = append(names, name)
		}
		slices.Sort(names)
	}
	out := []html.Attribute{}
	for _, name := range names {
		var val string
		switch v := attrs[name].(type) {
		case int:
			val = strconv.Itoa(v)
		case string:
			val = v
		}
		if val != "" {
			out = append(out, html.Attribute{Key: name, Val: val})
		}
	}
	return out
}

// Element builds an element with attributes and children.
func Element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	el := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, child := range children {
		el.AppendChild(child)
	}
	return el
}

func tagOf(a atom.Atom, attrs ...string) ToDOM {
	if len(attrs) == 0 {
		return func(NodeOrMark) *html.Node { return Element(a, nil) }
	}
	return func(n NodeOrMark) *html.Node { return Element(a, n.GetAttrs(attrs)) }
}

func headingTag(n NodeOrMark) *html.Node {
	switch n.Attr("level") {
	case "2":
		return Element(atom.H2, nil)
	case "3":
		return Element(atom.H3, nil)
	}
	return Element(atom.H1, nil)
}

// Renderers for the common node and mark names, used by schemas whose
// specs leave ToDOM unset.
var (
	commonNodeDOM = map[string]ToDOM{
		"paragraph":       tagOf(atom.P),
		"blockquote":      tagOf(atom.Blockquote),
		"horizontal_rule": tagOf(atom.Hr),
		"image":           tagOf(atom.Img, "src", "alt", "title"),
		"hard_break":      tagOf(atom.Br),
		"bullet_list":     tagOf(atom.Ul),
		"ordered_list":    tagOf(atom.Ol),
		"list_item":       tagOf(atom.Li),
		"heading":         headingTag,
	}
	commonMarkDOM = map[string]ToDOM{
		"link":   tagOf(atom.A, "href", "title"),
		"em":     tagOf(atom.Em),
		"strong": tagOf(atom.Strong),
		"code":   tagOf(atom.Code),
	}
)

// AddDefaultToDOM sets the common renderers on the specs of schema that
// have none, and returns schema.
func AddDefaultToDOM(schema *Schema) *Schema {
	for _, n := range schema.Nodes {
		if fn, ok := commonNodeDOM[n.Name]; ok && n.Spec.ToDOM == nil {
			n.Spec.ToDOM = fn
		}
	}
	for _, m := range schema.Marks {
		if fn, ok := commonMarkDOM[m.Name]; ok && m.Spec.ToDOM == nil {
			m.Spec.ToDOM = fn
		}
	}
	return schema
}

// DOMSerializer renders documents to html nodes. A node or mark type
// without a renderer is skipped, with its content for nodes.
type DOMSerializer struct {
	Nodes map[string]ToDOM
	Marks map[string]ToDOM
}

// DOMSerializerFromSchema takes the renderers from the schema specs. Text
// is rendered as a plain text node unless the schema says otherwise.
func DOMSerializerFromSchema(schema *Schema) *DOMSerializer {
	d := &DOMSerializer{Nodes: map[string]ToDOM{}, Marks: map[string]ToDOM{}}
	for _, n := range schema.Nodes {
		d.Nodes[n.Name] = n.Spec.ToDOM
	}
	for _, m := range schema.Marks {
		d.Marks[m.Name] = m.Spec.ToDOM
	}
	if d.Nodes["text"] == nil {
		d.Nodes["text"] = func(n NodeOrMark) *html.Node {
			return &html.Node{Type: html.TextNode, Data: *n.(*Node).Text}
		}
	}
	return d
}

// openMark is a mark element wrapping the current run of inline nodes,
// with the element it was appended to.
type openMark struct {
	mark   *Mark
	parent *html.Node
}

// SerializeFragment appends the rendered fragment to target, or to a new
// document node when target is nil, and returns target. Runs of nodes
// sharing a mark share its element, unless the mark is not spanning.
func (d *DOMSerializer) SerializeFragment(fragment *Fragment, target *html.Node) *html.Node {
	if target == nil {
		target = &html.Node{Type: html.DocumentNode}
	}
	var open []openMark
	into := target
	for _, node := range fragment.Content {
		kept, next := d.reusable(open, node.Marks)
		for len(open) > kept {
			into = open[len(open)-1].parent
			open = open[:len(open)-1]
		}
		for _, mark := range node.Marks[next:] {
			if el := d.SerializeMark(mark); el != nil {
				open = append(open, openMark{mark: mark, parent: into})
				into.AppendChild(el)
				into = el
			}
		}
		if el := d.SerializeNode(node); el != nil {
			into.AppendChild(el)
		}
	}
	return target
}

// reusable returns how many open mark elements can wrap a node with
// marks, and the index of the first of its marks that still needs one.
func (d *DOMSerializer) reusable(open []openMark, marks []*Mark) (kept, next int) {
	for kept < len(open) && next < len(marks) {
		m := marks[next]
		if d.Marks[m.Type.Name] == nil {
			next++
			continue
		}
		spanning := m.Type.Spec.Spanning == nil || *m.Type.Spec.Spanning
		if !spanning || !m.Eq(open[kept].mark) {
			break
		}
		kept++
		next++
	}
	return kept, next
}

// SerializeMark renders the element of a mark, or returns nil when its
// type has no renderer.
func (d *DOMSerializer) SerializeMark(mark *Mark) *html.Node {
	if fn := d.Marks[mark.Type.Name]; fn != nil {
		return fn(mark)
	}
	return nil
}

// SerializeNode renders a node with its content, or returns nil when its
// type has no renderer.
func (d *DOMSerializer) SerializeNode(node *Node) *html.Node {
	fn := d.Nodes[node.Type.Name]
	if fn == nil {
		return nil
	}
	el := fn(node)
	inner := el
	for inner.FirstChild != nil {
		inner = inner.FirstChild
	}
	d.SerializeFragment(node.Content, inner)
	return el
}

// RenderFragment renders the fragment as an HTML string.
func (d *DOMSerializer) RenderFragment(fragment *Fragment) (string, error) {
	var b strings.Builder
	root := d.SerializeFragment(fragment, nil)
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&b, child); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
