// Package builder provides helpers to build documents in tests.
//
// Node builders take, in any order, an optional attribute map, strings,
// nodes, and the results of other builders. Strings can contain position
// markers like "<a>", which are removed from the text and recorded in the
// Tag map of the resulting node, so that tests can refer to positions by
// name.
package builder

import (
	"regexp"
	"unicode/utf8"

	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/schema/cms"
)

// Attrs is an attribute map, given as the first argument of a builder.
type Attrs = map[string]interface{}

// NodeWithTag is a node with the positions of the markers found in its
// content. Positions are relative to the start of the node's content.
type NodeWithTag struct {
	*model.Node
	Tag map[string]int
}

// Flat is a run of inline nodes produced by a mark builder.
type Flat struct {
	Nodes []*model.Node
	Tag   map[string]int
}

// NodeBuilder builds a node.
type NodeBuilder func(args ...interface{}) NodeWithTag

// MarkBuilder builds a run of nodes carrying a mark.
type MarkBuilder func(args ...interface{}) Flat

// Spec describes a builder: "nodeType" or "markType" names the type, the
// other entries are default attributes.
type Spec map[string]interface{}

var tagRe = regexp.MustCompile(`<(\w+)>`)

func takeAttrs(defaults Attrs, args []interface{}) (Attrs, []interface{}) {
	var given Attrs
	if len(args) > 0 {
		if a, ok := args[0].(map[string]interface{}); ok {
			given = a
			args = args[1:]
		}
	}
	if defaults == nil && given == nil {
		return nil, args
	}
	result := Attrs{}
	for k, v := range defaults {
		result[k] = v
	}
	for k, v := range given {
		result[k] = v
	}
	return result, args
}

func flatten(schema *model.Schema, children []interface{}, f func(*model.Node) *model.Node) ([]*model.Node, map[string]int) {
	var result []*model.Node
	pos := 0
	var tag map[string]int
	setTag := func(name string, at int) {
		if tag == nil {
			tag = map[string]int{}
		}
		tag[name] = at
	}
	add := func(node *model.Node) {
		node = f(node)
		pos += node.NodeSize()
		result = append(result, node)
	}
	for _, child := range children {
		switch c := child.(type) {
		case string:
			out := ""
			at := 0
			for _, m := range tagRe.FindAllStringSubmatchIndex(c, -1) {
				out += c[at:m[0]]
				pos += utf8.RuneCountInString(c[at:m[0]])
				at = m[1]
				setTag(c[m[2]:m[3]], pos)
			}
			out += c[at:]
			pos += utf8.RuneCountInString(c[at:])
			if out != "" {
				result = append(result, f(schema.Text(out)))
			}
		case NodeWithTag:
			for id, p := range c.Tag {
				offset := 1
				if c.IsText() {
					offset = 0
				}
				setTag(id, p+offset+pos)
			}
			add(c.Node)
		case *model.Node:
			add(c)
		case Flat:
			for id, p := range c.Tag {
				setTag(id, p+pos)
			}
			for _, node := range c.Nodes {
				add(node)
			}
		case NodeBuilder:
			add(c().Node)
		default:
			panic("builder: unsupported argument")
		}
	}
	return result, tag
}

func block(typ *model.NodeType, attrs Attrs) NodeBuilder {
	return func(args ...interface{}) NodeWithTag {
		myAttrs, rest := takeAttrs(attrs, args)
		nodes, tag := flatten(typ.Schema, rest, func(n *model.Node) *model.Node { return n })
		node, err := typ.Create(myAttrs, model.FragmentFromArray(nodes), nil)
		if err != nil {
			panic(err)
		}
		return NodeWithTag{Node: node, Tag: tag}
	}
}

// Create a builder function for marks.
func mark(typ *model.MarkType, attrs Attrs) MarkBuilder {
	return func(args ...interface{}) Flat {
		myAttrs, rest := takeAttrs(attrs, args)
		m := typ.Create(myAttrs)
		nodes, tag := flatten(typ.Schema, rest, func(n *model.Node) *model.Node {
			if !n.IsText() || m.Type.IsInSet(n.Marks) != nil {
				return n
			}
			return n.Mark(m.AddToSet(n.Marks))
		})
		return Flat{Nodes: nodes, Tag: tag}
	}
}

// Builders creates a builder for each node and mark type of the schema, under
// their own name, plus the ones described in names.
func Builders(schema *model.Schema, names map[string]Spec) map[string]interface{} {
	result := map[string]interface{}{"schema": schema}
	for name, typ := range schema.Nodes {
		result[name] = block(typ, nil)
	}
	for name, typ := range schema.Marks {
		result[name] = mark(typ, nil)
	}
	for name, spec := range names {
		attrs := Attrs{}
		for k, v := range spec {
			if k != "nodeType" && k != "markType" {
				attrs[k] = v
			}
		}
		if typeName, ok := spec["nodeType"].(string); ok {
			result[name] = block(schema.Nodes[typeName], attrs)
		} else if typeName, ok := spec["markType"].(string); ok {
			result[name] = mark(schema.Marks[typeName], attrs)
		}
	}
	return result
}

var out = Builders(cms.Schema, map[string]Spec{
	"p":     {"nodeType": "paragraph"},
	"h1":    {"nodeType": "heading", "level": 1},
	"h2":    {"nodeType": "heading", "level": 2},
	"h3":    {"nodeType": "heading", "level": 3},
	"li":    {"nodeType": "list_item"},
	"ul":    {"nodeType": "bullet_list"},
	"ol":    {"nodeType": "ordered_list"},
	"br":    {"nodeType": "hard_break"},
	"img":   {"nodeType": "image", "src": "img.png"},
	"hr":    {"nodeType": "horizontal_rule"},
	"a":     {"markType": "link", "href": "foo"},
	"align": {"markType": "text_align", "value": "center"},
})

// Builders for the post schema.
var (
	Schema     = out["schema"].(*model.Schema)
	Doc        = out["doc"].(NodeBuilder)
	P          = out["p"].(NodeBuilder)
	Blockquote = out["blockquote"].(NodeBuilder)
	H1         = out["h1"].(NodeBuilder)
	H2         = out["h2"].(NodeBuilder)
	H3         = out["h3"].(NodeBuilder)
	Li         = out["li"].(NodeBuilder)
	Ul         = out["ul"].(NodeBuilder)
	Ol         = out["ol"].(NodeBuilder)
	Br         = out["br"].(NodeBuilder)
	Img        = out["img"].(NodeBuilder)
	Hr         = out["hr"].(NodeBuilder)
	A          = out["a"].(MarkBuilder)
	Align      = out["align"].(MarkBuilder)
	Bold       = out["bold"].(MarkBuilder)
	Italic     = out["italic"].(MarkBuilder)
	Underline  = out["underline"].(MarkBuilder)
	Strike     = out["strike"].(MarkBuilder)
	Code       = out["code"].(MarkBuilder)
)
