// Package basic defines a basic document schema, whose elements can be
// reused in other schemas.
package basic

import (
	"strconv"

	"github.com/gamedesk/richedit/model"
	"golang.org/x/net/html"
)

var (
	empty = ""
	falsy = false

	headingAttrs = map[string]*model.AttributeSpec{
		"level": {Default: 1},
	}
	imageAttrs = map[string]*model.AttributeSpec{
		"src":   {Required: true},
		"alt":   {Default: ""},
		"title": {Default: ""},
	}
	linkAttrs = map[string]*model.AttributeSpec{
		"href":  {Required: true},
		"title": {Default: ""},
	}
)

// Tag returns a parse rule matching the given tag name.
func Tag(name string) *model.ParseRule {
	return &model.ParseRule{Tag: name}
}

// HeadingRule parses <hN> elements into headings of level N.
func HeadingRule(level int) *model.ParseRule {
	return &model.ParseRule{
		Tag: "h" + strconv.Itoa(level),
		GetAttrs: func(*html.Node) (map[string]interface{}, bool) {
			return map[string]interface{}{"level": level}, true
		},
	}
}

// ImageRule parses <img> elements that have a src attribute.
func ImageRule(extra ...string) *model.ParseRule {
	return &model.ParseRule{
		Tag: "img",
		GetAttrs: func(el *html.Node) (map[string]interface{}, bool) {
			src := model.AttrValue(el, "src")
			if src == "" {
				return nil, false
			}
			attrs := map[string]interface{}{
				"src":   src,
				"alt":   model.AttrValue(el, "alt"),
				"title": model.AttrValue(el, "title"),
			}
			for _, key := range extra {
				attrs[key] = model.AttrValue(el, key)
			}
			return attrs, true
		},
	}
}

// LinkRule parses <a> elements that have a href attribute, reading the
// given attributes.
func LinkRule(attrs ...string) *model.ParseRule {
	return &model.ParseRule{
		Tag: "a",
		GetAttrs: func(el *html.Node) (map[string]interface{}, bool) {
			if !model.HasAttr(el, "href") {
				return nil, false
			}
			result := map[string]interface{}{"href": model.AttrValue(el, "href")}
			for _, key := range attrs {
				result[key] = model.AttrValue(el, key)
			}
			return result, true
		},
	}
}

// Nodes are the specs for the nodes defined in this schema.
var Nodes = []*model.NodeSpec{
	// The top level document node.
	{Key: "doc", Content: "block+"},

	// A plain paragraph textblock. Represented in the DOM as a <p> element.
	{Key: "paragraph", Content: "inline*", Group: "block", ParseDOM: []*model.ParseRule{Tag("p")}},

	// A blockquote (<blockquote>) wrapping one or more blocks.
	{Key: "blockquote", Content: "block+", Group: "block", ParseDOM: []*model.ParseRule{Tag("blockquote")}},

	// A horizontal rule (<hr>).
	{Key: "horizontal_rule", Group: "block", ParseDOM: []*model.ParseRule{Tag("hr")}},

	// A heading textblock, with a level attribute that should hold the number 1
	// to 3. Parsed and serialized as <h1> to <h3> elements.
	{Key: "heading", Content: "inline*", Group: "block", Attrs: headingAttrs,
		ParseDOM: []*model.ParseRule{HeadingRule(1), HeadingRule(2), HeadingRule(3)}},

	// A code listing. Disallows marks or non-text inline nodes by default.
	// Represented as a <pre> element.
	{Key: "code_block", Content: "text*", Marks: &empty, Group: "block", ParseDOM: []*model.ParseRule{Tag("pre")}},

	// The text node.
	{Key: "text", Group: "inline"},

	// An inline image (<img>) node. Supports src, alt, and title attributes.
	// The latter two default to the empty string.
	{Key: "image", Inline: true, Group: "inline", Attrs: imageAttrs, ParseDOM: []*model.ParseRule{ImageRule()}},

	// A hard line break, represented in the DOM as <br>.
	{Key: "hard_break", Inline: true, Group: "inline", ParseDOM: []*model.ParseRule{Tag("br")}},
}

// Marks are the specs for the marks in the schema.
var Marks = []*model.MarkSpec{
	// A link. Has href and title attributes. title defaults to the empty string.
	// Rendered and parsed as an <a> element.
	{Key: "link", Attrs: linkAttrs, Inclusive: &falsy, ParseDOM: []*model.ParseRule{LinkRule("title")}},

	// An emphasis mark. Rendered as an <em> element, parse rules also match
	// <i>.
	{Key: "em", ParseDOM: []*model.ParseRule{Tag("em"), Tag("i")}},

	// A strong mark. Rendered as <strong>, parse rules also match <b>.
	{Key: "strong", ParseDOM: []*model.ParseRule{Tag("strong"), Tag("b")}},

	// Code font mark. Represented as a <code> element.
	{Key: "code", ParseDOM: []*model.ParseRule{Tag("code")}},
}

// Schema roughly corresponds to the document schema used by CommonMark, minus
// the list elements, which are defined in the list package.
//
// To reuse elements from this schema, extend or read from its Nodes and
// Marks.
var Schema = mustSchema(&model.SchemaSpec{Nodes: Nodes, Marks: Marks})

func mustSchema(spec *model.SchemaSpec) *model.Schema {
	schema, err := model.NewSchema(spec)
	if err != nil {
		panic(err)
	}
	return model.AddDefaultToDOM(schema)
}
