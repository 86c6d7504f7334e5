// Package list exports list-related schema elements. Lists are nestable, with
// the restriction that the first child of a list item is a plain paragraph.
package list

import (
	"strconv"

	"github.com/gamedesk/richedit/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// An ordered list node spec. Has a single attribute, order, which
	// determines the number at which the list starts counting, and defaults to
	// 1. Represented as an <ol> element.
	orderedList = model.NodeSpec{
		Key: "ordered_list",
		Attrs: map[string]*model.AttributeSpec{
			"order": {Default: 1},
		},
		ParseDOM: []*model.ParseRule{{
			Tag: "ol",
			GetAttrs: func(el *html.Node) (map[string]interface{}, bool) {
				order := 1
				if start, err := strconv.Atoi(model.AttrValue(el, "start")); err == nil {
					order = start
				}
				return map[string]interface{}{"order": order}, true
			},
		}},
		ToDOM: func(n model.NodeOrMark) *html.Node {
			var attrs []html.Attribute
			if order := n.Attr("order"); order != "" && order != "1" {
				attrs = append(attrs, html.Attribute{Key: "start", Val: order})
			}
			return model.Element(atom.Ol, attrs)
		},
	}

	// A bullet list node spec, represented in the DOM as <ul>.
	bulletList = model.NodeSpec{
		Key:      "bullet_list",
		ParseDOM: []*model.ParseRule{{Tag: "ul"}},
		ToDOM: func(model.NodeOrMark) *html.Node {
			return model.Element(atom.Ul, nil)
		},
	}

	// A list item (<li>) spec.
	listItem = model.NodeSpec{
		Key:      "list_item",
		ParseDOM: []*model.ParseRule{{Tag: "li"}},
		ToDOM: func(model.NodeOrMark) *html.Node {
			return model.Element(atom.Li, nil)
		},
	}
)

func add(obj, props model.NodeSpec) *model.NodeSpec {
	if props.Content != "" {
		obj.Content = props.Content
	}
	if props.Group != "" {
		obj.Group = props.Group
	}
	return &obj
}

// AddListNodes is a convenience function for adding list-related node types
// to the node specs of a schema. Adds orderedList as "ordered_list",
// bulletList as "bullet_list", and listItem as "list_item".
//
// itemContent determines the content expression for the list items. It
// should have a shape like "paragraph block*" or "paragraph (ordered_list |
// bullet_list)*". listGroup can be given to assign a group name to the list
// node types, for example "block".
func AddListNodes(nodes []*model.NodeSpec, itemContent, listGroup string) []*model.NodeSpec {
	result := append([]*model.NodeSpec{}, nodes...)
	return append(
		result,
		add(orderedList, model.NodeSpec{Content: "list_item+", Group: listGroup}),
		add(bulletList, model.NodeSpec{Content: "list_item+", Group: listGroup}),
		add(listItem, model.NodeSpec{Content: itemContent}),
	)
}

// IsList tells whether the node type is one of the list types.
func IsList(typ *model.NodeType) bool {
	return typ.Name == "ordered_list" || typ.Name == "bullet_list"
}
