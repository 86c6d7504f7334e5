// Package cms defines the document schema of the post editor: the basic
// blocks, lists, headings of level 1 to 3, images that can carry an upload
// tag, and the inline formatting marks offered by the toolbar.
package cms

import (
	"net/url"
	"strings"

	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/schema/basic"
	"github.com/gamedesk/richedit/schema/list"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxHeadingLevel is the deepest heading level of the schema.
const MaxHeadingLevel = 3

// UploadAttr is the HTML attribute carrying the upload tag of an image.
const UploadAttr = "data-upload-id"

// Alignments lists the values of the text_align mark.
var Alignments = []string{"left", "center", "right", "justify"}

var (
	falsy = false

	headingSpec = &model.NodeSpec{
		Key:     "heading",
		Content: "inline*",
		Group:   "block",
		Attrs: map[string]*model.AttributeSpec{
			"level": {Default: 1},
		},
		ParseDOM: []*model.ParseRule{
			basic.HeadingRule(1), basic.HeadingRule(2), basic.HeadingRule(3),
			lenientHeading("h4"), lenientHeading("h5"), lenientHeading("h6"),
		},
	}

	imageSpec = &model.NodeSpec{
		Key:    "image",
		Inline: true,
		Group:  "inline",
		Attrs: map[string]*model.AttributeSpec{
			"src":    {Required: true},
			"alt":    {Default: ""},
			"title":  {Default: ""},
			"upload": {Default: ""},
		},
		ParseDOM: []*model.ParseRule{imageRule()},
		ToDOM: func(n model.NodeOrMark) *html.Node {
			attrs := n.GetAttrs([]string{"src", "alt", "title"})
			if upload := n.Attr("upload"); upload != "" {
				attrs = append(attrs, html.Attribute{Key: UploadAttr, Val: upload})
			}
			return model.Element(atom.Img, attrs)
		},
	}
)

func lenientHeading(tag string) *model.ParseRule {
	return &model.ParseRule{
		Tag:     tag,
		Lenient: true,
		GetAttrs: func(*html.Node) (map[string]interface{}, bool) {
			return map[string]interface{}{"level": MaxHeadingLevel}, true
		},
	}
}

func imageRule() *model.ParseRule {
	rule := basic.ImageRule()
	getAttrs := rule.GetAttrs
	rule.GetAttrs = func(el *html.Node) (map[string]interface{}, bool) {
		attrs, ok := getAttrs(el)
		if !ok {
			return nil, false
		}
		attrs["upload"] = model.AttrValue(el, UploadAttr)
		return attrs, true
	}
	return rule
}

func markTag(a atom.Atom) model.ToDOM {
	return func(model.NodeOrMark) *html.Node {
		return model.Element(a, nil)
	}
}

func tags(names ...string) []*model.ParseRule {
	rules := make([]*model.ParseRule, len(names))
	for i, name := range names {
		rules[i] = basic.Tag(name)
	}
	return rules
}

// Marks are the mark specs of the schema. The order is the nesting order in
// the rendered HTML, outermost first.
var Marks = []*model.MarkSpec{
	{
		Key:   "text_align",
		Attrs: map[string]*model.AttributeSpec{"value": {Default: "left"}},
		ParseDOM: []*model.ParseRule{{
			Tag:   "span",
			Style: "text-align",
			GetAttrs: func(el *html.Node) (map[string]interface{}, bool) {
				value := model.StyleValue(el, "text-align")
				for _, a := range Alignments {
					if a == value {
						return map[string]interface{}{"value": value}, true
					}
				}
				return nil, false
			},
		}},
		ToDOM: func(n model.NodeOrMark) *html.Node {
			return model.Element(atom.Span, []html.Attribute{{Key: "style", Val: "text-align: " + n.Attr("value")}})
		},
	},
	{
		Key: "link",
		Attrs: map[string]*model.AttributeSpec{
			"href":   {Required: true},
			"target": {Default: ""},
		},
		Inclusive: &falsy,
		ParseDOM:  []*model.ParseRule{basic.LinkRule("target")},
		ToDOM: func(n model.NodeOrMark) *html.Node {
			attrs := []html.Attribute{{Key: "href", Val: n.Attr("href")}}
			if target := n.Attr("target"); target != "" {
				attrs = append(attrs, html.Attribute{Key: "target", Val: target})
			}
			return model.Element(atom.A, attrs)
		},
	},
	{Key: "bold", ParseDOM: tags("strong", "b"), ToDOM: markTag(atom.Strong)},
	{Key: "italic", ParseDOM: tags("em", "i"), ToDOM: markTag(atom.Em)},
	{Key: "underline", ParseDOM: tags("u"), ToDOM: markTag(atom.U)},
	{Key: "strike", ParseDOM: tags("s", "del", "strike"), ToDOM: markTag(atom.S)},
	{Key: "code", ParseDOM: tags("code"), ToDOM: markTag(atom.Code)},
}

// Nodes are the node specs of the schema.
var Nodes = list.AddListNodes(nodes(), "paragraph block*", "block")

func nodes() []*model.NodeSpec {
	var result []*model.NodeSpec
	for _, spec := range basic.Nodes {
		switch spec.Key {
		case "heading":
			result = append(result, headingSpec)
		case "image":
			result = append(result, imageSpec)
		case "code_block":
		default:
			result = append(result, spec)
		}
	}
	return result
}

// Schema is the schema of post documents.
var Schema = mustSchema()

func mustSchema() *model.Schema {
	schema, err := model.NewSchema(&model.SchemaSpec{Nodes: Nodes, Marks: Marks})
	if err != nil {
		panic(err)
	}
	return model.AddDefaultToDOM(schema)
}

// Node types and mark types of the schema, for quick access.
var (
	Doc            = Schema.Nodes["doc"]
	Paragraph      = Schema.Nodes["paragraph"]
	Heading        = Schema.Nodes["heading"]
	Blockquote     = Schema.Nodes["blockquote"]
	HorizontalRule = Schema.Nodes["horizontal_rule"]
	Image          = Schema.Nodes["image"]
	HardBreak      = Schema.Nodes["hard_break"]
	BulletList     = Schema.Nodes["bullet_list"]
	OrderedList    = Schema.Nodes["ordered_list"]
	ListItem       = Schema.Nodes["list_item"]

	Bold      = Schema.Marks["bold"]
	Italic    = Schema.Marks["italic"]
	Underline = Schema.Marks["underline"]
	Strike    = Schema.Marks["strike"]
	Code      = Schema.Marks["code"]
	Link      = Schema.Marks["link"]
	TextAlign = Schema.Marks["text_align"]
)

// IsMediaHost tells whether src points to one of the given hosts. Hosts are
// matched on the URL's host name, subdomains included. Relative URLs are
// served by the platform itself and always match.
func IsMediaHost(src string, hosts []string) bool {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return false
	}
	if u.Scheme == "" && u.Host == "" {
		return u.Opaque == "" && u.Path != ""
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
