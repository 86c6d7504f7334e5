package model_test

import (
	"testing"

	. "github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/test/builder"
	"github.com/stretchr/testify/assert"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var serializer = DOMSerializerFromSchema(schema)

func render(t *testing.T, doc builder.NodeWithTag, expected, msg string) {
	out, err := serializer.RenderFragment(doc.Content)
	if assert.NoError(t, err, msg) {
		assert.Equal(t, expected, out, msg)
	}
}

func TestDOMSerializer(t *testing.T) {
	render(t,
		doc(p("hello")),
		"<p>hello</p>",
		"Should represent simple node")

	render(t,
		doc(p("hi", br, "there")),
		"<p>hi<br/>there</p>",
		"Should represent a line break")

	render(t,
		doc(p("hi", img(map[string]interface{}{"alt": "x"}), "there")),
		`<p>hi<img src="img.png" alt="x"/>there</p>`,
		"Should represent an image")

	render(t,
		doc(p(img(map[string]interface{}{"upload": "u1"}))),
		`<p><img src="img.png" data-upload-id="u1"/></p>`,
		"Should represent an upload tag")

	render(t,
		doc(p(em("emphasis"))),
		"<p><em>emphasis</em></p>",
		"Should represent simple marks")

	render(t,
		doc(p("one", strong("two", em("three")), em("four"), "five")),
		"<p>one<strong>two<em>three</em></strong><em>four</em>five</p>",
		"Should join styles")

	render(t,
		doc(p("a ", a(map[string]interface{}{"href": "foo"}, "big ", em("link")), " x")),
		`<p>a <a href="foo">big <em>link</em></a> x</p>`,
		"Should represent links")

	render(t,
		doc(p(a(map[string]interface{}{"href": "foo", "target": "_blank"}, "new tab"))),
		`<p><a href="foo" target="_blank">new tab</a></p>`,
		"Should represent link targets")

	render(t,
		doc(p(builder.Align("mid", u("dle")))),
		`<p><span style="text-align: center">mid<u>dle</u></span></p>`,
		"Should represent alignment")

	render(t,
		doc(ul(li(p("one")), li(p("two")), li(p("three", strong("!")))), p("after")),
		"<ul><li><p>one</p></li><li><p>two</p></li><li><p>three<strong>!</strong></p></li></ul><p>after</p>",
		"Should represent an unordered list")

	render(t,
		doc(ol(li(p("one")), li(p("two"))), p("after")),
		"<ol><li><p>one</p></li><li><p>two</p></li></ol><p>after</p>",
		"Should represent an ordered list")

	render(t,
		doc(ol(map[string]interface{}{"order": 3}, li(p("three")))),
		`<ol start="3"><li><p>three</p></li></ol>`,
		"Should represent an ordered list start")

	render(t,
		doc(blockquote(blockquote(blockquote(p("he said"))), p("i said"))),
		"<blockquote><blockquote><blockquote><p>he said</p></blockquote></blockquote><p>i said</p></blockquote>",
		"Should represent a nested blockquote")

	render(t,
		doc(h1("one"), h2("two"), h3("three"), p("text")),
		"<h1>one</h1><h2>two</h2><h3>three</h3><p>text</p>",
		"Should represent headings")

	render(t,
		doc(p("text and ", code("code that is ", em("emphasized"), "..."))),
		"<p>text and <code>code that is </code><em><code>emphasized</code></em><code>...</code></p>",
		"Should represent inline code")

	render(t,
		doc(p("a"), hr, p("b")),
		"<p>a</p><hr/><p>b</p>",
		"Should represent a horizontal rule")

	render(t,
		doc(p("a < b & c")),
		"<p>a &lt; b &amp; c</p>",
		"Should escape text")
}

func TestDOMSerializerCustom(t *testing.T) {
	custom := &DOMSerializer{
		Nodes: map[string]ToDOM{
			"doc":       nil,
			"paragraph": func(NodeOrMark) *html.Node { return Element(atom.Div, []html.Attribute{{Key: "class", Val: "p"}}) },
			"text": func(n NodeOrMark) *html.Node {
				return &html.Node{Type: html.TextNode, Data: *n.(*Node).Text}
			},
		},
		Marks: map[string]ToDOM{},
	}

	// skips marks without a serializer
	out, err := custom.RenderFragment(doc(p("a", strong("b"))).Content)
	assert.NoError(t, err)
	assert.Equal(t, `<div class="p">ab</div>`, out)

	// skips nodes without a serializer
	out, err = custom.RenderFragment(doc(p("a"), hr).Content)
	assert.NoError(t, err)
	assert.Equal(t, `<div class="p">a</div>`, out)
}
