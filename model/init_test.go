package model_test

import (
	. "github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/test/builder"
)

var (
	schema     = builder.Schema
	doc        = builder.Doc
	blockquote = builder.Blockquote
	h1         = builder.H1
	h2         = builder.H2
	h3         = builder.H3
	p          = builder.P
	em         = builder.Italic
	strong     = builder.Bold
	u          = builder.Underline
	a          = builder.A
	ul         = builder.Ul
	ol         = builder.Ol
	li         = builder.Li
	img        = builder.Img
	br         = builder.Br
	hr         = builder.Hr
	code       = builder.Code

	strong2 = schema.Mark("bold")
	em2     = schema.Mark("italic")
	code2   = schema.Mark("code")
	link    = func(href string, target ...string) *Mark {
		attrs := map[string]interface{}{"href": href}
		if len(target) > 0 {
			attrs["target"] = target[0]
		}
		return schema.Mark("link", attrs)
	}
)
