package transform

import (
	"github.com/gamedesk/richedit/test/builder"
)

var (
	schema     = builder.Schema
	doc        = builder.Doc
	p          = builder.P
	h1         = builder.H1
	h2         = builder.H2
	blockquote = builder.Blockquote
	ul         = builder.Ul
	ol         = builder.Ol
	li         = builder.Li
	img        = builder.Img
	hr         = builder.Hr
	a          = builder.A
	em         = builder.Italic
	strong     = builder.Bold
	code       = builder.Code
)
