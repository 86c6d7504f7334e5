package editor

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	br         = builder.Br
	a          = builder.A
	align      = builder.Align
	em         = builder.Italic
	strong     = builder.Bold
)

type attrs = map[string]interface{}

// stateOf builds a state whose selection goes from the <a> tag to the <b>
// tag of the document, or is empty at <a> when there is no <b>.
func stateOf(d builder.NodeWithTag) State {
	from := d.Tag["a"]
	to := from
	if b, ok := d.Tag["b"]; ok {
		to = b
	}
	return State{Doc: d.Node, Selection: Selection{Range: Range{From: from, To: to}}}
}

func assertDoc(t *testing.T, actual *model.Node, expect builder.NodeWithTag) {
	t.Helper()
	assert.True(t, actual.Eq(expect.Node), "%s != %s", actual, expect.Node)
	assert.NoError(t, actual.Check())
}

// testSession starts a session on the document, with the selection given by
// its tags, and records the change notifications and logs.
type testSession struct {
	*Session
	changes []string
	logs    *bytes.Buffer
}

func newTestSession(t *testing.T, d builder.NodeWithTag, opts ...Option) *testSession {
	t.Helper()
	ts := &testSession{logs: &bytes.Buffer{}}
	logger := slog.New(slog.NewTextHandler(ts.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]Option{
		WithLogger(logger),
		WithOnChange(func(raw string) { ts.changes = append(ts.changes, raw) }),
	}, opts...)
	s, err := New("", opts...)
	require.NoError(t, err)
	s.state = stateOf(d)
	s.formats = ComputeActiveFormats(s.state.Doc, s.state.Selection)
	ts.Session = s
	return ts
}
