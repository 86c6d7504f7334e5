package editor

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/gamedesk/richedit/config"
	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/schema/cms"
	"github.com/gamedesk/richedit/test/builder"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html/atom"
)

const post = `<h2>Patch 1.2</h2>` +
	`<p>The <strong>ranked</strong> season <a href="https://gamedesk.example/ranked" target="_blank">starts today</a>.</p>` +
	`<ul><li><p>new map</p></li><li><p>balance <em>changes</em></p></li></ul>` +
	`<blockquote><p>See you on the ladder.</p></blockquote>` +
	`<p><img src="https://cdn.gamedesk.example/banner.png" alt="banner"/></p>`

func TestSessionRoundTrip(t *testing.T) {
	s, err := New(post)
	require.NoError(t, err)
	out, err := s.HTML()
	require.NoError(t, err)

	parsed, err := model.DOMParserFromSchema(cms.Schema).Parse(out, model.ParseStrict)
	require.NoError(t, err, out)
	assert.True(t, parsed.Eq(s.Doc()))

	again, err := New(out)
	require.NoError(t, err)
	assert.True(t, again.Doc().Eq(s.Doc()))
	out2, err := again.HTML()
	require.NoError(t, err)
	assert.Equal(t, out, out2)
}

func TestSessionStart(t *testing.T) {
	s, err := New(post)
	require.NoError(t, err)
	assert.Equal(t, Structured, s.Mode())
	assert.Equal(t, Caret(1), s.State().Selection)
	assert.Equal(t, FormatState{LabelH2}, s.Formats())
	assert.Equal(t, 0, s.Version())

	empty, err := New("")
	require.NoError(t, err)
	assertDoc(t, empty.Doc(), doc(p()))
}

func TestSessionLenientLoad(t *testing.T) {
	var logs bytes.Buffer
	s, err := New("<p>a<b>b", WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	assertDoc(t, s.Doc(), doc(p("a", strong("b"))))
	assert.Contains(t, logs.String(), "leniently")
}

func TestSessionDispatch(t *testing.T) {
	ts := newTestSession(t, doc(p("one <a>two<b>")))
	require.True(t, ts.Dispatch(ToggleMark{Type: cms.Bold}))
	assertDoc(t, ts.Doc(), doc(p("one ", strong("two"))))
	assert.Equal(t, 1, ts.Version())
	assert.True(t, ts.Formats().Has(LabelBold))
	require.Len(t, ts.changes, 1)
	assert.Equal(t, "<p>one <strong>two</strong></p>", ts.changes[0])

	// selection changes do not notify
	require.True(t, ts.Select(Range{From: 1, To: 2}))
	assert.False(t, ts.Formats().Has(LabelBold))
	assert.Len(t, ts.changes, 1)
	assert.Equal(t, 1, ts.Version())

	// rejected commands are logged and change nothing
	assert.False(t, ts.Select(Range{From: 0, To: 50}))
	assert.False(t, ts.Dispatch(ToggleMark{Type: cms.Link}))
	assert.Equal(t, Range{From: 1, To: 2}, ts.State().Selection.Range)
	assert.Contains(t, ts.logs.String(), "command rejected")

	md, err := ts.Markdown()
	require.NoError(t, err)
	assert.Equal(t, "one **two**", md)
}

func TestSessionHeadingLevels(t *testing.T) {
	cfg := config.Default()
	cfg.Headings.MaxLevel = 2
	ts := newTestSession(t, doc(p("<a>title")), WithConfig(cfg))
	assert.False(t, ts.Dispatch(SetBlockType{Type: cms.Heading, Attrs: attrs{"level": 3}}))
	assert.False(t, ts.Dispatch(SetBlockType{Type: cms.Heading}))
	require.True(t, ts.Dispatch(SetBlockType{Type: cms.Heading, Attrs: attrs{"level": 2}}))
	assertDoc(t, ts.Doc(), doc(h2("title")))
	assert.Equal(t, FormatState{LabelH2}, ts.Formats())
}

func TestSessionConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Headings.MaxLevel = 7
	_, err := New("", WithConfig(cfg))
	assert.Error(t, err)
}

func TestSessionMinify(t *testing.T) {
	d := doc(p("a"), p("b"))
	plain := newTestSession(t, d)
	cfg := config.Default()
	cfg.Output.Minify = true
	minified := newTestSession(t, d, WithConfig(cfg))

	full, err := plain.HTML()
	require.NoError(t, err)
	assert.Equal(t, "<p>a</p><p>b</p>", full)
	short, err := minified.HTML()
	require.NoError(t, err)
	assert.Less(t, len(short), len(full))
	assert.Contains(t, short, "a")
	assert.Contains(t, short, "b")
}

func TestModeToggle(t *testing.T) {
	s, err := New(post)
	require.NoError(t, err)
	before := s.Doc()
	changes := 0
	s.onChange = func(string) { changes++ }

	raw, err := s.EnterRaw()
	require.NoError(t, err)
	assert.Equal(t, Raw, s.Mode())
	out, err := s.HTML()
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	require.NoError(t, s.ExitRaw())
	assert.Equal(t, Structured, s.Mode())
	assert.True(t, s.Doc().Eq(before))
	assert.Equal(t, 0, changes)
}

func TestRawMode(t *testing.T) {
	ts := newTestSession(t, doc(p("ab<a>")))
	assert.ErrorIs(t, ts.EditRaw("x"), ErrNotRaw)
	assert.ErrorIs(t, ts.ExitRaw(), ErrNotRaw)

	raw, err := ts.EnterRaw()
	require.NoError(t, err)
	assert.Equal(t, "<p>ab</p>", raw)

	// structured operations are rejected
	assert.False(t, ts.Dispatch(InsertText{Text: "x"}))
	assert.Empty(t, ts.Formats())
	_, err = ts.Paste(Clipboard{Text: "x"})
	assert.ErrorIs(t, err, ErrRawMode)
	_, err = ts.Markdown()
	assert.ErrorIs(t, err, ErrRawMode)

	// invalid markup keeps the raw mode and the buffer
	require.NoError(t, ts.EditRaw("<p>new <b>text</p></b>"))
	err = ts.ExitRaw()
	var parseErr *model.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, Raw, ts.Mode())
	out, err := ts.HTML()
	require.NoError(t, err)
	assert.Equal(t, "<p>new <b>text</p></b>", out)
	assert.Contains(t, ts.logs.String(), "raw markup rejected")

	require.NoError(t, ts.EditRaw("<h1>Title</h1><p>new <b>text</b></p>"))
	require.NoError(t, ts.ExitRaw())
	assert.Equal(t, Structured, ts.Mode())
	assertDoc(t, ts.Doc(), doc(h1("Title"), p("new ", strong("text"))))
	assert.Equal(t, Caret(1), ts.State().Selection)
	assert.Equal(t, FormatState{LabelH1}, ts.Formats())
	assert.Equal(t, []string{
		"<p>new <b>text</p></b>",
		"<h1>Title</h1><p>new <b>text</b></p>",
		"<h1>Title</h1><p>new <strong>text</strong></p>",
	}, ts.changes)
}

func TestCompleteImage(t *testing.T) {
	d := doc(p("x", img(attrs{"src": "a.png"}), "y", img(attrs{"src": "b.png", "upload": "u1"})))
	ts := newTestSession(t, d)
	images := rendered(d, atom.Img)

	target := ts.DoubleClick(ClickTarget{Element: images[1]})
	require.NotNil(t, target)
	assert.Same(t, target, ts.Pending())

	// the upload tag stays while the source does not change
	require.NoError(t, ts.CompleteImage(ImageResult{Action: Save, Attrs: ImageAttrs{Src: "b.png", Alt: "boss fight"}}))
	assertDoc(t, ts.Doc(), doc(p("x", img(attrs{"src": "a.png"}), "y", img(attrs{"src": "b.png", "alt": "boss fight", "upload": "u1"}))))
	assert.Nil(t, ts.Pending())
	assert.ErrorIs(t, ts.CompleteImage(ImageResult{Action: Save}), ErrNoPendingEdit)

	require.NotNil(t, ts.DoubleClick(ClickTarget{Element: images[0]}))
	require.NoError(t, ts.CompleteImage(ImageResult{Action: Save, Attrs: ImageAttrs{Src: "c.png", Title: "t"}}))
	assertDoc(t, ts.Doc(), doc(p("x", img(attrs{"src": "c.png", "title": "t"}), "y", img(attrs{"src": "b.png", "alt": "boss fight", "upload": "u1"}))))
}

func TestCompleteImageErrors(t *testing.T) {
	d := doc(p("x", img(), a("link")))
	ts := newTestSession(t, d)
	image := rendered(d, atom.Img)[0]

	assert.Nil(t, ts.DoubleClick(ClickTarget{Element: rendered(d, atom.P)[0]}))
	assert.Contains(t, ts.logs.String(), "double click on no entity")

	require.NotNil(t, ts.DoubleClick(ClickTarget{Element: image}))
	assert.ErrorIs(t, ts.CompleteLink(LinkResult{Action: Save, Attrs: LinkAttrs{Href: "x"}}), ErrTargetKind)
	assert.ErrorIs(t, ts.CompleteImage(ImageResult{Action: Remove}), ErrNotApplicable)
	assert.Error(t, ts.CompleteImage(ImageResult{Action: Save}))
	// the modal is still open after errors on its input
	require.NotNil(t, ts.Pending())

	require.NoError(t, ts.CompleteImage(ImageResult{Action: Cancel}))
	assert.Nil(t, ts.Pending())
	assertDoc(t, ts.Doc(), d)
	assert.Empty(t, ts.changes)
}

func TestStaleTarget(t *testing.T) {
	d := doc(p("abc", a("de"), "f"))
	ts := newTestSession(t, d)
	target := ts.DoubleClick(ClickTarget{Element: rendered(d, atom.A)[0], Pos: 5})
	require.NotNil(t, target)
	require.Equal(t, Range{From: 4, To: 6}, target.Range)

	require.True(t, ts.Dispatch(ReplaceRange{Range: Range{From: 5, To: 6}}))
	after := ts.Doc()
	err := ts.CompleteLink(LinkResult{Action: Save, Attrs: LinkAttrs{Href: "bar", Text: "de"}})
	assert.ErrorIs(t, err, ErrStaleTarget)
	assert.Same(t, after, ts.Doc())
	assert.Nil(t, ts.Pending())
}

func TestStaleImageTarget(t *testing.T) {
	d := doc(p("a", img(), "b"))
	ts := newTestSession(t, d)
	require.NotNil(t, ts.DoubleClick(ClickTarget{Element: rendered(d, atom.Img)[0]}))
	require.True(t, ts.Dispatch(ReplaceRange{Range: Range{From: 1, To: 4}}))
	assert.ErrorIs(t, ts.CompleteImage(ImageResult{Action: Save, Attrs: ImageAttrs{Src: "x.png"}}), ErrStaleTarget)

	// raw mode replaces the document, even when the markup is the same
	ts = newTestSession(t, d)
	require.NotNil(t, ts.DoubleClick(ClickTarget{Element: rendered(d, atom.Img)[0]}))
	_, err := ts.EnterRaw()
	require.NoError(t, err)
	assert.ErrorIs(t, ts.CompleteImage(ImageResult{Action: Save, Attrs: ImageAttrs{Src: "x.png"}}), ErrRawMode)
	require.NoError(t, ts.ExitRaw())
	assert.ErrorIs(t, ts.CompleteImage(ImageResult{Action: Save, Attrs: ImageAttrs{Src: "x.png"}}), ErrStaleTarget)
}

func TestTargetMappedThroughEdits(t *testing.T) {
	d := doc(p("<a>abc", a("de"), "f"))
	ts := newTestSession(t, d)
	require.NotNil(t, ts.DoubleClick(ClickTarget{Element: rendered(d, atom.A)[0], Pos: 4}))

	require.True(t, ts.Dispatch(InsertText{Text: "zz"}))
	require.NoError(t, ts.CompleteLink(LinkResult{Action: Save, Attrs: LinkAttrs{Href: "bar", Text: "de"}}))
	assertDoc(t, ts.Doc(), doc(p("zzabc", a(attrs{"href": "bar"}, "de"), "f")))
}

func TestCompleteLink(t *testing.T) {
	open := func(d builder.NodeWithTag, ts *testSession, pos int) {
		t.Helper()
		links := rendered(d, atom.A)
		require.NotEmpty(t, links)
		require.NotNil(t, ts.DoubleClick(ClickTarget{Element: links[0], Pos: pos}), "%s", d.Node)
	}

	// a new text keeps the common formatting
	d := doc(p("go ", strong(a("here")), "!"))
	ts := newTestSession(t, d)
	open(d, ts, 5)
	require.NoError(t, ts.CompleteLink(LinkResult{Action: Save, Attrs: LinkAttrs{Href: "https://x.example", Text: "there"}}))
	assertDoc(t, ts.Doc(), doc(p("go ", strong(a(attrs{"href": "https://x.example"}, "there")), "!")))

	// the same text keeps the inner formatting
	d = doc(p(a("li", em("nk"))))
	ts = newTestSession(t, d)
	open(d, ts, 2)
	require.NoError(t, ts.CompleteLink(LinkResult{Action: Save, Attrs: LinkAttrs{Href: "bar", Target: "_blank", Text: "link"}}))
	assertDoc(t, ts.Doc(), doc(p(a(attrs{"href": "bar", "target": "_blank"}, "li", em("nk")))))

	// remove strips the link
	ts = newTestSession(t, d)
	open(d, ts, 2)
	require.NoError(t, ts.CompleteLink(LinkResult{Action: Remove}))
	assertDoc(t, ts.Doc(), doc(p("li", em("nk"))))

	// the default target applies, and targets are checked
	cfg := config.Default()
	cfg.Links.DefaultTarget = "_blank"
	ts = newTestSession(t, d, WithConfig(cfg))
	open(d, ts, 2)
	assert.Error(t, ts.CompleteLink(LinkResult{Action: Save, Attrs: LinkAttrs{Href: "bar", Target: "_top"}}))
	assert.ErrorIs(t, ts.CompleteLink(LinkResult{Action: Save}), errMissingHref)
	require.NotNil(t, ts.Pending())
	require.NoError(t, ts.CompleteLink(LinkResult{Action: Save, Attrs: LinkAttrs{Href: "bar"}}))
	assertDoc(t, ts.Doc(), doc(p(a(attrs{"href": "bar", "target": "_blank"}, "li", em("nk")))))
}

func fixedIDs() (Option, *int) {
	n := 0
	return WithIDGenerator(func() (string, error) {
		n++
		return fmt.Sprintf("upload-%d", n), nil
	}), &n
}

func TestPasteTagsImages(t *testing.T) {
	ids, _ := fixedIDs()
	ts := newTestSession(t, doc(p("ab<a>")), ids)

	tags, err := ts.Paste(Clipboard{HTML: `<p>x<img src="data:image/png;base64,iVBORw0KGgo=" alt="shot"></p>`})
	require.NoError(t, err)
	assert.Equal(t, []string{"upload-1"}, tags)
	uploads := ts.PendingUploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "upload-1", uploads[0].ID)
	assert.True(t, strings.HasPrefix(uploads[0].Src, "data:image/png"))
	assert.Equal(t, 4, uploads[0].Pos)
	out, err := ts.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `data-upload-id="upload-1"`)
	assert.Equal(t, Caret(5), ts.State().Selection)
}

func TestPasteWithoutImages(t *testing.T) {
	ids, calls := fixedIDs()
	cfg := config.Default()
	cfg.Media.Hosts = []string{"cdn.gamedesk.example"}
	ts := newTestSession(t, doc(p("ab<a>")), ids, WithConfig(cfg))

	tags, err := ts.Paste(Clipboard{HTML: `<p> and <strong>more</strong></p>`})
	require.NoError(t, err)
	assert.Empty(t, tags)

	// platform media is not tagged
	tags, err = ts.Paste(Clipboard{HTML: `<p><img src="/media/a.png"><img src="https://cdn.gamedesk.example/b.png"></p>`})
	require.NoError(t, err)
	assert.Empty(t, tags)
	assert.Empty(t, ts.PendingUploads())
	assert.Equal(t, 0, *calls)

	// other hosts are
	tags, err = ts.Paste(Clipboard{HTML: `<p><img src="https://elsewhere.example/c.png"></p>`})
	require.NoError(t, err)
	assert.Equal(t, []string{"upload-1"}, tags)
}

func TestPasteSanitizes(t *testing.T) {
	ts := newTestSession(t, doc(p("<a>")))
	_, err := ts.Paste(Clipboard{HTML: `<p onclick="steal()">safe<script>alert(1)</script> <a href="javascript:alert(1)">click</a></p>`})
	require.NoError(t, err)
	text := ts.Doc().TextContent()
	assert.Contains(t, text, "safe")
	assert.NotContains(t, text, "alert")
	assert.False(t, ts.Doc().RangeHasMark(0, ts.Doc().Content.Size, cms.Link))
}

func TestPasteUploadTagsAreReplaced(t *testing.T) {
	ids, _ := fixedIDs()
	ts := newTestSession(t, doc(p("<a>")), ids)
	tags, err := ts.Paste(Clipboard{HTML: `<p><img src="/media/a.png" data-upload-id="forged"></p>`})
	require.NoError(t, err)
	assert.Empty(t, tags)
	assert.Empty(t, ts.PendingUploads())
}

func TestPasteText(t *testing.T) {
	ts := newTestSession(t, doc(p("ab<a>")))
	_, err := ts.Paste(Clipboard{Text: "**bold** word"})
	require.NoError(t, err)
	assertDoc(t, ts.Doc(), doc(p("ab", strong("bold"), " word")))

	cfg := config.Default()
	cfg.Paste.Markdown = false
	ts = newTestSession(t, doc(p("<a>")), WithConfig(cfg))
	_, err = ts.Paste(Clipboard{Text: "one **x**\ntwo\n\nthree"})
	require.NoError(t, err)
	assertDoc(t, ts.Doc(), doc(p("one **x**", br(), "two"), p("three")))

	// nothing to paste
	tags, err := ts.Paste(Clipboard{Text: "  \n"})
	require.NoError(t, err)
	assert.Nil(t, tags)
}

func TestPasteDefaultIDs(t *testing.T) {
	ts := newTestSession(t, doc(p("<a>")))
	tags, err := ts.Paste(Clipboard{Text: "![shot](https://elsewhere.example/a.png)"})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	id, err := uuid.Parse(tags[0])
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestPasteIDFailure(t *testing.T) {
	ts := newTestSession(t, doc(p("<a>")), WithIDGenerator(func() (string, error) {
		return "", errors.New("no entropy")
	}))
	before := ts.Doc()
	_, err := ts.Paste(Clipboard{HTML: `<p><img src="https://elsewhere.example/a.png"></p>`})
	assert.Error(t, err)
	assert.Same(t, before, ts.Doc())
}

func TestCompleteUpload(t *testing.T) {
	ids, _ := fixedIDs()
	ts := newTestSession(t, doc(p("<a>")), ids)
	_, err := ts.Paste(Clipboard{HTML: `<p><img src="https://elsewhere.example/a.png" alt="a"> and <img src="https://elsewhere.example/b.png"></p>`})
	require.NoError(t, err)
	require.Len(t, ts.PendingUploads(), 2)

	assert.ErrorIs(t, ts.CompleteUpload("nope", "x.png"), ErrUnknownUpload)
	require.NoError(t, ts.CompleteUpload("upload-2", "https://cdn.gamedesk.example/b.png"))
	uploads := ts.PendingUploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "upload-1", uploads[0].ID)

	require.NoError(t, ts.CompleteUpload("upload-1", "https://cdn.gamedesk.example/a.png"))
	assert.Empty(t, ts.PendingUploads())
	assertDoc(t, ts.Doc(), doc(p(
		img(attrs{"src": "https://cdn.gamedesk.example/a.png", "alt": "a"}),
		" and ",
		img(attrs{"src": "https://cdn.gamedesk.example/b.png"}),
	)))
	out, err := ts.HTML()
	require.NoError(t, err)
	assert.NotContains(t, out, cms.UploadAttr)
	assert.Contains(t, ts.logs.String(), "upload completed")
}
