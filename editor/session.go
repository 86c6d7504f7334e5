// Package editor is the editing core of the post editor: a session holding a
// structurally valid document, the commands changing it, the formats active
// at the selection, the raw markup mode, the resolution of double-clicked
// images and links, and the paste normalizer.
package editor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gamedesk/richedit/config"
	"github.com/gamedesk/richedit/markdown"
	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/schema/cms"
	"github.com/gamedesk/richedit/transform"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
)

// Session is one editing surface. It owns its document: the host only gets
// serialized snapshots, through HTML and the change callback.
//
// A Session is not safe for concurrent use.
type Session struct {
	cfg      *config.Config
	logger   *slog.Logger
	onChange func(string)
	newID    func() (string, error)

	parser     *model.DOMParser
	serializer *model.DOMSerializer
	sanitizer  *bluemonday.Policy
	minifier   *minify.M
	mdParser   parser.Parser
	mdMapper   markdown.NodeMapper

	state   State
	formats FormatState
	mode    Mode
	raw     string
	pending *PendingEditTarget

	// version counts the document changes. history holds the step maps of
	// the changes since the document was last replaced wholesale, which
	// starts a new epoch.
	version int
	epoch   int
	history []*transform.StepMap
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the configuration. The default is config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithOnChange sets the callback receiving the markup of the document after
// every change.
func WithOnChange(fn func(string)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// WithIDGenerator replaces the generator of upload tags, which makes UUIDv7
// strings by default.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func newUploadID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// New starts a session on the given post markup. Markup that does not parse
// strictly is loaded leniently, dropping what the schema can not hold.
func New(raw string, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:        config.Default(),
		newID:      newUploadID,
		parser:     model.DOMParserFromSchema(cms.Schema),
		serializer: model.DOMSerializerFromSchema(cms.Schema),
		sanitizer:  pastePolicy(),
		minifier:   minify.New(),
		mdParser:   markdown.NewParser(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("editor config: %w", err)
	}
	s.minifier.AddFunc("text/html", html.Minify)
	s.mdMapper = markdown.DefaultNodeMapper.With(ast.KindHeading, markdown.HeadingMapper(s.cfg.Headings.MaxLevel))

	doc, err := s.parser.Parse(raw, model.ParseStrict)
	if err != nil {
		s.logger.Warn("post markup is not strict, loading it leniently", "error", err)
		if doc, err = s.parser.Parse(raw, model.ParseLenient); err != nil {
			return nil, fmt.Errorf("load post: %w", err)
		}
	}
	s.state = State{Doc: doc, Selection: startCaret(doc)}
	s.formats = ComputeActiveFormats(doc, s.state.Selection)
	return s, nil
}

// startCaret is an empty selection at the start of the first textblock.
func startCaret(doc *model.Node) Selection {
	pos := 0
	found := false
	doc.Descendants(func(node *model.Node, at int, _ *model.Node, _ int) bool {
		if found {
			return false
		}
		if node.IsTextblock() {
			pos, found = at+1, true
			return false
		}
		return node.IsBlock()
	})
	return Caret(pos)
}

// State returns the document and selection.
func (s *Session) State() State {
	return s.state
}

// Doc returns the document.
func (s *Session) Doc() *model.Node {
	return s.state.Doc
}

// Formats returns the formats active at the selection. It is empty in raw
// mode.
func (s *Session) Formats() FormatState {
	if s.mode == Raw {
		return FormatState{}
	}
	return s.formats
}

// Version increases with every change of the document.
func (s *Session) Version() int {
	return s.version
}

// Pending returns the target of the open property modal, or nil.
func (s *Session) Pending() *PendingEditTarget {
	return s.pending
}

// HTML returns the markup of the document, minified when configured so. In
// raw mode it returns the raw buffer.
func (s *Session) HTML() (string, error) {
	if s.mode == Raw {
		return s.raw, nil
	}
	out, err := s.serializer.RenderFragment(s.state.Doc.Content)
	if err != nil {
		return "", fmt.Errorf("render post: %w", err)
	}
	if s.cfg.Output.Minify {
		return s.minifier.String("text/html", out)
	}
	return out, nil
}

// Markdown exports the document as CommonMark.
func (s *Session) Markdown() (string, error) {
	if s.mode == Raw {
		return "", ErrRawMode
	}
	return markdown.DefaultSerializer.Serialize(s.state.Doc), nil
}

// Dispatch applies a command. It returns false, leaving the session as it
// was, when the command does not apply.
func (s *Session) Dispatch(cmd Command) bool {
	if err := s.dispatch(cmd); err != nil {
		s.logger.Debug("command rejected", "command", fmt.Sprintf("%T", cmd), "error", err)
		return false
	}
	return true
}

func (s *Session) dispatch(cmd Command) error {
	if s.mode == Raw {
		return ErrRawMode
	}
	if sbt, ok := cmd.(SetBlockType); ok && sbt.Type == cms.Heading {
		level, _ := sbt.Attrs["level"].(int)
		if level < 1 || level > s.cfg.Headings.MaxLevel {
			return notApplicable("heading level %d", level)
		}
	}
	next, tr, err := run(s.state, cmd)
	if err != nil {
		return err
	}
	s.commit(tr, next.Selection)
	return nil
}

// Select moves the selection.
func (s *Session) Select(r Range) bool {
	return s.Dispatch(SetSelection{Range: r})
}

// DoubleClick resolves the clicked image or link and opens a modal session
// on it. It returns nil when the click is not on an entity of the document.
func (s *Session) DoubleClick(target ClickTarget) *PendingEditTarget {
	if s.mode == Raw {
		return nil
	}
	pending, err := ResolveEntity(s.state.Doc, target)
	if err != nil {
		if !errors.Is(err, ErrEntityNotFound) {
			s.logger.Warn("double click resolution failed", "error", err)
		} else {
			s.logger.Debug("double click on no entity", "error", err)
		}
		return nil
	}
	pending.Version = s.version
	pending.offset = len(s.history)
	pending.epoch = s.epoch
	s.pending = pending
	return pending
}

// commit makes the result of a transform the current state.
func (s *Session) commit(tr *transform.Transform, sel Selection) {
	changed := tr.DocChanged()
	s.state = State{Doc: tr.Doc, Selection: sel}
	if changed {
		s.history = append(s.history, tr.Mapping.Maps...)
		s.version++
	}
	s.formats = ComputeActiveFormats(s.state.Doc, sel)
	if changed {
		s.emit()
	}
}

// replaceDoc swaps the document wholesale. Positions of the old document
// can no longer be mapped.
func (s *Session) replaceDoc(doc *model.Node) {
	start := s.state.Doc.Content.FindDiffStart(doc.Content)
	changed := start != nil
	if changed {
		s.logger.Debug("document replaced", "diff_start", *start)
	}
	s.state = State{Doc: doc, Selection: startCaret(doc)}
	s.history = nil
	s.epoch++
	s.version++
	s.formats = ComputeActiveFormats(doc, s.state.Selection)
	if changed {
		s.emit()
	}
}

func (s *Session) emit() {
	if s.onChange == nil {
		return
	}
	out, err := s.HTML()
	if err != nil {
		s.logger.Error("can not render the post", "error", err)
		return
	}
	s.onChange(out)
}
