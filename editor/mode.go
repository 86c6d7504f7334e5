package editor

import (
	"fmt"

	"github.com/gamedesk/richedit/model"
)

// Mode is the editing mode of a session.
type Mode int

// Editing modes. In Raw mode the markup is edited as text, and the
// structured operations are not available.
const (
	Structured Mode = iota
	Raw
)

func (m Mode) String() string {
	switch m {
	case Structured:
		return "structured"
	case Raw:
		return "raw"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Mode returns the editing mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// EnterRaw switches to raw mode and returns the markup of the document,
// which becomes the raw buffer.
func (s *Session) EnterRaw() (string, error) {
	if s.mode == Raw {
		return s.raw, nil
	}
	raw, err := s.serializer.RenderFragment(s.state.Doc.Content)
	if err != nil {
		return "", fmt.Errorf("render post: %w", err)
	}
	s.raw = raw
	s.mode = Raw
	s.logger.Debug("entered raw mode", "version", s.version)
	return raw, nil
}

// EditRaw replaces the raw buffer.
func (s *Session) EditRaw(text string) error {
	if s.mode != Raw {
		return ErrNotRaw
	}
	s.raw = text
	if s.onChange != nil {
		s.onChange(text)
	}
	return nil
}

// ExitRaw parses the raw buffer strictly and goes back to structured mode
// with the parsed document. When the buffer does not parse, the session
// stays in raw mode with the buffer untouched, and the *model.ParseError is
// returned.
func (s *Session) ExitRaw() error {
	if s.mode != Raw {
		return ErrNotRaw
	}
	doc, err := s.parser.Parse(s.raw, model.ParseStrict)
	if err != nil {
		s.logger.Warn("raw markup rejected", "error", err)
		return fmt.Errorf("exit raw mode: %w", err)
	}
	s.mode = Structured
	s.raw = ""
	s.replaceDoc(doc)
	s.logger.Debug("left raw mode", "version", s.version)
	return nil
}
