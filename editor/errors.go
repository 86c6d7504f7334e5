package editor

import "errors"

var (
	// ErrEntityNotFound is returned when a clicked element does not match any
	// image or link of the document.
	ErrEntityNotFound = errors.New("editor: no entity matches the clicked element")
	// ErrStaleTarget is returned when a property modal result targets a
	// range that changed since it was resolved.
	ErrStaleTarget = errors.New("editor: edit target is stale")
	// ErrNoPendingEdit is returned when a modal result arrives while no
	// modal is open.
	ErrNoPendingEdit = errors.New("editor: no pending edit")
	// ErrTargetKind is returned when a modal result does not match the kind
	// of the pending target.
	ErrTargetKind = errors.New("editor: modal result does not match the edit target")
	// ErrRawMode is returned for structured operations while the raw markup
	// is being edited.
	ErrRawMode = errors.New("editor: not available in raw mode")
	// ErrNotRaw is returned when the raw buffer is used outside of raw mode.
	ErrNotRaw = errors.New("editor: not in raw mode")
	// ErrUnknownUpload is returned when no image carries the given upload
	// tag.
	ErrUnknownUpload = errors.New("editor: unknown upload")
	// ErrOutOfRange is returned for positions outside of the document.
	ErrOutOfRange = errors.New("editor: position out of range")
	// ErrNotApplicable is returned by commands that can not apply to the
	// current state.
	ErrNotApplicable = errors.New("editor: command not applicable")
)
