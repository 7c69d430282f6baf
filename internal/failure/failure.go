// Package failure defines the error taxonomy shared by the acquisition and
// execution components. Every fallible operation returns a plain Go error; the
// ones that cross a component boundary are *Error values tagged with a Kind so
// callers can branch on the failure class without string matching.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate here.
	KindUnknown Kind = iota
	// KindConfigUnavailable means configuration or environment needed to
	// resolve a path is missing.
	KindConfigUnavailable
	// KindUnsupportedPlatform means no download URL can be formed.
	KindUnsupportedPlatform
	// KindDownload covers network and HTTP failures.
	KindDownload
	// KindExtract covers a non-zero tar exit or a rejected archive.
	KindExtract
	// KindExec covers spawn failures and failed caller-issued commands.
	KindExec
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfigUnavailable:
		return "ConfigUnavailable"
	case KindUnsupportedPlatform:
		return "UnsupportedPlatform"
	case KindDownload:
		return "DownloadFailure"
	case KindExtract:
		return "ExtractFailure"
	case KindExec:
		return "ExecFailure"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is matching against a kind.
var (
	ErrConfigUnavailable   = &Error{Kind: KindConfigUnavailable}
	ErrUnsupportedPlatform = &Error{Kind: KindUnsupportedPlatform}
	ErrDownload            = &Error{Kind: KindDownload}
	ErrExtract             = &Error{Kind: KindExtract}
	ErrExec                = &Error{Kind: KindExec}
)

// Error is a kind-tagged failure carrying one or more user-facing messages.
type Error struct {
	Kind     Kind
	Messages []string
	Err      error
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Messages: []string{fmt.Sprintf(format, args...)}}
}

// Wrap creates an Error of the given kind whose message is prefix followed by
// the underlying error text. A nil err yields nil.
func Wrap(kind Kind, prefix string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Messages: []string{prefix + err.Error()}, Err: err}
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Kind.String()
	}
	return strings.Join(e.Messages, "; ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Messages returns the user-facing messages of err, falling back to its text.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) && len(fe.Messages) > 0 {
		return append([]string(nil), fe.Messages...)
	}
	return []string{err.Error()}
}
