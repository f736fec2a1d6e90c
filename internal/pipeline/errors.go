package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies pipeline failures by which subsystem broke, so callers can
// decide whether a file failure is worth retrying and operators know where
// to look.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig: invalid or missing configuration; caught before any run starts.
	KindConfig
	// KindToolchain: ffmpeg/ffprobe/mkvmerge invocation failed.
	KindToolchain
	// KindProvider: the translation provider errored or was unreachable.
	KindProvider
	// KindIntegrity: an invariant broke, e.g. translation count mismatch.
	KindIntegrity
	// KindStorage: filesystem or database writes failed.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "Config"
	case KindToolchain:
		return "Toolchain"
	case KindProvider:
		return "Provider"
	case KindIntegrity:
		return "Integrity"
	case KindStorage:
		return "Storage"
	default:
		return "Unknown"
	}
}

// Error is the typed failure every stage surfaces. Context carries the
// file/track/batch coordinates that make a failure diagnosable from a log
// line alone.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func NewError(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Kind.String(), e.Message))

	if len(e.Context) > 0 {
		var ctxParts []string
		for k, v := range e.Context {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// IsKind reports whether err carries the given Kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return KindUnknown
}
