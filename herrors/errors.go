// Package herrors defines the error taxonomy returned across the align-and-merge
// core's package boundaries.
package herrors

import (
	"errors"
	"fmt"
)

// Kind classifies a core failure. Callers switch on Kind rather than on
// error string content.
type Kind int

const (
	// InvalidArgument covers malformed bursts, out-of-range config, or
	// dimension mismatches. Raised before any GPU work starts.
	InvalidArgument Kind = iota

	// Pipeline covers kernel compile / pipeline-state creation failure.
	// Fatal: the core is unusable until re-initialized.
	Pipeline

	// DeviceLost covers a GPU command-buffer reporting failure after wait.
	// Recoverable by re-initializing the GPU context.
	DeviceLost

	// OutOfMemory covers texture/buffer allocation failure.
	OutOfMemory

	// Cancelled covers a cooperative cancel observed between stages.
	Cancelled

	// Internal covers invariant violations; indicates a bug in the core.
	Internal
)

// String renders the kind's name, matching the spec's taxonomy labels.
func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case Pipeline:
		return "Pipeline"
	case DeviceLost:
		return "DeviceLost"
	case OutOfMemory:
		return "OutOfMemory"
	case Cancelled:
		return "Cancelled"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the concrete error type returned by the core. Stage names the
// component or operation that raised it (e.g. "align.Align", "merge/frequency
// tile 12,4") so a caller can tell which stage failed without parsing strings.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("hdrplus: %s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("hdrplus: %s: %s: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for the given kind and stage, optionally wrapping cause.
func New(kind Kind, stage string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: cause}
}

// Newf builds an *Error with a formatted cause message.
func Newf(kind Kind, stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to Internal if err is not
// (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
