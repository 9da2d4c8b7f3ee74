package injection

import "fmt"

// Kind names one failure mode of an injection attempt. The set is
// closed: callers and tests discriminate with errors.As and the Kind
// field, never by matching message strings.
type Kind int

const (
	// KindAccessDenied: insufficient privilege to open, allocate in,
	// write to, or create a thread in the target.
	KindAccessDenied Kind = iota

	// KindProcessNotFound: the target exited between resolution and
	// open.
	KindProcessNotFound

	// KindRemoteAllocationFailed: the allocation in the target's
	// address space was refused.
	KindRemoteAllocationFailed

	// KindRemoteWriteFailed: the payload copy failed or transferred
	// fewer bytes than requested.
	KindRemoteWriteFailed

	// KindRemoteThreadCreationFailed: the OS refused to start the
	// remote thread, or the loader entry point could not be resolved.
	KindRemoteThreadCreationFailed

	// KindInjectionTimedOut: the bounded wait elapsed before the
	// remote thread finished. The thread may still complete later;
	// this attempt is abandoned.
	KindInjectionTimedOut

	// KindTargetLoadFailed: everything on our side succeeded but the
	// target's loader returned zero, e.g. a missing dependency, an
	// architecture mismatch, or a path invalid from the target's
	// point of view.
	KindTargetLoadFailed
)

func (k Kind) String() string {
	switch k {
	case KindAccessDenied:
		return "access denied"
	case KindProcessNotFound:
		return "process not found"
	case KindRemoteAllocationFailed:
		return "remote allocation failed"
	case KindRemoteWriteFailed:
		return "remote write failed"
	case KindRemoteThreadCreationFailed:
		return "remote thread creation failed"
	case KindInjectionTimedOut:
		return "injection timed out"
	case KindTargetLoadFailed:
		return "library failed to load inside the target"
	default:
		return "unknown injection error"
	}
}

// Error is a failed injection attempt. Err carries the underlying OS
// error, where one exists, for diagnosis.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func failed(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
