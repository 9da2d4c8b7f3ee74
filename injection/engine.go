package injection

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"

	"github.com/stitch/stitch/processes"
)

// ErrTargetGone marks an open failure caused by the target process
// having already exited. The platform System implementation wraps it
// so the engine can tell a dead target from a privilege problem.
var ErrTargetGone = errors.New("target process no longer exists")

// Handle is an opaque OS handle owned by the engine for the duration
// of one attempt.
type Handle uintptr

// System is the narrow OS surface the engine drives. The platform
// implementation talks to Win32; tests substitute a fake via
// SetSystem to exercise the full sequence anywhere.
type System interface {
	// OpenProcess acquires a process handle with the minimal rights
	// the remaining steps need. Wraps ErrTargetGone when the PID is
	// already dead.
	OpenProcess(pid int) (Handle, error)

	// LoaderEntry resolves, in our own address space, the address of
	// the native loader's load-by-path entry point.
	LoaderEntry() (uintptr, error)

	// AllocRemote commits size bytes of read/write (non-executable)
	// memory in the target and returns its remote address.
	AllocRemote(process Handle, size uintptr) (uintptr, error)

	// WriteRemote copies data into the target at addr and reports the
	// number of bytes actually transferred.
	WriteRemote(process Handle, addr uintptr, data []byte) (uintptr, error)

	// FreeRemote releases a remote allocation.
	FreeRemote(process Handle, addr uintptr) error

	// CreateRemoteThread starts a thread inside the target at entry
	// with arg as its single argument.
	CreateRemoteThread(process Handle, entry, arg uintptr) (Handle, error)

	// WaitThread waits up to timeout for the thread to finish.
	// Returns false without error if the timeout elapsed first.
	WaitThread(thread Handle, timeout time.Duration) (bool, error)

	// ThreadExitCode reads the finished thread's exit value.
	ThreadExitCode(thread Handle) (uint32, error)

	// CloseHandle releases a handle from OpenProcess or
	// CreateRemoteThread.
	CloseHandle(h Handle) error
}

// Engine performs remote-thread DLL injection. One attempt runs
// start-to-finish at a time; there is no internal queue and no
// automatic retry.
type Engine struct {
	logger interface {
		Info(string, ...interface{})
		Debug(string, ...interface{})
		Error(string, ...interface{})
	}
	system  System
	timeout time.Duration
	poll    time.Duration
}

// NewEngine creates an injection engine backed by the platform's
// process APIs. On platforms without support, Inject fails.
func NewEngine(logger interface {
	Info(string, ...interface{})
	Debug(string, ...interface{})
	Error(string, ...interface{})
}) *Engine {
	return &Engine{
		logger:  logger,
		system:  platformSystem(),
		timeout: 10 * time.Second,
		poll:    100 * time.Millisecond,
	}
}

// SetSystem replaces the OS layer. Used by tests.
func (e *Engine) SetSystem(s System) {
	e.system = s
}

// SetTimeout bounds the wait on the remote thread.
func (e *Engine) SetTimeout(d time.Duration) {
	if d > 0 {
		e.timeout = d
	}
}

// SetPollInterval sets the wait slice used to notice caller
// cancellation between waits.
func (e *Engine) SetPollInterval(d time.Duration) {
	if d > 0 {
		e.poll = d
	}
}

// Inject makes the target process load the library at dllPath and
// returns the base address the target's loader reported. The target
// identity must come from a fresh resolution; it is never re-resolved
// here. Failures are *Error values carrying one Kind each, and every
// handle and remote allocation acquired on the way is released before
// Inject returns, on every path.
func (e *Engine) Inject(ctx context.Context, target processes.Identity, dllPath string) (uintptr, error) {
	if e.system == nil {
		return 0, fmt.Errorf("dll injection is not supported on this platform")
	}

	attempt := uuid.NewString()
	e.logger.Info("attempt %s: injecting %q into %s (pid %d)", attempt, dllPath, target.Name, target.PID)

	payload := encodeLibraryPath(dllPath)

	process, err := e.system.OpenProcess(target.PID)
	if err != nil {
		if errors.Is(err, ErrTargetGone) {
			return 0, failed(KindProcessNotFound, err)
		}
		return 0, failed(KindAccessDenied, err)
	}
	defer e.closeHandle(attempt, "process", process)
	e.logger.Debug("attempt %s: opened process handle %#x", attempt, process)

	remote, err := e.system.AllocRemote(process, uintptr(len(payload)))
	if err != nil {
		return 0, failed(KindRemoteAllocationFailed, err)
	}
	defer e.releaseRemote(attempt, process, remote, len(payload))
	e.logger.Debug("attempt %s: allocated %d bytes at remote address %#x", attempt, len(payload), remote)

	written, err := e.system.WriteRemote(process, remote, payload)
	if err != nil {
		return 0, failed(KindRemoteWriteFailed, err)
	}
	if written != uintptr(len(payload)) {
		return 0, failed(KindRemoteWriteFailed,
			fmt.Errorf("short write: %d of %d bytes", written, len(payload)))
	}

	entry, err := e.system.LoaderEntry()
	if err != nil {
		return 0, failed(KindRemoteThreadCreationFailed,
			fmt.Errorf("resolving loader entry point: %w", err))
	}
	e.logger.Debug("attempt %s: loader entry point at %#x", attempt, entry)

	thread, err := e.system.CreateRemoteThread(process, entry, remote)
	if err != nil {
		return 0, failed(KindRemoteThreadCreationFailed, err)
	}
	defer e.closeHandle(attempt, "thread", thread)
	e.logger.Info("attempt %s: remote thread started in pid %d", attempt, target.PID)

	if err := e.waitForThread(ctx, thread); err != nil {
		return 0, err
	}

	code, err := e.system.ThreadExitCode(thread)
	if err != nil {
		return 0, fmt.Errorf("reading remote thread exit code: %w", err)
	}
	if code == 0 {
		return 0, failed(KindTargetLoadFailed, nil)
	}

	// The thread exit value is a DWORD, so on 64-bit targets this is
	// the low 32 bits of the module handle. Non-zero still means the
	// load succeeded.
	base := uintptr(code)
	e.logger.Info("attempt %s: library loaded at base %#x", attempt, base)
	return base, nil
}

// waitForThread blocks until the remote thread finishes, the timeout
// elapses, or the caller cancels. The wait is sliced so cancellation
// is noticed within one poll interval; the remote thread itself
// cannot be cancelled and is left to run.
func (e *Engine) waitForThread(ctx context.Context, thread Handle) error {
	deadline := time.Now().Add(e.timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return failed(KindInjectionTimedOut,
				fmt.Errorf("remote thread still running after %s", e.timeout))
		}

		slice := e.poll
		if slice > remaining {
			slice = remaining
		}

		done, err := e.system.WaitThread(thread, slice)
		if err != nil {
			return fmt.Errorf("waiting on remote thread: %w", err)
		}
		if done {
			return nil
		}
	}
}

// releaseRemote scrubs the path bytes out of the target and frees the
// allocation. Best effort: a failure here is logged, never returned,
// because it runs on every exit path.
func (e *Engine) releaseRemote(attempt string, process Handle, addr uintptr, size int) {
	if _, err := e.system.WriteRemote(process, addr, make([]byte, size)); err != nil {
		e.logger.Debug("attempt %s: failed to scrub remote buffer: %v", attempt, err)
	}
	if err := e.system.FreeRemote(process, addr); err != nil {
		e.logger.Error("attempt %s: failed to free remote memory at %#x: %v", attempt, addr, err)
		return
	}
	e.logger.Debug("attempt %s: released remote memory at %#x", attempt, addr)
}

func (e *Engine) closeHandle(attempt, what string, h Handle) {
	if err := e.system.CloseHandle(h); err != nil {
		e.logger.Error("attempt %s: failed to close %s handle: %v", attempt, what, err)
	}
}

// encodeLibraryPath converts the path to the UTF-16LE byte sequence
// the Windows loader expects, including the two-byte terminator. The
// result is the exact payload; the remote allocation gets no slack.
func encodeLibraryPath(path string) []byte {
	units := utf16.Encode([]rune(path))
	buf := make([]byte, 0, (len(units)+1)*2)
	for _, u := range units {
		buf = append(buf, byte(u), byte(u>>8))
	}
	buf = append(buf, 0, 0)
	return buf
}
