package processes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Identity is a point-in-time snapshot of one live process. It is a
// lookup key, not a handle to the process: it goes stale the moment
// the process exits, and every later operation against it must
// tolerate the process having disappeared.
type Identity struct {
	PID  int
	Name string
}

// Enumerator walks a point-in-time snapshot of live processes. The
// walk is a single pass: yield returns false to stop early, and the
// walk cannot be restarted. A process that exits mid-walk simply does
// not appear.
type Enumerator interface {
	Each(yield func(Identity) bool) error
}

type selectorKind int

const (
	selectNone selectorKind = iota
	selectPID
	selectName
)

// Selector identifies the target process either by PID or by
// executable name. The zero value selects nothing and fails
// validation.
type Selector struct {
	kind selectorKind
	pid  int
	name string
}

// ByPID selects the process with the given PID.
func ByPID(pid int) Selector {
	return Selector{kind: selectPID, pid: pid}
}

// ByName selects the process whose executable name matches,
// case-insensitively and including the extension.
func ByName(name string) Selector {
	return Selector{kind: selectName, name: name}
}

// Validate checks the selector before any OS access happens.
func (s Selector) Validate() error {
	switch s.kind {
	case selectPID:
		if s.pid <= 0 {
			return fmt.Errorf("target PID must be positive, got %d", s.pid)
		}
	case selectName:
		if strings.TrimSpace(s.name) == "" {
			return fmt.Errorf("target process name must not be empty")
		}
	default:
		return fmt.Errorf("no target selector provided")
	}
	return nil
}

func (s Selector) String() string {
	switch s.kind {
	case selectPID:
		return fmt.Sprintf("pid=%d", s.pid)
	case selectName:
		return fmt.Sprintf("name=%q", s.name)
	default:
		return "none"
	}
}

// ErrProcessNotFound is returned when a selector matches no live
// process at resolution time.
var ErrProcessNotFound = errors.New("process not found")

// EnumerationError reports a failed process snapshot, distinct from a
// selector that matched nothing.
type EnumerationError struct {
	Err error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("process enumeration failed: %v", e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// AmbiguousTargetError reports a name selector that matched more than
// one live process. Picking one silently would risk injecting into
// the wrong process, so the caller must disambiguate by PID.
type AmbiguousTargetError struct {
	Name string
	PIDs []int
}

func (e *AmbiguousTargetError) Error() string {
	return fmt.Sprintf("process name %q matches multiple PIDs %v, select by PID instead", e.Name, e.PIDs)
}

// Resolver turns a Selector into exactly one Identity, or fails
// explicitly.
type Resolver struct {
	logger interface {
		Info(string, ...interface{})
		Debug(string, ...interface{})
		Error(string, ...interface{})
	}
	enum Enumerator
}

// NewResolver creates a resolver backed by the platform's process
// snapshot facility.
func NewResolver(logger interface {
	Info(string, ...interface{})
	Debug(string, ...interface{})
	Error(string, ...interface{})
}) *Resolver {
	return &Resolver{
		logger: logger,
		enum:   platformEnumerator(),
	}
}

// SetEnumerator replaces the snapshot source. Used by tests.
func (r *Resolver) SetEnumerator(e Enumerator) {
	r.enum = e
}

// Resolve maps the selector to exactly one live process. Each call
// takes a fresh snapshot; identities are never reused across calls.
func (r *Resolver) Resolve(sel Selector) (Identity, error) {
	if err := sel.Validate(); err != nil {
		return Identity{}, err
	}

	r.logger.Debug("resolving target %s", sel)

	switch sel.kind {
	case selectPID:
		return r.resolvePID(sel.pid)
	default:
		return r.resolveName(sel.name)
	}
}

func (r *Resolver) resolvePID(pid int) (Identity, error) {
	var (
		found Identity
		ok    bool
	)
	err := r.enum.Each(func(p Identity) bool {
		if p.PID == pid {
			found, ok = p, true
			return false // PIDs are unique among live processes
		}
		return true
	})
	if err != nil {
		return Identity{}, &EnumerationError{Err: err}
	}
	if !ok {
		return Identity{}, fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid)
	}
	return found, nil
}

func (r *Resolver) resolveName(name string) (Identity, error) {
	fold := cases.Fold()
	want := fold.String(name)

	var matches []Identity
	err := r.enum.Each(func(p Identity) bool {
		if fold.String(p.Name) == want {
			matches = append(matches, p)
		}
		return true
	})
	if err != nil {
		return Identity{}, &EnumerationError{Err: err}
	}

	switch len(matches) {
	case 0:
		return Identity{}, fmt.Errorf("%w: name %q", ErrProcessNotFound, name)
	case 1:
		return matches[0], nil
	default:
		pids := make([]int, len(matches))
		for i, m := range matches {
			pids[i] = m.PID
		}
		sort.Ints(pids)
		return Identity{}, &AmbiguousTargetError{Name: name, PIDs: pids}
	}
}

// List collects the full snapshot, for display.
func (r *Resolver) List() ([]Identity, error) {
	var out []Identity
	err := r.enum.Each(func(p Identity) bool {
		out = append(out, p)
		return true
	})
	if err != nil {
		return nil, &EnumerationError{Err: err}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}
