package processes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	logs []string
}

func (m *mockLogger) Info(format string, v ...interface{}) {
	m.logs = append(m.logs, "INFO: "+fmt.Sprintf(format, v...))
}

func (m *mockLogger) Debug(format string, v ...interface{}) {
	m.logs = append(m.logs, "DEBUG: "+fmt.Sprintf(format, v...))
}

func (m *mockLogger) Error(format string, v ...interface{}) {
	m.logs = append(m.logs, "ERROR: "+fmt.Sprintf(format, v...))
}

// fakeEnumerator serves a fixed snapshot, or fails.
type fakeEnumerator struct {
	procs []Identity
	err   error
	walks int
}

func (f *fakeEnumerator) Each(yield func(Identity) bool) error {
	f.walks++
	if f.err != nil {
		return f.err
	}
	for _, p := range f.procs {
		if !yield(p) {
			return nil
		}
	}
	return nil
}

func newTestResolver(e Enumerator) *Resolver {
	r := NewResolver(&mockLogger{})
	r.SetEnumerator(e)
	return r
}

func TestResolver_ByPID_Found(t *testing.T) {
	enum := &fakeEnumerator{procs: []Identity{
		{PID: 4, Name: "System"},
		{PID: 900, Name: "worker.exe"},
		{PID: 1204, Name: "svchost.exe"},
	}}
	r := newTestResolver(enum)

	id, err := r.Resolve(ByPID(900))

	require.NoError(t, err)
	assert.Equal(t, Identity{PID: 900, Name: "worker.exe"}, id)
}

func TestResolver_ByPID_NotFound(t *testing.T) {
	enum := &fakeEnumerator{procs: []Identity{
		{PID: 4, Name: "System"},
	}}
	r := newTestResolver(enum)

	_, err := r.Resolve(ByPID(4821))

	assert.ErrorIs(t, err, ErrProcessNotFound)
}

func TestResolver_ByName_CaseInsensitive(t *testing.T) {
	enum := &fakeEnumerator{procs: []Identity{
		{PID: 312, Name: "Notepad.EXE"},
		{PID: 4, Name: "System"},
	}}
	r := newTestResolver(enum)

	id, err := r.Resolve(ByName("notepad.exe"))

	require.NoError(t, err)
	assert.Equal(t, 312, id.PID)
	assert.Equal(t, "Notepad.EXE", id.Name)
}

func TestResolver_ByName_NotFound(t *testing.T) {
	enum := &fakeEnumerator{procs: []Identity{
		{PID: 4, Name: "System"},
	}}
	r := newTestResolver(enum)

	_, err := r.Resolve(ByName("ghost.exe"))

	assert.ErrorIs(t, err, ErrProcessNotFound)
}

func TestResolver_ByName_Ambiguous(t *testing.T) {
	enum := &fakeEnumerator{procs: []Identity{
		{PID: 204, Name: "worker"},
		{PID: 4, Name: "System"},
		{PID: 101, Name: "WORKER"},
	}}
	r := newTestResolver(enum)

	_, err := r.Resolve(ByName("worker"))

	var ambiguous *AmbiguousTargetError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "worker", ambiguous.Name)
	assert.Equal(t, []int{101, 204}, ambiguous.PIDs, "must carry every matching PID")
}

func TestResolver_EnumerationFailure(t *testing.T) {
	enum := &fakeEnumerator{err: errors.New("failed to create snapshot: access denied")}
	r := newTestResolver(enum)

	_, err := r.Resolve(ByPID(900))

	var enumErr *EnumerationError
	require.ErrorAs(t, err, &enumErr)
	assert.NotErrorIs(t, err, ErrProcessNotFound, "a failed snapshot is not a missing process")
}

func TestResolver_FailedResolutionIsIdempotent(t *testing.T) {
	enum := &fakeEnumerator{procs: []Identity{{PID: 4, Name: "System"}}}
	r := newTestResolver(enum)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ByPID(4821))
		assert.ErrorIs(t, err, ErrProcessNotFound)
	}
	assert.Equal(t, 3, enum.walks, "each call takes a fresh snapshot")
}

func TestSelector_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sel     Selector
		wantErr bool
	}{
		{"valid pid", ByPID(1234), false},
		{"valid name", ByName("worker.exe"), false},
		{"zero value selects nothing", Selector{}, true},
		{"zero pid", ByPID(0), true},
		{"negative pid", ByPID(-5), true},
		{"empty name", ByName(""), true},
		{"blank name", ByName("   "), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolver_InvalidSelectorFailsBeforeEnumeration(t *testing.T) {
	enum := &fakeEnumerator{procs: []Identity{{PID: 4, Name: "System"}}}
	r := newTestResolver(enum)

	_, err := r.Resolve(Selector{})

	assert.Error(t, err)
	assert.Equal(t, 0, enum.walks, "validation must happen before any OS access")
}

func TestResolver_List(t *testing.T) {
	enum := &fakeEnumerator{procs: []Identity{
		{PID: 1204, Name: "svchost.exe"},
		{PID: 4, Name: "System"},
		{PID: 900, Name: "worker.exe"},
	}}
	r := newTestResolver(enum)

	procs, err := r.List()

	require.NoError(t, err)
	require.Len(t, procs, 3)
	assert.Equal(t, 4, procs[0].PID, "listing is sorted by PID")
	assert.Equal(t, 1204, procs[2].PID)
}

func TestEnumerator_EarlyStop(t *testing.T) {
	enum := &fakeEnumerator{procs: []Identity{
		{PID: 1, Name: "a"},
		{PID: 2, Name: "b"},
		{PID: 3, Name: "c"},
	}}

	var seen []int
	err := enum.Each(func(p Identity) bool {
		seen = append(seen, p.PID)
		return p.PID < 2
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}
