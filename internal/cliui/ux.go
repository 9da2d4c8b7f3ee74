// Package cliui provides the CLI output helpers: ANSI colors with
// graceful fallbacks and user-facing status lines. Colors respect
// NO_COLOR, TERM=dumb, and non-TTY output.
package cliui

import (
	"fmt"
	"os"
	"runtime"
	"sync"
)

var (
	// C is the global color helper instance
	C = &Colors{}

	ttyCache = make(map[*os.File]bool)
	ttyMu    sync.RWMutex

	enabled     bool
	enabledMu   sync.Mutex
	enabledInit bool
)

// Colors provides ANSI color codes with graceful fallbacks
type Colors struct{}

func (c *Colors) Bold(s string) string   { return colorize(s, "\033[1m", "\033[0m") }
func (c *Colors) Dim(s string) string    { return colorize(s, "\033[2m", "\033[0m") }
func (c *Colors) Green(s string) string  { return colorize(s, "\033[32m", "\033[0m") }
func (c *Colors) Yellow(s string) string { return colorize(s, "\033[33m", "\033[0m") }
func (c *Colors) Red(s string) string    { return colorize(s, "\033[31m", "\033[0m") }
func (c *Colors) Cyan(s string) string   { return colorize(s, "\033[36m", "\033[0m") }

func colorize(s, code, reset string) string {
	if !isEnabled() {
		return s
	}
	return code + s + reset
}

func isEnabled() bool {
	enabledMu.Lock()
	defer enabledMu.Unlock()

	if !enabledInit {
		switch {
		case os.Getenv("NO_COLOR") != "":
			enabled = false
		case os.Getenv("STITCH_PRETTY") == "1":
			enabled = true
		case os.Getenv("TERM") == "dumb":
			enabled = false
		case runtime.GOOS == "windows":
			// Windows 10+ consoles handle ANSI; older ones are rare
			// enough to not special-case.
			enabled = DetectTTY(os.Stdout)
		default:
			enabled = DetectTTY(os.Stdout)
		}
		enabledInit = true
	}
	return enabled
}

// EnableColors forces colors on (for a --pretty flag)
func EnableColors() {
	enabledMu.Lock()
	defer enabledMu.Unlock()
	enabled = true
	enabledInit = true
}

// DisableColors forces colors off
func DisableColors() {
	enabledMu.Lock()
	defer enabledMu.Unlock()
	enabled = false
	enabledInit = true
}

// DetectTTY checks if the given file descriptor is a terminal
func DetectTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	ttyMu.RLock()
	if cached, ok := ttyCache[f]; ok {
		ttyMu.RUnlock()
		return cached
	}
	ttyMu.RUnlock()

	fileInfo, err := f.Stat()
	isTTY := err == nil && (fileInfo.Mode()&os.ModeCharDevice) != 0

	ttyMu.Lock()
	ttyCache[f] = isTTY
	ttyMu.Unlock()

	return isTTY
}

// Okf prints a success status line
func Okf(format string, v ...interface{}) {
	fmt.Printf("%s %s\n", C.Green("[+]"), fmt.Sprintf(format, v...))
}

// Failf prints a failure status line to stderr
func Failf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", C.Red("[-]"), fmt.Sprintf(format, v...))
}

// Notef prints a neutral status line
func Notef(format string, v ...interface{}) {
	fmt.Printf("%s %s\n", C.Cyan("[*]"), fmt.Sprintf(format, v...))
}

// UserError represents a user-facing error with a helpful hint
type UserError struct {
	Cause    string
	NextHint string
}

func (e *UserError) Error() string {
	if e.NextHint != "" {
		return fmt.Sprintf("%s\n  hint: %s", e.Cause, e.NextHint)
	}
	return e.Cause
}

// NewUserError creates a new user error
func NewUserError(cause, nextHint string) error {
	return &UserError{Cause: cause, NextHint: nextHint}
}

// PrintError prints an error in a user-friendly format
func PrintError(err error) {
	if err == nil {
		return
	}
	if ue, ok := err.(*UserError); ok {
		Failf("%s", ue.Cause)
		if ue.NextHint != "" {
			fmt.Fprintf(os.Stderr, "    %s\n", C.Dim("hint: "+ue.NextHint))
		}
		return
	}
	Failf("%v", err)
}
