// Package platform reports facts about the host the injector runs
// on. Two of them decide whether an attempt can work at all: the
// caller's architecture must match the target's for the loader
// address to be valid there, and elevation decides which targets can
// be opened.
package platform

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
)

// GetHostname returns the system hostname
func GetHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// GetUsername returns the current username
func GetUsername() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// GetOS returns the operating system name
func GetOS() string {
	return runtime.GOOS
}

// GetArch returns the architecture
func GetArch() string {
	return runtime.GOARCH
}

// IsElevated reports whether the process runs with administrative
// privileges.
func IsElevated() bool {
	return isElevated()
}

// Summary is a one-line description for debug logging.
func Summary() string {
	return fmt.Sprintf("%s/%s host=%s user=%s pid=%d elevated=%t",
		GetOS(), GetArch(), GetHostname(), GetUsername(), os.Getpid(), IsElevated())
}
