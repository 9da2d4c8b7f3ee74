//go:build !windows
// +build !windows

package processes

import (
	"fmt"
	"runtime"
)

type unsupportedEnumerator struct{}

func platformEnumerator() Enumerator {
	return unsupportedEnumerator{}
}

func (unsupportedEnumerator) Each(yield func(Identity) bool) error {
	return fmt.Errorf("process enumeration is only supported on Windows, not %s", runtime.GOOS)
}
