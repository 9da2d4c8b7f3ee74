//go:build windows
// +build windows

package processes

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// toolhelpEnumerator walks the Toolhelp snapshot. Unlike
// EnumProcesses it reports every process's executable name without
// needing a handle to the process itself.
type toolhelpEnumerator struct{}

func platformEnumerator() Enumerator {
	return toolhelpEnumerator{}
}

func (toolhelpEnumerator) Each(yield func(Identity) bool) error {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snapshot, &entry); err != nil {
		return fmt.Errorf("failed to get first process: %w", err)
	}

	for {
		p := Identity{
			PID:  int(entry.ProcessID),
			Name: windows.UTF16ToString(entry.ExeFile[:]),
		}
		if !yield(p) {
			return nil
		}

		if err := windows.Process32Next(snapshot, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				return nil
			}
			return fmt.Errorf("failed to get next process: %w", err)
		}
	}
}
