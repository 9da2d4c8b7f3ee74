//go:build windows
// +build windows

package injection

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Minimal access rights for the injection sequence: allocate, write,
// create the thread, and query it. Deliberately not PROCESS_ALL_ACCESS.
const (
	processCreateThread     = 0x0002
	processVMOperation      = 0x0008
	processVMRead           = 0x0010
	processVMWrite          = 0x0020
	processQueryInformation = 0x0400

	injectAccess = processCreateThread | processQueryInformation |
		processVMOperation | processVMRead | processVMWrite
)

const (
	waitObject0 = 0x00000000
	waitTimeout = 0x00000102
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procVirtualAllocEx     = kernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx      = kernel32.NewProc("VirtualFreeEx")
	procWriteProcessMemory = kernel32.NewProc("WriteProcessMemory")
	procCreateRemoteThread = kernel32.NewProc("CreateRemoteThread")
	procGetExitCodeThread  = kernel32.NewProc("GetExitCodeThread")
)

type winSystem struct{}

func platformSystem() System {
	return winSystem{}
}

func (winSystem) OpenProcess(pid int) (Handle, error) {
	h, err := windows.OpenProcess(injectAccess, false, uint32(pid))
	if err != nil {
		// OpenProcess rejects dead PIDs with ERROR_INVALID_PARAMETER.
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return 0, fmt.Errorf("%w: pid %d: %v", ErrTargetGone, pid, err)
		}
		return 0, fmt.Errorf("OpenProcess failed: %w", err)
	}
	return Handle(h), nil
}

// LoaderEntry resolves LoadLibraryW inside our own kernel32 mapping.
//
// The address is resolved locally but executed remotely. That only
// works because kernel32.dll is mapped at the same base address in
// every process of the same architecture and boot session, so the
// local address is valid inside the target too. This is the one
// load-bearing platform assumption of the whole technique: against a
// target of a different architecture the address is meaningless and
// the remote thread will crash the target instead of loading the
// library.
func (winSystem) LoaderEntry() (uintptr, error) {
	name, err := windows.UTF16PtrFromString("kernel32.dll")
	if err != nil {
		return 0, err
	}
	mod, err := windows.GetModuleHandle(name)
	if err != nil {
		return 0, fmt.Errorf("GetModuleHandle(kernel32.dll) failed: %w", err)
	}
	addr, err := windows.GetProcAddress(mod, "LoadLibraryW")
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress(LoadLibraryW) failed: %w", err)
	}
	return addr, nil
}

func (winSystem) AllocRemote(process Handle, size uintptr) (uintptr, error) {
	// PAGE_READWRITE, not executable: the buffer holds a path, never
	// code.
	addr, _, err := procVirtualAllocEx.Call(
		uintptr(process),
		0,
		size,
		windows.MEM_COMMIT|windows.MEM_RESERVE,
		windows.PAGE_READWRITE,
	)
	if addr == 0 {
		return 0, fmt.Errorf("VirtualAllocEx failed: %w", err)
	}
	return addr, nil
}

func (winSystem) WriteRemote(process Handle, addr uintptr, data []byte) (uintptr, error) {
	if len(data) == 0 {
		return 0, nil
	}
	var written uintptr
	ret, _, err := procWriteProcessMemory.Call(
		uintptr(process),
		addr,
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(len(data)),
		uintptr(unsafe.Pointer(&written)),
	)
	if ret == 0 {
		return written, fmt.Errorf("WriteProcessMemory failed: %w", err)
	}
	return written, nil
}

func (winSystem) FreeRemote(process Handle, addr uintptr) error {
	// Size must be zero with MEM_RELEASE.
	ret, _, err := procVirtualFreeEx.Call(
		uintptr(process),
		addr,
		0,
		windows.MEM_RELEASE,
	)
	if ret == 0 {
		return fmt.Errorf("VirtualFreeEx failed: %w", err)
	}
	return nil
}

func (winSystem) CreateRemoteThread(process Handle, entry, arg uintptr) (Handle, error) {
	var threadID uint32
	h, _, err := procCreateRemoteThread.Call(
		uintptr(process),
		0, // lpThreadAttributes
		0, // dwStackSize
		entry,
		arg,
		0, // dwCreationFlags
		uintptr(unsafe.Pointer(&threadID)),
	)
	if h == 0 {
		return 0, fmt.Errorf("CreateRemoteThread failed: %w", err)
	}
	return Handle(h), nil
}

func (winSystem) WaitThread(thread Handle, timeout time.Duration) (bool, error) {
	event, err := windows.WaitForSingleObject(windows.Handle(thread), uint32(timeout.Milliseconds()))
	if err != nil {
		return false, fmt.Errorf("WaitForSingleObject failed: %w", err)
	}
	switch event {
	case waitObject0:
		return true, nil
	case waitTimeout:
		return false, nil
	default:
		return false, fmt.Errorf("WaitForSingleObject returned unexpected event %#x", event)
	}
}

func (winSystem) ThreadExitCode(thread Handle) (uint32, error) {
	var code uint32
	ret, _, err := procGetExitCodeThread.Call(
		uintptr(thread),
		uintptr(unsafe.Pointer(&code)),
	)
	if ret == 0 {
		return 0, fmt.Errorf("GetExitCodeThread failed: %w", err)
	}
	return code, nil
}

func (winSystem) CloseHandle(h Handle) error {
	return windows.CloseHandle(windows.Handle(h))
}
