//go:build windows

package cpuset

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sys/windows"
)

// SYSTEM_INFORMATION_CLASS value for the allowed CPU sets.
const systemAllowedCpuSetsInformation = 168

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modadvapi32 = windows.NewLazySystemDLL("advapi32.dll")
	modntdll    = windows.NewLazySystemDLL("ntdll.dll")

	procGetSystemCpuSetInformation = modkernel32.NewProc("GetSystemCpuSetInformation")
	procAdjustTokenPrivileges      = modadvapi32.NewProc("AdjustTokenPrivileges")
	procNtSetSystemInformation     = modntdll.NewProc("NtSetSystemInformation")
)

// WindowsSystem implements System for the current process.
type WindowsSystem struct {
	process windows.Handle
}

func NewSystem() *WindowsSystem {
	return &WindowsSystem{process: windows.CurrentProcess()}
}

func (s *WindowsSystem) LogicalProcessors() (int, error) {
	return cpu.Counts(true)
}

// CpuSets takes a fresh snapshot. The buffer starts at one record per
// logical processor and grows once if the system asks for more.
func (s *WindowsSystem) CpuSets() ([]CpuSet, error) {
	n, err := s.LogicalProcessors()
	if err != nil || n <= 0 {
		n = 1
	}
	size := uint32(n * RecordSize)

	for attempt := 0; attempt < 2; attempt++ {
		buf := make([]byte, size)
		var returned uint32
		r1, _, e1 := procGetSystemCpuSetInformation.Call(
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(len(buf)),
			uintptr(unsafe.Pointer(&returned)),
			uintptr(s.process),
			0)
		if r1 != 0 {
			return ParseCpuSetInformation(buf[:returned])
		}
		if !errors.Is(e1, windows.ERROR_INSUFFICIENT_BUFFER) || returned <= size {
			return nil, fmt.Errorf("GetSystemCpuSetInformation: %w", e1)
		}
		size = returned
	}
	return nil, fmt.Errorf("GetSystemCpuSetInformation: %w", windows.ERROR_INSUFFICIENT_BUFFER)
}

func (s *WindowsSystem) IsElevated() (bool, error) {
	var token windows.Token
	if err := windows.OpenProcessToken(s.process, windows.TOKEN_QUERY, &token); err != nil {
		return false, fmt.Errorf("OpenProcessToken: %w", err)
	}
	defer token.Close()
	return token.IsElevated(), nil
}

// EnablePrivilege enables name on the process token. The last error of
// AdjustTokenPrivileges is checked even on success, since the call
// reports success when the token does not hold the privilege.
func (s *WindowsSystem) EnablePrivilege(name string) error {
	var token windows.Token
	if err := windows.OpenProcessToken(s.process, windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token); err != nil {
		return fmt.Errorf("%w: OpenProcessToken: %w", ErrPrivilege, err)
	}
	defer token.Close()

	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrivilege, err)
	}

	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, namePtr, &luid); err != nil {
		return fmt.Errorf("%w: LookupPrivilegeValue(%s): %w", ErrPrivilege, name, err)
	}

	tp := windows.Tokenprivileges{PrivilegeCount: 1}
	tp.Privileges[0] = windows.LUIDAndAttributes{
		Luid:       luid,
		Attributes: windows.SE_PRIVILEGE_ENABLED,
	}

	r1, _, e1 := procAdjustTokenPrivileges.Call(
		uintptr(token),
		0,
		uintptr(unsafe.Pointer(&tp)),
		unsafe.Sizeof(tp),
		0,
		0)
	if r1 == 0 {
		return fmt.Errorf("%w: AdjustTokenPrivileges: %w", ErrPrivilege, e1)
	}
	if errors.Is(e1, windows.ERROR_NOT_ALL_ASSIGNED) {
		return fmt.Errorf("%w (%s)", ErrPrivilegeNotAssigned, name)
	}
	return nil
}

func (s *WindowsSystem) SetAllowedCpuSets(mask Mask) error {
	if len(mask) == 0 {
		return errors.New("empty cpu set mask")
	}
	status, _, e1 := procNtSetSystemInformation.Call(
		systemAllowedCpuSetsInformation,
		uintptr(unsafe.Pointer(&mask[0])),
		uintptr(len(mask)*8))
	if status != 0 {
		return fmt.Errorf("NtSetSystemInformation: NTSTATUS 0x%08X (%w), last error: %v", uint32(status), windows.NTStatus(uint32(status)), e1)
	}
	return nil
}
