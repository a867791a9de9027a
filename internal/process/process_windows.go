//go:build windows

package process

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	processPowerThrottling               = 4
	processPowerThrottlingCurrentVersion = 1
	processPowerThrottlingExecutionSpeed = 0x1
)

type powerThrottlingState struct {
	Version     uint32
	ControlMask uint32
	StateMask   uint32
}

var procSetProcessInformation = windows.NewLazySystemDLL("kernel32.dll").NewProc("SetProcessInformation")

// SetPriorityClass changes the priority class of the current process.
func SetPriorityClass(class PriorityClass) error {
	if err := windows.SetPriorityClass(windows.CurrentProcess(), uint32(class)); err != nil {
		return fmt.Errorf("SetPriorityClass(%s): %w", class, err)
	}
	return nil
}

// SetPowerThrottling turns EcoQoS execution speed throttling on or off for
// the current process. Requires Windows build 22000 or later.
func SetPowerThrottling(enabled bool) error {
	state := powerThrottlingState{
		Version:     processPowerThrottlingCurrentVersion,
		ControlMask: processPowerThrottlingExecutionSpeed,
	}
	if enabled {
		state.StateMask = processPowerThrottlingExecutionSpeed
	}

	if err := procSetProcessInformation.Find(); err != nil {
		return err
	}
	r1, _, e1 := procSetProcessInformation.Call(
		uintptr(windows.CurrentProcess()),
		processPowerThrottling,
		uintptr(unsafe.Pointer(&state)),
		unsafe.Sizeof(state))
	if r1 == 0 {
		return fmt.Errorf("SetProcessInformation(ProcessPowerThrottling): %w", e1)
	}
	return nil
}
