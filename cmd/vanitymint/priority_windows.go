//go:build windows

package main

import (
	"syscall"
	"unsafe"
)

const aboveNormalPriorityClass = 0x00008000

var (
	kernel32                  = syscall.NewLazyDLL("kernel32.dll")
	procGetCurrentProcess     = kernel32.NewProc("GetCurrentProcess")
	procSetPriorityClass      = kernel32.NewProc("SetPriorityClass")
	procSetProcessInformation = kernel32.NewProc("SetProcessInformation")
)

// raisePriority gives the search above-normal CPU priority and opts out of
// Windows power throttling (Efficiency Mode).
func raisePriority() error {
	handle, _, _ := procGetCurrentProcess.Call()

	if ret, _, err := procSetPriorityClass.Call(handle, aboveNormalPriorityClass); ret == 0 {
		return err
	}
	return disablePowerThrottling(handle)
}

// Available on Windows 10 1709+ and Windows 11.
func disablePowerThrottling(handle uintptr) error {
	const (
		processPowerThrottling = 4
		executionSpeed         = 0x1
	)

	type powerThrottlingState struct {
		Version     uint32
		ControlMask uint32
		StateMask   uint32
	}

	state := powerThrottlingState{
		Version:     1,
		ControlMask: executionSpeed,
		StateMask:   0, // 0 = disable throttling
	}

	ret, _, err := procSetProcessInformation.Call(
		handle,
		processPowerThrottling,
		uintptr(unsafe.Pointer(&state)),
		unsafe.Sizeof(state),
	)
	if ret == 0 {
		return err
	}
	return nil
}
