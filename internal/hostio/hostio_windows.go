//go:build windows

package hostio

import "golang.org/x/sys/windows"

// stdDescriptors resolves the console's output/error handles through
// GetStdHandle, the same x/sys/windows entry point osBridgeWindows.go uses
// to bridge native library calls into the host OS.
func stdDescriptors() (uintptr, uintptr, error) {
	out, err := windows.GetStdHandle(windows.STD_OUTPUT_HANDLE)
	if err != nil {
		return 0, 0, err
	}
	errh, err := windows.GetStdHandle(windows.STD_ERROR_HANDLE)
	if err != nil {
		return 0, 0, err
	}
	return uintptr(out), uintptr(errh), nil
}
