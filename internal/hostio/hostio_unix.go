//go:build !windows

package hostio

import "golang.org/x/sys/unix"

// stdDescriptors duplicates fds 1 and 2 through unix.Dup rather than
// handing out the raw well-known numbers, so the returned descriptors
// survive independently of whatever os.Stdout/os.Stderr get reassigned to
// later.
func stdDescriptors() (uintptr, uintptr, error) {
	out, err := unix.Dup(1)
	if err != nil {
		return 0, 0, err
	}
	errfd, err := unix.Dup(2)
	if err != nil {
		return 0, 0, err
	}
	return uintptr(out), uintptr(errfd), nil
}
