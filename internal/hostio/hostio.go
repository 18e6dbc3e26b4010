// Package hostio bridges java/io/PrintStream's native backing to the
// host's standard streams, resolving the platform's own descriptor-table
// API rather than trusting os.Stdout/os.Stderr to still point at the
// console by the time the VM boots.
package hostio

import (
	"fmt"
	"io"
	"os"
)

// Console holds the host's standard output and error streams, wired once
// at boot into java/lang/System's out/err fields.
type Console struct {
	Stdout io.Writer
	Stderr io.Writer
}

// OpenConsole resolves the process's stdout/stderr descriptors through the
// platform's native handle-table call and wraps them as files.
func OpenConsole() (*Console, error) {
	outFD, errFD, err := stdDescriptors()
	if err != nil {
		return nil, fmt.Errorf("hostio: resolving standard streams: %w", err)
	}
	return &Console{
		Stdout: os.NewFile(outFD, "stdout"),
		Stderr: os.NewFile(errFD, "stderr"),
	}, nil
}
