package hostio

import "testing"

func TestOpenConsoleReturnsDistinctWritableStreams(t *testing.T) {
	console, err := OpenConsole()
	if err != nil {
		t.Fatalf("OpenConsole() error = %v", err)
	}
	if console.Stdout == nil || console.Stderr == nil {
		t.Fatalf("OpenConsole() returned a nil stream: %+v", console)
	}
	if _, err := console.Stdout.Write([]byte{}); err != nil {
		t.Errorf("Stdout.Write(empty) error = %v", err)
	}
	if _, err := console.Stderr.Write([]byte{}); err != nil {
		t.Errorf("Stderr.Write(empty) error = %v", err)
	}
}
