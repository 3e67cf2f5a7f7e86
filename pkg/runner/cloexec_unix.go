//go:build unix

package runner

import (
	"os"
	"syscall"
)

// closeOnExec keeps the IPC pipes out of the test files' processes.
func closeOnExec(f *os.File) {
	syscall.CloseOnExec(int(f.Fd()))
}
