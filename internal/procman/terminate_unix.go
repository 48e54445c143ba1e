//go:build unix

package procman

import (
	"os"
	"syscall"
)

// terminateProcess asks the child to exit gracefully.
func terminateProcess(p *os.Process) {
	_ = p.Signal(syscall.SIGTERM)
}
