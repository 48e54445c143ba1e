//go:build windows

package procman

import "os"

// terminateProcess kills the child outright; Windows has no SIGTERM.
func terminateProcess(p *os.Process) {
	_ = p.Kill()
}
