//go:build linux

package terminal

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linuxBackend forges input with the TIOCSTI ioctl (request 0x5412,
// "insert into terminal input queue").
type linuxBackend struct {
	// procRoot is "/proc" outside of tests.
	procRoot string
}

func newPlatformBackend() Backend {
	return &linuxBackend{procRoot: "/proc"}
}

// ResolveControllingTerminal reads the symlink behind the process's file
// descriptor 0.
func (b *linuxBackend) ResolveControllingTerminal(pid int) (string, error) {
	link := fmt.Sprintf("%s/%d/fd/0", b.procRoot, pid)
	target, err := os.Readlink(link)
	if err != nil {
		return "", fmt.Errorf("%w: pid %d: %v", ErrProcessNotFound, pid, err)
	}
	if !isTerminalDevice(target) {
		return "", fmt.Errorf("%w: pid %d stdin resolves to %s", ErrNotATerminal, pid, target)
	}
	return target, nil
}

// Inject resolves the controlling terminal, opens it for writing, and
// issues one TIOCSTI call per byte of message, then one for '\n'.
func (b *linuxBackend) Inject(pid int, message string) error {
	device, err := b.ResolveControllingTerminal(pid)
	if err != nil {
		return err
	}

	tty, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s: %v", ErrTerminalPermission, device, err)
		}
		return fmt.Errorf("opening %s: %w", device, err)
	}
	defer tty.Close()

	fd := tty.Fd()
	for i := 0; i < len(message); i++ {
		if err := forgeByte(fd, message[i]); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrForgingUnsupported, device, err)
		}
	}
	if err := forgeByte(fd, '\n'); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrForgingUnsupported, device, err)
	}
	return nil
}

// CanInject attempts a permission-only open of the terminal device.
func (b *linuxBackend) CanInject(pid int) (bool, error) {
	device, err := b.ResolveControllingTerminal(pid)
	if err != nil {
		return false, err
	}
	tty, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		if os.IsPermission(err) {
			return false, nil
		}
		return false, fmt.Errorf("opening %s: %w", device, err)
	}
	_ = tty.Close()
	return true, nil
}

// forgeByte pushes one byte into the terminal's input queue as if typed.
// Kernels with legacy_tiocsti disabled reject the call (EIO since 6.2, or
// EPERM under older CAP_SYS_ADMIN policies).
func forgeByte(fd uintptr, c byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.TIOCSTI, uintptr(unsafe.Pointer(&c)))
	if errno != 0 {
		return errno
	}
	return nil
}
