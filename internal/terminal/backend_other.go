//go:build !linux

package terminal

import "fmt"

// unsupportedBackend keeps the API present on platforms without TIOCSTI.
type unsupportedBackend struct{}

func newPlatformBackend() Backend {
	return unsupportedBackend{}
}

func (unsupportedBackend) ResolveControllingTerminal(pid int) (string, error) {
	return "", fmt.Errorf("%w: only available on linux", ErrForgingUnsupported)
}

func (unsupportedBackend) Inject(pid int, message string) error {
	return fmt.Errorf("%w: only available on linux", ErrForgingUnsupported)
}

func (unsupportedBackend) CanInject(pid int) (bool, error) {
	return false, fmt.Errorf("%w: only available on linux", ErrForgingUnsupported)
}
