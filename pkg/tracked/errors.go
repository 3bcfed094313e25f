package tracked

import (
	"errors"
	"fmt"

	"github.com/SteelMorgan/filetrack/pkg/multireader"
)

var (
	// ErrCorruptRegistry is wrapped by errors about a registry that exists
	// but cannot be parsed.
	ErrCorruptRegistry = errors.New("corrupt registry")

	// ErrRegistryLocked is returned when another reader holds the registry.
	ErrRegistryLocked = errors.New("registry is locked by another reader")

	// ErrClosed is returned by operations on a closed reader.
	ErrClosed = multireader.ErrClosed
)

// RegistryError reports a registry that could not be loaded.
// Path names the file so an operator can inspect or remove it.
type RegistryError struct {
	Path string
	Err  error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry %s: %v", e.Path, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}
