package offset

import (
	"context"

	"github.com/SteelMorgan/filetrack/pkg/rotation"
)

// PositionStore stores and retrieves read positions of log files
// Implementations: BoltDB
type PositionStore interface {
	// Get retrieves the position for a given log path
	// found is false if no position is stored
	Get(ctx context.Context, logPath string) (pos rotation.Position, found bool, err error)

	// Set stores the position for a given log path
	Set(ctx context.Context, logPath string, pos rotation.Position) error

	// Delete removes the position for a given log path
	Delete(ctx context.Context, logPath string) error

	// List returns all stored positions keyed by log path
	List(ctx context.Context) (map[string]rotation.Position, error)

	// Close closes the position store
	Close() error
}
