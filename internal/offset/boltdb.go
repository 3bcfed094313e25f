package offset

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/SteelMorgan/filetrack/pkg/rotation"
	"github.com/SteelMorgan/filetrack/pkg/tracked"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

const (
	bucketName = "positions"
	valueSize  = 16
)

// BoltDBStore implements PositionStore using BoltDB
type BoltDBStore struct {
	db   *bbolt.DB
	path string
}

// NewBoltDBStore creates a new BoltDB position store
func NewBoltDBStore(dbPath string) (*BoltDBStore, error) {
	// bbolt holds an exclusive file lock; a short timeout turns a second
	// process into an error instead of a hang
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb (file may be locked by another process): %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Debug().
		Str("db_path", dbPath).
		Msg("BoltDB position store initialized")

	return &BoltDBStore{db: db, path: dbPath}, nil
}

// Get retrieves the position for a given log path
func (s *BoltDBStore) Get(ctx context.Context, logPath string) (rotation.Position, bool, error) {
	var (
		pos   rotation.Position
		found bool
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		val := b.Get([]byte(logPath))
		if val == nil {
			return nil
		}

		decoded, err := decodeValue(val)
		if err != nil {
			return err
		}
		pos, found = decoded, true
		return nil
	})

	if err != nil {
		return rotation.Position{}, false, fmt.Errorf("failed to get position: %w", err)
	}

	return pos, found, nil
}

// Set stores the position for a given log path
func (s *BoltDBStore) Set(ctx context.Context, logPath string, pos rotation.Position) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(logPath), encodeValue(pos))
	})

	if err != nil {
		return fmt.Errorf("failed to set position: %w", err)
	}

	log.Debug().
		Str("file_path", logPath).
		Uint64("inode", pos.Inode).
		Uint64("offset", pos.Offset).
		Msg("Position updated")

	return nil
}

// Delete removes the position for a given log path
func (s *BoltDBStore) Delete(ctx context.Context, logPath string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(logPath))
	})

	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	return nil
}

// List returns all stored positions
func (s *BoltDBStore) List(ctx context.Context) (map[string]rotation.Position, error) {
	result := make(map[string]rotation.Position)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			pos, err := decodeValue(v)
			if err != nil {
				log.Warn().Err(err).Str("file_path", string(k)).Msg("Skipping malformed position")
				return nil
			}
			result[string(k)] = pos
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	return result, nil
}

// Registry returns a tracked.Registry that keeps the position of logPath
// in this store
func (s *BoltDBStore) Registry(logPath string) tracked.Registry {
	return &keyRegistry{store: s, key: logPath}
}

// Close closes the BoltDB database
func (s *BoltDBStore) Close() error {
	log.Debug().Str("db_path", s.path).Msg("Closing BoltDB position store")
	return s.db.Close()
}

// keyRegistry binds one log path of a BoltDBStore to the tracked.Registry interface
type keyRegistry struct {
	store *BoltDBStore
	key   string
}

func (r *keyRegistry) Load() (rotation.Position, bool, error) {
	pos, found, err := r.store.Get(context.Background(), r.key)
	if err != nil {
		return rotation.Position{}, false, &tracked.RegistryError{
			Path: fmt.Sprintf("%s#%s", r.store.path, r.key),
			Err:  err,
		}
	}
	return pos, found, nil
}

func (r *keyRegistry) Save(pos rotation.Position) error {
	return r.store.Set(context.Background(), r.key, pos)
}

// encodeValue packs a position as big-endian inode followed by offset
func encodeValue(pos rotation.Position) []byte {
	val := make([]byte, valueSize)
	binary.BigEndian.PutUint64(val[:8], pos.Inode)
	binary.BigEndian.PutUint64(val[8:], pos.Offset)
	return val
}

func decodeValue(val []byte) (rotation.Position, error) {
	if len(val) != valueSize {
		return rotation.Position{}, fmt.Errorf("%w: position value has %d bytes, want %d",
			tracked.ErrCorruptRegistry, len(val), valueSize)
	}
	return rotation.Position{
		Inode:  binary.BigEndian.Uint64(val[:8]),
		Offset: binary.BigEndian.Uint64(val[8:]),
	}, nil
}
