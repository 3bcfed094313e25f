package tracked

import (
	"errors"
	"fmt"
	"io"

	"github.com/SteelMorgan/filetrack/pkg/rotation"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures a Reader.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger sets the logger. The global zerolog logger is used by default.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Reader is a rotation.Reader that restores its position from a registry
// on open and saves it on Close.
type Reader struct {
	inner      *rotation.Reader
	registry   Registry
	lock       *flock.Flock
	logger     zerolog.Logger
	resolution rotation.Resolution

	closed   bool
	final    rotation.Position
	closeErr error
}

// Open opens logPath and restores the position stored in the registry file
// at registryPath. The registry is locked for the lifetime of the reader.
// A missing registry means reading starts at the beginning of the file; a
// corrupt one is an error.
func Open(logPath, registryPath string, opts ...Option) (*Reader, error) {
	lock := flock.New(registryPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock registry %s: %w", registryPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", registryPath, ErrRegistryLocked)
	}

	r, err := open(logPath, NewFileRegistry(registryPath), opts)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	r.lock = lock
	return r, nil
}

// Reset removes the registry file at registryPath so that the next reader
// starts at the beginning of the log. It fails with ErrRegistryLocked while
// a reader holds the registry.
func Reset(registryPath string) error {
	lock := flock.New(registryPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock registry %s: %w", registryPath, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", registryPath, ErrRegistryLocked)
	}
	defer lock.Unlock()

	return NewFileRegistry(registryPath).Remove()
}

// OpenWithRegistry is like Open but keeps the position in reg. No locking
// is done; the caller must make sure only one reader uses reg at a time.
func OpenWithRegistry(logPath string, reg Registry, opts ...Option) (*Reader, error) {
	return open(logPath, reg, opts)
}

func open(logPath string, reg Registry, opts []Option) (*Reader, error) {
	o := options{logger: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}

	pos, found, err := reg.Load()
	if err != nil {
		return nil, err
	}

	inner, err := rotation.Open(logPath, rotation.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	r := &Reader{
		inner:      inner,
		registry:   reg,
		logger:     o.logger,
		resolution: rotation.Fresh,
	}

	if found {
		res, err := inner.SeekPersistent(pos)
		if err != nil {
			inner.Close()
			return nil, fmt.Errorf("failed to restore position %v: %w", pos, err)
		}
		r.resolution = res
	}

	o.logger.Debug().
		Str("path", logPath).
		Bool("found", found).
		Stringer("position", r.inner.PersistentOffset()).
		Stringer("resolution", r.resolution).
		Msg("Tracked reader opened")

	return r, nil
}

// Resolution tells how the stored position was applied on open.
func (r *Reader) Resolution() rotation.Resolution {
	return r.resolution
}

// Rotated reports whether the reader started in a rotated file.
func (r *Reader) Rotated() bool {
	return r.inner.Rotated()
}

// Files describes the files being read, rotated file first.
func (r *Reader) Files() []rotation.FileInfo {
	return r.inner.Files()
}

// PersistentOffset returns the position that Close would save.
func (r *Reader) PersistentOffset() rotation.Position {
	if r.closed {
		return r.final
	}
	return r.inner.PersistentOffset()
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	return r.inner.Read(p)
}

// ReadBytes reads up to and including delim. An unterminated remainder at
// the end of the file is returned with a nil error; io.EOF means there was
// nothing left.
func (r *Reader) ReadBytes(delim byte) ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}
	return r.inner.ReadBytes(delim)
}

// ReadLine reads up to and including the next '\n'.
func (r *Reader) ReadLine() ([]byte, error) {
	return r.ReadBytes('\n')
}

// ReadString reads up to and including delim.
func (r *Reader) ReadString(delim byte) (string, error) {
	line, err := r.ReadBytes(delim)
	return string(line), err
}

// Seek implements io.Seeker over the files being read.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}
	return r.inner.Seek(offset, whence)
}

// Offset returns the offset over the files being read, starting at the
// rotated file if one is attached.
func (r *Reader) Offset() int64 {
	return r.inner.Offset()
}

// Checkpoint saves the current position without closing the reader.
func (r *Reader) Checkpoint() error {
	if r.closed {
		return ErrClosed
	}
	return r.save(r.inner.PersistentOffset())
}

// Close saves the current position and releases the files and the registry
// lock. Later calls do not touch the registry again, since the lock is gone
// by then; they return the result of the first call.
func (r *Reader) Close() error {
	if r.closed {
		return r.closeErr
	}

	r.final = r.inner.PersistentOffset()
	r.closed = true

	saveErr := r.save(r.final)
	closeErr := r.inner.Close()
	var unlockErr error
	if r.lock != nil {
		unlockErr = r.lock.Unlock()
	}
	r.closeErr = errors.Join(saveErr, closeErr, unlockErr)
	return r.closeErr
}

func (r *Reader) save(pos rotation.Position) error {
	if err := r.registry.Save(pos); err != nil {
		return fmt.Errorf("failed to persist position %v: %w", pos, err)
	}
	r.logger.Debug().
		Str("path", r.inner.Path()).
		Uint64("inode", pos.Inode).
		Uint64("offset", pos.Offset).
		Msg("Position persisted")
	return nil
}

// Do opens a reader, passes it to fn and closes it however fn returns,
// panics included. A close failure is returned when fn succeeded and
// logged otherwise.
func Do(logPath, registryPath string, fn func(*Reader) error, opts ...Option) error {
	r, err := Open(logPath, registryPath, opts...)
	if err != nil {
		return err
	}
	return run(r, fn)
}

// DoWithRegistry is like Do but keeps the position in reg.
func DoWithRegistry(logPath string, reg Registry, fn func(*Reader) error, opts ...Option) error {
	r, err := OpenWithRegistry(logPath, reg, opts...)
	if err != nil {
		return err
	}
	return run(r, fn)
}

func run(r *Reader, fn func(*Reader) error) (err error) {
	defer func() {
		p := recover()
		cerr := r.Close()
		switch {
		case cerr == nil:
		case p == nil && err == nil:
			err = cerr
		default:
			r.logger.Error().
				Err(cerr).
				Str("path", r.inner.Path()).
				Msg("Failed to persist position on teardown")
		}
		if p != nil {
			panic(p)
		}
	}()
	return fn(r)
}

var _ io.ReadSeekCloser = (*Reader)(nil)
