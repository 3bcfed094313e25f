package rotation

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/SteelMorgan/filetrack/internal/inode"
	"github.com/SteelMorgan/filetrack/pkg/multireader"
	"github.com/rs/zerolog"
)

// Reader reads one logical log path, with at most one predecessor file
// attached in front of the current file.
type Reader struct {
	path        string
	predecessor func(string) string
	logger      zerolog.Logger

	inner   *multireader.Reader
	files   []FileInfo // predecessor first when rotated
	open    []*os.File // parallel to files
	rotated bool
}

// Open opens the file at path and positions the reader at its start.
func Open(path string, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)

	f, info, err := openFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	inner, err := multireader.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to attach %s: %w", path, err)
	}

	o.logger.Debug().
		Str("path", path).
		Uint64("inode", info.Inode).
		Int64("size", info.Size).
		Msg("Opened log file")

	return &Reader{
		path:        path,
		predecessor: o.predecessor,
		logger:      o.logger,
		inner:       inner,
		files:       []FileInfo{info},
		open:        []*os.File{f},
	}, nil
}

// Path returns the logical path.
func (r *Reader) Path() string {
	return r.path
}

// Rotated reports whether a predecessor file is attached.
func (r *Reader) Rotated() bool {
	return r.rotated
}

// Files describes the attached files, predecessor first.
func (r *Reader) Files() []FileInfo {
	out := make([]FileInfo, len(r.files))
	copy(out, r.files)
	return out
}

// Inodes returns the inodes of the attached files, predecessor first.
func (r *Reader) Inodes() []uint64 {
	out := make([]uint64, len(r.files))
	for i, f := range r.files {
		out[i] = f.Inode
	}
	return out
}

// CurrentInode returns the inode of the file the reader is positioned in.
func (r *Reader) CurrentInode() uint64 {
	return r.files[r.inner.Index()].Inode
}

// IndexOfInode returns the position of the attached file with the given
// inode in Files.
func (r *Reader) IndexOfInode(ino uint64) (int, bool) {
	for i, f := range r.files {
		if f.Inode == ino {
			return i, true
		}
	}
	return 0, false
}

// PersistentOffset returns the current position as an inode and an offset
// local to that file. Unlike Offset, it can be stored and handed to
// SeekPersistent after a restart.
func (r *Reader) PersistentOffset() Position {
	return Position{
		Inode:  r.CurrentInode(),
		Offset: uint64(r.inner.LocalOffset()),
	}
}

// SeekPersistent moves the reader to pos, attaching the predecessor file if
// pos refers to it. A position that cannot be resolved is not an error: the
// reader restarts at the beginning of the current file and reports Stale.
func (r *Reader) SeekPersistent(pos Position) (Resolution, error) {
	if i, ok := r.IndexOfInode(pos.Inode); ok {
		return r.seekInFile(i, pos)
	}

	if r.rotated {
		r.logger.Warn().
			Str("path", r.path).
			Stringer("position", pos).
			Msg("Position refers to none of the attached files, starting from current file")
		return r.restart(Stale)
	}

	prevPath := r.predecessor(r.path)
	f, info, err := openFile(prevPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn().
				Str("path", r.path).
				Str("predecessor", prevPath).
				Stringer("position", pos).
				Msg("Log file changed but no rotated file found, starting from current file")
			return r.restart(Stale)
		}
		return Fresh, fmt.Errorf("failed to open rotated file: %w", err)
	}

	if info.Inode != pos.Inode {
		f.Close()
		r.logger.Warn().
			Str("path", r.path).
			Str("predecessor", prevPath).
			Uint64("predecessor_inode", info.Inode).
			Stringer("position", pos).
			Msg("Rotated file does not match stored position, starting from current file")
		return r.restart(Stale)
	}

	if err := r.attach(f, info); err != nil {
		f.Close()
		return Fresh, err
	}

	r.logger.Info().
		Str("path", r.path).
		Str("predecessor", prevPath).
		Uint64("inode", info.Inode).
		Uint64("offset", pos.Offset).
		Msg("Log rotation detected, resuming from rotated file")

	res, err := r.seekInFile(0, pos)
	if res == Resumed {
		res = ResumedPredecessor
	}
	return res, err
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	return r.inner.Read(p)
}

// ReadBytes reads up to and including delim. See multireader.Reader.ReadBytes.
func (r *Reader) ReadBytes(delim byte) ([]byte, error) {
	return r.inner.ReadBytes(delim)
}

// ReadLine reads up to and including the next '\n'.
func (r *Reader) ReadLine() ([]byte, error) {
	return r.inner.ReadLine()
}

// ReadString reads up to and including delim.
func (r *Reader) ReadString(delim byte) (string, error) {
	return r.inner.ReadString(delim)
}

// Seek implements io.Seeker over the attached files taken as one stream.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	return r.inner.Seek(offset, whence)
}

// Offset returns the offset over the attached files taken as one stream.
// It is only meaningful within this Reader; use PersistentOffset to store it.
func (r *Reader) Offset() int64 {
	return r.inner.Offset()
}

// Close releases all attached files.
func (r *Reader) Close() error {
	return r.inner.Close()
}

// seekInFile moves to pos.Offset inside attached file i.
func (r *Reader) seekInFile(i int, pos Position) (Resolution, error) {
	last := len(r.files) - 1
	size := r.inner.ItemSize(i)
	if i == last {
		if _, err := r.inner.TotalSize(); err != nil {
			return Fresh, err
		}
		size = r.inner.ItemSize(i)
	}

	if pos.Offset > uint64(size) {
		if i == last {
			r.logger.Warn().
				Str("path", r.path).
				Uint64("offset", pos.Offset).
				Int64("size", size).
				Msg("Log file is shorter than stored offset, starting from beginning")
			return r.restart(Truncated)
		}
		r.logger.Warn().
			Str("path", r.files[i].Path).
			Uint64("offset", pos.Offset).
			Int64("size", size).
			Msg("Rotated file is shorter than stored offset, continuing with current file")
		if _, err := r.inner.SeekToItem(last, 0); err != nil {
			return Fresh, err
		}
		return Resumed, nil
	}

	if _, err := r.inner.SeekToItem(i, int64(pos.Offset)); err != nil {
		return Fresh, err
	}
	return Resumed, nil
}

// restart moves to the beginning of the current file.
func (r *Reader) restart(res Resolution) (Resolution, error) {
	if _, err := r.inner.SeekToItem(len(r.files)-1, 0); err != nil {
		return Fresh, err
	}
	return res, nil
}

// attach puts the predecessor in front of the current file. On failure the
// reader keeps its single-file view.
func (r *Reader) attach(f *os.File, info FileInfo) error {
	current := r.open[len(r.open)-1]
	inner, err := multireader.New(f, current)
	if err != nil {
		return fmt.Errorf("failed to attach rotated file %s: %w", info.Path, err)
	}

	r.inner = inner
	r.files = append([]FileInfo{info}, r.files...)
	r.open = append([]*os.File{f}, r.open...)
	r.rotated = true
	return nil
}

func openFile(path string) (*os.File, FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FileInfo{}, err
	}

	ino, err := inode.Of(f)
	if err != nil {
		f.Close()
		return nil, FileInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, FileInfo{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return f, FileInfo{Path: path, Inode: ino, Size: st.Size()}, nil
}

var _ io.ReadSeekCloser = (*Reader)(nil)
