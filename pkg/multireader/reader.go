package multireader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
)

const (
	defaultBufSize           = 4096
	maxConsecutiveEmptyReads = 100
)

var (
	// ErrNegativeOffset is returned when a seek resolves to a position before
	// the start of the stream.
	ErrNegativeOffset = fmt.Errorf("multireader: negative position: %w", fs.ErrInvalid)

	// ErrClosed is returned by operations on a closed reader.
	ErrClosed = errors.New("multireader: reader is closed")
)

// Reader reads a sequence of sources as one stream.
//
// Reader keeps a small read-ahead buffer for line reading. Offset always
// reports the logical position, i.e. the bytes handed to the caller, never
// the read-ahead.
type Reader struct {
	sources []io.ReadSeeker
	ends    []int64 // ends[i] = len(sources[0]) + ... + len(sources[i])

	pos int64 // logical offset
	raw int64 // offset of the next byte to read from sources; pos + len(buf)
	cur int   // index of the source holding raw

	buf     []byte
	backing []byte
	pending error // read error held back until buffered bytes are consumed

	closed bool
}

// New builds a Reader over sources, in order. It seeks every source to its
// end to learn its length and then back to the start; the first failing
// probe aborts construction.
func New(sources ...io.ReadSeeker) (*Reader, error) {
	ends := make([]int64, len(sources))
	var total int64
	for i, src := range sources {
		size, err := src.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to probe length of source %d: %w", i, err)
		}
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind source %d: %w", i, err)
		}
		total += size
		ends[i] = total
	}

	return &Reader{
		sources: sources,
		ends:    ends,
	}, nil
}

// Len returns the number of sources.
func (r *Reader) Len() int {
	return len(r.sources)
}

// Offset returns the global offset.
func (r *Reader) Offset() int64 {
	return r.pos
}

// Index returns the index of the source the global offset falls into.
// At or past the end of the stream this is the last source.
func (r *Reader) Index() int {
	return r.indexFor(r.pos)
}

// LocalOffset returns the offset inside the source reported by Index.
func (r *Reader) LocalOffset() int64 {
	return r.pos - r.ItemStart(r.Index())
}

// ItemStart returns the global offset at which source i begins.
func (r *Reader) ItemStart(i int) int64 {
	if i <= 0 || len(r.ends) == 0 {
		return 0
	}
	if i > len(r.ends) {
		i = len(r.ends)
	}
	return r.ends[i-1]
}

// ItemSize returns the length of source i as last probed.
func (r *Reader) ItemSize(i int) int64 {
	if i < 0 || i >= len(r.ends) {
		return 0
	}
	return r.ends[i] - r.ItemStart(i)
}

// TotalSize returns the length of the whole stream. The last source is
// probed again since it may have grown.
func (r *Reader) TotalSize() (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(r.sources) == 0 {
		return 0, nil
	}

	last := len(r.sources) - 1
	src := r.sources[last]
	here, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("failed to get position of source %d: %w", last, err)
	}
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to probe length of source %d: %w", last, err)
	}
	if _, err := src.Seek(here, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to restore position of source %d: %w", last, err)
	}

	r.ends[last] = r.ItemStart(last) + size
	return r.ends[last], nil
}

// Read fills p from the global offset onwards, moving on to the next
// source whenever the current one is exhausted. It returns io.EOF only when
// no byte could be produced. On an underlying failure the n bytes already
// copied into p are valid and counted.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := copy(p, r.buf)
	r.consume(n)
	if n == len(p) {
		return n, nil
	}

	if r.pending != nil {
		if n > 0 {
			return n, nil
		}
		return 0, r.takePending()
	}

	m, err := r.fill(p[n:])
	r.pos += int64(m)
	n += m
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadBytes reads until the first occurrence of delim and returns the bytes
// consumed, delimiter included. At the end of the stream an unterminated
// remainder is returned with a nil error; io.EOF is returned only when
// nothing was left to read.
func (r *Reader) ReadBytes(delim byte) ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}

	var line []byte
	for {
		if i := bytes.IndexByte(r.buf, delim); i >= 0 {
			line = append(line, r.buf[:i+1]...)
			r.consume(i + 1)
			return line, nil
		}
		line = append(line, r.buf...)
		r.consume(len(r.buf))

		if err := r.readAhead(); err != nil {
			if err == io.EOF {
				if len(line) > 0 {
					return line, nil
				}
				return nil, io.EOF
			}
			return line, err
		}
	}
}

// ReadLine reads up to and including the next '\n'.
func (r *Reader) ReadLine() ([]byte, error) {
	return r.ReadBytes('\n')
}

// ReadString is like ReadBytes but returns a string.
func (r *Reader) ReadString(delim byte) (string, error) {
	line, err := r.ReadBytes(delim)
	return string(line), err
}

// Seek implements io.Seeker over the whole stream. Seeking past the end is
// allowed; seeking before the start fails with ErrNegativeOffset and leaves
// the reader untouched. Only the source containing the target is
// repositioned.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		total, err := r.TotalSize()
		if err != nil {
			return 0, err
		}
		target = total + offset
	default:
		return 0, fmt.Errorf("multireader: invalid whence %d: %w", whence, fs.ErrInvalid)
	}

	if target < 0 {
		return 0, ErrNegativeOffset
	}
	if err := r.seekTo(target); err != nil {
		return 0, err
	}
	return target, nil
}

// SeekToItem moves to local offset off inside source i. An offset beyond
// the length of source i lands in the sources that follow it.
func (r *Reader) SeekToItem(i int, off int64) (int64, error) {
	if i < 0 || i >= len(r.sources) {
		return 0, fmt.Errorf("multireader: source index %d out of range [0, %d): %w", i, len(r.sources), fs.ErrInvalid)
	}
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	return r.Seek(r.ItemStart(i)+off, io.SeekStart)
}

// Close closes every source implementing io.Closer. Later calls are no-ops.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.buf = nil
	r.backing = nil

	var errs []error
	for i, src := range r.sources {
		if c, ok := src.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close source %d: %w", i, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Reader) indexFor(off int64) int {
	n := len(r.ends)
	if n == 0 {
		return 0
	}
	i := sort.Search(n, func(i int) bool { return r.ends[i] > off })
	if i == n {
		return n - 1
	}
	return i
}

func (r *Reader) seekTo(target int64) error {
	if target >= r.pos && target <= r.raw {
		r.consume(int(target - r.pos))
		return nil
	}

	if len(r.sources) > 0 {
		i := r.indexFor(target)
		local := target - r.ItemStart(i)
		if _, err := r.sources[i].Seek(local, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek source %d to %d: %w", i, local, err)
		}
		r.cur = i
	}

	r.pos = target
	r.raw = target
	r.buf = nil
	r.pending = nil
	return nil
}

// fill reads raw bytes into p starting at r.raw. Only a source that is not
// the last one is bounded by its probed length.
func (r *Reader) fill(p []byte) (int, error) {
	if len(r.sources) == 0 {
		return 0, io.EOF
	}

	last := len(r.sources) - 1
	n, empty := 0, 0
	for n < len(p) {
		chunk := p[n:]
		if r.cur < last {
			remain := r.ends[r.cur] - r.raw
			if remain <= 0 {
				if err := r.advance(); err != nil {
					return n, err
				}
				continue
			}
			if int64(len(chunk)) > remain {
				chunk = chunk[:remain]
			}
		}

		m, err := r.sources[r.cur].Read(chunk)
		n += m
		r.raw += int64(m)

		switch {
		case err == io.EOF:
			if r.cur == last {
				return n, io.EOF
			}
			if r.raw < r.ends[r.cur] {
				return n, fmt.Errorf("source %d ended %d bytes short of its length: %w",
					r.cur, r.ends[r.cur]-r.raw, io.ErrUnexpectedEOF)
			}
		case err != nil:
			return n, err
		case m == 0:
			empty++
			if empty >= maxConsecutiveEmptyReads {
				return n, io.ErrNoProgress
			}
		default:
			empty = 0
		}
	}
	return n, nil
}

func (r *Reader) advance() error {
	next := r.cur + 1
	if _, err := r.sources[next].Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind source %d: %w", next, err)
	}
	r.cur = next
	return nil
}

// readAhead refills the empty buffer. A failure that comes with data is
// held back and reported once the data has been consumed.
func (r *Reader) readAhead() error {
	if r.pending != nil {
		return r.takePending()
	}
	if r.backing == nil {
		r.backing = make([]byte, defaultBufSize)
	}

	n, err := r.fill(r.backing)
	r.buf = r.backing[:n]
	if n > 0 {
		if err != nil && err != io.EOF {
			r.pending = err
		}
		return nil
	}
	return err
}

func (r *Reader) consume(n int) {
	r.buf = r.buf[n:]
	r.pos += int64(n)
}

func (r *Reader) takePending() error {
	err := r.pending
	r.pending = nil
	return err
}
