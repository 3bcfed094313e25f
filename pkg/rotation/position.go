package rotation

import (
	"cmp"
	"fmt"
)

// Position is an offset into the file identified by Inode. It stays valid
// across restarts and a rename of the file, unlike a path-based offset.
type Position struct {
	Inode  uint64
	Offset uint64
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Inode, p.Offset)
}

// Resolution tells how SeekPersistent placed the reader
type Resolution int

const (
	// Fresh means no position was applied; reading starts at the beginning
	// of the current file.
	Fresh Resolution = iota
	// Resumed means the position belonged to an already attached file.
	Resumed
	// ResumedPredecessor means a rotation was detected and the position was
	// found in the predecessor file, which is now read before the current one.
	ResumedPredecessor
	// Truncated means the position belonged to the current file but pointed
	// past its end, so the file was truncated in place. Reading restarts at
	// the beginning of the file.
	Truncated
	// Stale means the position matched no attached file and no predecessor.
	// Reading restarts at the beginning of the current file.
	Stale
)

func (r Resolution) String() string {
	switch r {
	case Fresh:
		return "fresh"
	case Resumed:
		return "resumed"
	case ResumedPredecessor:
		return "resumed_predecessor"
	case Truncated:
		return "truncated"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("resolution(%d)", int(r))
	}
}

// FileInfo describes a file attached to a Reader
type FileInfo struct {
	Path  string
	Inode uint64
	Size  int64 // length when attached
}

// PredecessorPath returns where a rotated-out copy of path is expected
func PredecessorPath(path string) string {
	return RotatedPath(path, 1)
}

// RotatedPath appends the rotation number n to path: app.log -> app.log.n
func RotatedPath(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

// Compare orders two positions as if the attached files formed one buffer.
// ok is false when either position belongs to no attached file.
func (r *Reader) Compare(a, b Position) (c int, ok bool) {
	ia, ok := r.IndexOfInode(a.Inode)
	if !ok {
		return 0, false
	}
	ib, ok := r.IndexOfInode(b.Inode)
	if !ok {
		return 0, false
	}
	if ia != ib {
		return cmp.Compare(ia, ib), true
	}
	return cmp.Compare(a.Offset, b.Offset), true
}
