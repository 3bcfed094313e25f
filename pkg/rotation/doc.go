// Package rotation reads a log file by its logical path and keeps positions
// meaningful across a rename-based rotation.
//
// A Reader starts with the file currently at the path. Positions are
// reported as (inode, local offset) pairs. When SeekPersistent receives a
// position whose inode is not the current file's, the reader assumes the
// file was rotated once and looks for the old file at path.1. If that file
// carries the expected inode it is attached in front of the current one and
// reading continues from the old file into the new one.
//
// Only one rotation between observations is handled. Once a predecessor is
// attached, the reader never looks for another one; open a new Reader to
// pick up a later rotation.
package rotation
