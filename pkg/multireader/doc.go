// Package multireader presents an ordered list of seekable byte sources as
// one continuous stream.
//
// Lengths of all sources are probed once when the reader is built, and a
// prefix sum of those lengths maps a global offset to a source and a local
// offset inside it. Every source except the last must keep its length for
// the lifetime of the reader; the last one may keep growing, which is the
// normal situation when the sequence is a rotated log followed by the live
// one.
//
//	r, err := multireader.New(strings.NewReader("abc"), strings.NewReader("de"))
//	if err != nil {
//		return err
//	}
//	r.Seek(3, io.SeekStart) // r.Index() == 1, r.LocalOffset() == 0
package multireader
