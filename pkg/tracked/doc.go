// Package tracked reads a log file from where the previous run stopped.
//
// A Reader loads a position from a registry when it is opened, seeks the
// underlying rotation.Reader to it, and writes the position back when it is
// closed. Rotated files are looked up at path.1.
//
//	err := tracked.Do("/var/log/mail.log", "/var/lib/app/mail.registry", func(r *tracked.Reader) error {
//		for {
//			line, err := r.ReadLine()
//			if err == io.EOF {
//				return nil
//			}
//			if err != nil {
//				return err
//			}
//			fmt.Print(string(line))
//		}
//	})
//
// Positions are stored as (inode, offset) of the file being read. After the
// reader has moved past a rotated file and saved its position, that file is
// no longer reachable by seeking back. Roll back before closing if needed.
package tracked
