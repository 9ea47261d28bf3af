//go:build unix

package stripedio

import (
	"os"

	"golang.org/x/sys/unix"
)

// preadFile/pwriteFile perform positioned I/O via the raw file descriptor,
// bypassing os.File's seek-offset bookkeeping entirely -- stripe workers
// issue many concurrent reads/writes against the same *os.File and must
// never share a seek cursor.
func preadFile(f *os.File, buf []byte, off int64) (int, error) {
	return unix.Pread(int(f.Fd()), buf, off)
}

func pwriteFile(f *os.File, buf []byte, off int64) (int, error) {
	return unix.Pwrite(int(f.Fd()), buf, off)
}
