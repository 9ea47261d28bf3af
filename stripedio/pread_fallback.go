//go:build !unix

package stripedio

import "os"

// Non-unix platforms (e.g. windows) have no raw fd pread/pwrite in x/sys;
// os.File's ReadAt/WriteAt already provide positioned I/O without disturbing
// the file's seek offset, which is all the stripe workers need.
func preadFile(f *os.File, buf []byte, off int64) (int, error) {
	return f.ReadAt(buf, off)
}

func pwriteFile(f *os.File, buf []byte, off int64) (int, error) {
	return f.WriteAt(buf, off)
}
