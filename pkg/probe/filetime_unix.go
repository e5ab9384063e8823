//go:build linux || darwin || freebsd

package probe

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func changeTime(path string, fi os.FileInfo) time.Time {
	var st unix.Stat_t

	if err := unix.Stat(path, &st); err != nil {
		return fi.ModTime()
	}

	sec, nsec := st.Ctim.Unix()

	return time.Unix(sec, nsec)
}
