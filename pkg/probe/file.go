package probe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotRegular is returned by [Stat] for directories, devices and other
// non-regular files.
var ErrNotRegular = errors.New("not a regular file")

// File holds the filesystem facts about a media file.
type File struct {
	ModTime    time.Time
	ChangeTime time.Time
	Path       string
	Size       int64
}

// Earliest returns the earlier of the modification and status-change times.
func (f File) Earliest() time.Time {
	if !f.ChangeTime.IsZero() && f.ChangeTime.Before(f.ModTime) {
		return f.ChangeTime
	}

	return f.ModTime
}

// Stat resolves path to an absolute path and reads its timestamps.
// Symlinks are followed.
func Stat(path string) (File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("resolve path: %w", err)
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return File{}, fmt.Errorf("stat: %w", err)
	}

	if !fi.Mode().IsRegular() {
		return File{}, fmt.Errorf("%w: %s", ErrNotRegular, abs)
	}

	return File{
		Path:       abs,
		Size:       fi.Size(),
		ModTime:    fi.ModTime().UTC(),
		ChangeTime: changeTime(abs, fi).UTC(),
	}, nil
}
