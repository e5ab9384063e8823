package mediactx

import (
	"crypto/md5" //nolint:gosec // Content fingerprint, not security.
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/nilp0inter/monana/pkg/probe"
)

// MediaFile identifies one source file. It is immutable once built.
type MediaFile struct {
	md5 func() (string, error)

	MIME string
	Type probe.MediaType
	probe.File
}

func newMediaFile(f probe.File, mime string, mt probe.MediaType) *MediaFile {
	mf := &MediaFile{File: f, MIME: mime, Type: mt}
	mf.md5 = sync.OnceValues(func() (string, error) {
		return fileMD5(f.Path)
	})

	return mf
}

// MD5 returns the hex MD5 checksum of the file content. It is computed on
// first use and memoized.
func (f *MediaFile) MD5() (string, error) {
	return f.md5()
}

// moved returns a copy of f located at path. The checksum is read from
// path when it exists and from f otherwise.
func (f *MediaFile) moved(path string) *MediaFile {
	nf := *f
	nf.Path = path
	nf.md5 = sync.OnceValues(func() (string, error) {
		if _, err := os.Stat(path); err == nil {
			return fileMD5(path)
		}

		return f.MD5()
	})

	return &nf
}

func fileMD5(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMetadata, err)
	}
	defer fh.Close() //nolint:errcheck // Read-only.

	h := md5.New() //nolint:gosec // See import.
	if _, err := io.Copy(h, fh); err != nil {
		return "", fmt.Errorf("%w: checksum %s: %w", ErrMetadata, path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
