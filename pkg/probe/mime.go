package probe

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MediaType is the coarse kind of a media file.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaOther MediaType = "other"
)

// DetectMIME sniffs the content of the file at path and classifies it.
func DetectMIME(path string) (string, MediaType, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", MediaOther, fmt.Errorf("detect mime type: %w", err)
	}

	return m.String(), Classify(m), nil
}

// Classify maps a detected MIME type, or any of its parents, to a
// [MediaType].
func Classify(m *mimetype.MIME) MediaType {
	for ; m != nil; m = m.Parent() {
		mt, _, _ := strings.Cut(m.String(), ";")
		switch {
		case strings.HasPrefix(mt, "image/"):
			return MediaImage
		case strings.HasPrefix(mt, "video/"):
			return MediaVideo
		}
	}

	return MediaOther
}
