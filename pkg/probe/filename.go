package probe

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	minFilenameYear = 1900
	maxFilenameYear = 2100
)

// DateFromName finds a capture date embedded in a file name, such as
// "VID_20180120_185352.mp4" or "2018-01-20 15.46.55.mp4". The result is
// midnight UTC of that date.
func DateFromName(path string) (time.Time, bool) {
	name := filepath.Base(path)

	for i := 0; i+8 <= len(name); i++ {
		run := name[i : i+8]
		if !allDigits(run) {
			continue
		}

		if t, ok := makeDate(run[0:4], run[4:6], run[6:8]); ok {
			return t, true
		}
	}

	if strings.Contains(name, "-") {
		parts := strings.FieldsFunc(name, func(r rune) bool {
			return r == '-' || r == ' ' || r == '.'
		})
		if len(parts) >= 3 {
			if t, ok := makeDate(parts[0], parts[1], parts[2]); ok {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

func makeDate(ys, ms, ds string) (time.Time, bool) {
	y, err := strconv.Atoi(ys)
	if err != nil || y < minFilenameYear || y > maxFilenameYear {
		return time.Time{}, false
	}

	m, err := strconv.Atoi(ms)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}

	d, err := strconv.Atoi(ds)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// Reject dates that normalize, e.g. February 30th.
	if t.Day() != d || t.Month() != time.Month(m) {
		return time.Time{}, false
	}

	return t, true
}

func allDigits(s string) bool {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
