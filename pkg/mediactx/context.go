package mediactx

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/nilp0inter/monana/pkg/attr"
)

// Time sources.
const (
	TimeSourceEXIF       = "exif"
	TimeSourceFilename   = "filename"
	TimeSourceFilesystem = "filesystem"
)

// Space sources.
const (
	SpaceSourceEXIF    = "exif"
	SpaceSourceHistory = "history"
)

const md5ShortLen = 8

// MediaContext is the attribute set for one [MediaFile]. It is immutable
// and safe for concurrent use. The special.md5 and special.md5_short
// attributes are computed only when looked up.
type MediaContext struct {
	attrs *attr.Set
	File  *MediaFile
}

// New wraps a prebuilt attribute set. The source namespace is filled from
// file.
func New(file *MediaFile, attrs *attr.Set) *MediaContext {
	s := attrs.Clone()
	putSource(s, file)

	return &MediaContext{File: file, attrs: s}
}

// Lookup implements [attr.Lookup].
func (c *MediaContext) Lookup(name string) attr.Value {
	switch name {
	case "special.md5", "special.md5_short":
		sum, err := c.File.MD5()
		if err != nil {
			return attr.Absent()
		}

		if name == "special.md5_short" {
			sum = sum[:md5ShortLen]
		}

		return attr.String(sum)
	}

	return c.attrs.Lookup(name)
}

// Get returns the value of ns.key.
func (c *MediaContext) Get(ns attr.Namespace, key string) attr.Value {
	return c.Lookup(string(ns) + "." + key)
}

// Attributes returns a copy of the eagerly computed attributes.
func (c *MediaContext) Attributes() *attr.Set {
	return c.attrs.Clone()
}

// Resolve returns a copy of every attribute, including the lazy checksums.
func (c *MediaContext) Resolve() (*attr.Set, error) {
	s := c.attrs.Clone()

	sum, err := c.File.MD5()
	if err != nil {
		return s, err
	}

	s.Put(attr.NamespaceSpecial, "md5", attr.String(sum))
	s.Put(attr.NamespaceSpecial, "md5_short", attr.String(sum[:md5ShortLen]))

	return s, nil
}

// Rebase returns the context of the same content located at path, as seen
// by a downstream ruleset. The source namespace is recomputed from path and
// every other namespace carries over. The file at path need not exist.
func (c *MediaContext) Rebase(path string) (*MediaContext, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	file := c.File.moved(abs)
	s := c.attrs.Clone()
	s.Drop(attr.NamespaceSource)
	putSource(s, file)

	return &MediaContext{File: file, attrs: s}, nil
}

func putSource(s *attr.Set, f *MediaFile) {
	base := filepath.Base(f.Path)
	ext := filepath.Ext(base)

	s.Put(attr.NamespaceSource, "path", attr.String(f.Path))
	s.Put(attr.NamespaceSource, "dir", attr.String(filepath.Dir(f.Path)))
	s.Put(attr.NamespaceSource, "name", attr.String(strings.TrimSuffix(base, ext)))
	s.Put(attr.NamespaceSource, "original", attr.String(base))
	s.Put(attr.NamespaceSource, "extension", attr.String(strings.TrimPrefix(ext, ".")))
	s.Put(attr.NamespaceSource, "ext", attr.String(strings.ToLower(strings.TrimPrefix(ext, "."))))
	s.Put(attr.NamespaceSource, "size", attr.Int(f.Size))
}

// PutTime expands t into the time namespace of s.
func PutTime(s *attr.Set, t time.Time, source string) {
	t = t.UTC()

	put := func(k string, v attr.Value) { s.Put(attr.NamespaceTime, k, v) }

	put("yyyy", attr.String(t.Format("2006")))
	put("yy", attr.String(t.Format("06")))
	put("mm", attr.String(t.Format("01")))
	put("dd", attr.String(t.Format("02")))
	put("hh", attr.String(t.Format("15")))
	put("min", attr.String(t.Format("04")))
	put("ss", attr.String(t.Format("05")))
	put("year", attr.Int(int64(t.Year())))
	put("month", attr.Int(int64(t.Month())))
	put("day", attr.Int(int64(t.Day())))
	put("hour", attr.Int(int64(t.Hour())))
	put("minute", attr.Int(int64(t.Minute())))
	put("second", attr.Int(int64(t.Second())))
	put("timestamp", attr.Int(t.Unix()))
	put("month_name", attr.String(monthNames[t.Month()-1]))
	put("month_short", attr.String(monthNames[t.Month()-1][:3]))
	put("weekday", attr.String(weekdayNames[t.Weekday()]))
	put("weekday_short", attr.String(weekdayNames[t.Weekday()][:3]))
	put("source", attr.String(source))
}

var (
	monthNames = [...]string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
	weekdayNames = [...]string{
		"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
	}
)
