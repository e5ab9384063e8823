package mediactx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nilp0inter/monana/pkg/attr"
	"github.com/nilp0inter/monana/pkg/geocode"
	"github.com/nilp0inter/monana/pkg/history"
	"github.com/nilp0inter/monana/pkg/log"
	"github.com/nilp0inter/monana/pkg/probe"
)

// ErrMetadata is returned when a file cannot be read or identified.
var ErrMetadata = errors.New("metadata")

// VideoProber inspects video files.
type VideoProber interface {
	Inspect(ctx context.Context, path string) (probe.VideoInfo, error)
}

// Builder builds a [MediaContext] per file. All fields are optional and
// shared read-only between concurrent builds.
type Builder struct {
	// History supplies coordinates for files without GPS tags.
	History *history.Index
	// Geocoder resolves coordinates to places. Nil disables geocoding.
	Geocoder geocode.Geocoder
	// Video probes dimensions, duration and codec of videos.
	Video VideoProber
	// MaxOffset bounds the time distance of a history match. Zero means
	// [history.DefaultMaxOffset].
	MaxOffset time.Duration
}

// Build reads path and resolves its attributes. Failures to read or
// identify the file return an error wrapping [ErrMetadata]. Failures of
// individual probes only leave their attributes absent.
func (b *Builder) Build(ctx context.Context, path string) (*MediaContext, error) {
	f, err := probe.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
	}

	logger := log.WithContext(ctx).With(slog.String("path", f.Path))

	mime, mt, err := probe.DetectMIME(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
	}

	file := newMediaFile(f, mime, mt)
	s := attr.NewSet()

	s.Put(attr.NamespaceMedia, "type", attr.String(string(mt)))
	s.Put(attr.NamespaceMedia, "mime", attr.String(mime))

	var x *probe.EXIF

	if mt == probe.MediaImage {
		x, err = probe.ReadEXIF(f.Path)
		if err != nil {
			logger.DebugContext(ctx, "no exif data", slog.Any("error", err))

			x = nil
		}
	}

	if x != nil {
		for k, v := range x.Tags {
			s.Put(attr.NamespaceMeta, k, v)
		}

		putString(s, attr.NamespaceMedia, "make", x.Make)
		putString(s, attr.NamespaceMedia, "model", x.Model)

		if x.Orientation > 0 {
			s.Put(attr.NamespaceMedia, "orientation", attr.Int(int64(x.Orientation)))
		}
	}

	switch mt {
	case probe.MediaImage:
		b.probeImage(ctx, s, f.Path, x)
	case probe.MediaVideo:
		b.probeVideo(ctx, s, f.Path)
	}

	captured := b.resolveTime(s, file, x)
	b.resolveSpace(ctx, s, captured, x)

	logger.DebugContext(ctx, "built media context",
		slog.String("type", string(mt)),
		slog.String("time_source", s.Get(attr.NamespaceTime, "source").String()),
		slog.String("space_source", s.Get(attr.NamespaceSpace, "source").String()),
	)

	return New(file, s), nil
}

func (b *Builder) resolveTime(s *attr.Set, f *MediaFile, x *probe.EXIF) time.Time {
	if x.HasCaptured() {
		PutTime(s, x.Captured, TimeSourceEXIF)
		return x.Captured
	}

	if f.Type == probe.MediaVideo {
		if t, ok := probe.DateFromName(f.Path); ok {
			PutTime(s, t, TimeSourceFilename)
			return t
		}
	}

	t := f.Earliest()
	PutTime(s, t, TimeSourceFilesystem)

	return t
}

func (b *Builder) resolveSpace(ctx context.Context, s *attr.Set, captured time.Time, x *probe.EXIF) {
	var coord geocode.Coordinate

	switch {
	case x != nil && x.HasGPS:
		coord = geocode.Coordinate{Lat: x.Lat, Lon: x.Lon}

		s.Put(attr.NamespaceSpace, "source", attr.String(SpaceSourceEXIF))

		if x.Altitude != nil {
			s.Put(attr.NamespaceSpace, "altitude", attr.Float(*x.Altitude))
		}

	case b.History.Len() > 0:
		maxOffset := b.MaxOffset
		if maxOffset <= 0 {
			maxOffset = history.DefaultMaxOffset
		}

		m, ok := b.History.Within(captured, maxOffset)
		if !ok {
			return
		}

		coord = geocode.Coordinate{Lat: m.Point.Latitude(), Lon: m.Point.Longitude()}

		s.Put(attr.NamespaceSpace, "source", attr.String(SpaceSourceHistory))
		s.Put(attr.NamespaceSpace, "history_offset", attr.Int(int64(m.Offset/time.Second)))

	default:
		return
	}

	s.Put(attr.NamespaceSpace, "lat", attr.Float(coord.Lat))
	s.Put(attr.NamespaceSpace, "lon", attr.Float(coord.Lon))

	if b.Geocoder == nil {
		return
	}

	place, err := b.Geocoder.Reverse(ctx, coord)

	switch {
	case errors.Is(err, geocode.ErrNotFound):
		log.WithContext(ctx).DebugContext(ctx, "no place for coordinate",
			slog.String("coordinate", coord.String()),
		)

		return

	case err != nil:
		log.WithContext(ctx).WarnContext(ctx, "reverse geocoding failed",
			slog.String("coordinate", coord.String()),
			slog.Any("error", err),
		)

		return
	}

	putString(s, attr.NamespaceSpace, "country", place.Country)
	putString(s, attr.NamespaceSpace, "country_code", place.CountryCode)
	putString(s, attr.NamespaceSpace, "state", place.State)
	putString(s, attr.NamespaceSpace, "city", place.City)
	putString(s, attr.NamespaceSpace, "county", place.County)
	putString(s, attr.NamespaceSpace, "road", place.Road)
}

func (b *Builder) probeImage(ctx context.Context, s *attr.Set, path string, x *probe.EXIF) {
	if x != nil && x.Width > 0 && x.Height > 0 {
		s.Put(attr.NamespaceMedia, "width", attr.Int(int64(x.Width)))
		s.Put(attr.NamespaceMedia, "height", attr.Int(int64(x.Height)))

		return
	}

	w, h, err := probe.ImageSize(path)
	if err != nil {
		log.WithContext(ctx).DebugContext(ctx, "image size unavailable",
			slog.String("path", path),
			slog.Any("error", err),
		)

		return
	}

	s.Put(attr.NamespaceMedia, "width", attr.Int(int64(w)))
	s.Put(attr.NamespaceMedia, "height", attr.Int(int64(h)))
}

func (b *Builder) probeVideo(ctx context.Context, s *attr.Set, path string) {
	if b.Video == nil {
		return
	}

	info, err := b.Video.Inspect(ctx, path)
	if err != nil {
		log.WithContext(ctx).DebugContext(ctx, "video probe failed",
			slog.String("path", path),
			slog.Any("error", err),
		)

		return
	}

	if d, ok := info.DurationSeconds(); ok {
		s.Put(attr.NamespaceMedia, "duration", attr.Float(d))
	}

	v, ok := info.Video()
	if !ok {
		return
	}

	putString(s, attr.NamespaceMedia, "codec", v.CodecName)

	if v.Width > 0 && v.Height > 0 {
		s.Put(attr.NamespaceMedia, "width", attr.Int(int64(v.Width)))
		s.Put(attr.NamespaceMedia, "height", attr.Int(int64(v.Height)))
	}
}

func putString(s *attr.Set, ns attr.Namespace, key, v string) {
	if v != "" {
		s.Put(ns, key, attr.String(v))
	}
}
