package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nilp0inter/monana/pkg/log"
)

// ErrSource is returned when a source cannot be read.
var ErrSource = errors.New("source")

// Emit receives discovered absolute file paths.
type Emit func(ctx context.Context, path string)

// Options filter discovered files.
type Options struct {
	// Include globs; when set, a file must match at least one.
	Include []string `json:"include,omitempty"`
	// Exclude globs; a file matching any is skipped.
	Exclude []string `json:"exclude,omitempty"`
	// Recursive descends into subdirectories.
	Recursive bool `json:"recursive"`
	// Hidden includes dot-files and dot-directories.
	Hidden bool `json:"hidden"`
}

// Validate checks every glob pattern.
func (o Options) Validate() error {
	for _, p := range append(append([]string{}, o.Include...), o.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	return nil
}

// Match reports whether rel, a slash-separated path relative to the
// source directory, passes the include and exclude globs.
func (o Options) Match(rel string) bool {
	rel = filepath.ToSlash(rel)

	for _, p := range o.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok { //nolint:errcheck // Validated.
			return false
		}
	}

	if len(o.Include) == 0 {
		return true
	}

	for _, p := range o.Include {
		if ok, _ := doublestar.Match(p, rel); ok { //nolint:errcheck // Validated.
			return true
		}
	}

	return false
}

// accepts applies every option to path, a file below root.
func (o Options) accepts(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}

	if !o.Hidden && hasHiddenPart(rel) {
		return false
	}

	if !o.Recursive && strings.ContainsRune(filepath.ToSlash(rel), '/') {
		return false
	}

	return o.Match(rel)
}

func hasHiddenPart(rel string) bool {
	for part := range strings.SplitSeq(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}

	return false
}

// Scan walks dir and emits every regular file accepted by opts, in
// lexical order. Unreadable subdirectories are logged and skipped.
func Scan(ctx context.Context, dir string, opts Options, emit Emit) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSource, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSource, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s: not a directory", ErrSource, root)
	}

	logger := log.WithContext(ctx)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			logger.WarnContext(ctx, "skipping unreadable path",
				slog.String("path", path),
				slog.Any("error", err),
			)

			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}

			if !opts.Recursive || (!opts.Hidden && strings.HasPrefix(d.Name(), ".")) {
				return fs.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() || !opts.accepts(root, path) {
			return nil
		}

		emit(ctx, path)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: scan %s: %w", ErrSource, root, err)
	}

	return nil
}

// Expand emits a caller-supplied list of paths. Files are emitted as
// given, directories are scanned with opts.
func Expand(ctx context.Context, paths []string, opts Options, emit Emit) error {
	var errs []error

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		abs, err := filepath.Abs(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrSource, err))
			continue
		}

		info, err := os.Stat(abs)
		if err == nil && info.IsDir() {
			if err := Scan(ctx, abs, opts, emit); err != nil {
				errs = append(errs, err)
			}

			continue
		}

		// Missing and unreadable files are reported by the context builder.
		emit(ctx, abs)
	}

	return errors.Join(errs...)
}
