package template

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/nilp0inter/monana/pkg/attr"
)

// DefaultMaxAttempts bounds collision resolution.
const DefaultMaxAttempts = 10000

// ErrCollisionResolutionExhausted is returned when no free destination was
// found within the attempt limit.
var ErrCollisionResolutionExhausted = errors.New("collision resolution exhausted")

// Destination is a resolved, collision-free destination path.
type Destination struct {
	// Path is absolute and clean.
	Path string
	// Count is the collision counter used. Zero means no collision.
	Count int
	// InPlace is set when Path already is the source file.
	InPlace bool
}

// Resolver renders destinations and picks free paths. Paths handed out
// stay claimed for the life of the Resolver, so concurrent workers (and
// dry runs, which never create anything) never get the same path twice.
type Resolver struct {
	dirs    map[string]*sync.Mutex
	claimed map[string]string
	// MaxAttempts bounds the collision counter. Zero means
	// [DefaultMaxAttempts].
	MaxAttempts int
	mu          sync.Mutex
}

// NewResolver creates a [Resolver].
func NewResolver() *Resolver {
	return &Resolver{
		dirs:    map[string]*sync.Mutex{},
		claimed: map[string]string{},
	}
}

// Resolve renders t against l and returns the first destination that does
// not exist and is not claimed by another source. An existing destination
// that is the source file itself counts as free.
//
// When t references {special.count}, it renders as "" on the first attempt
// and "_N" on attempt N. Otherwise "_N" is inserted before the extension.
func (r *Resolver) Resolve(ctx context.Context, t *Template, l attr.Lookup, source string) (Destination, error) {
	base, err := renderAttempt(t, l, 0)
	if err != nil {
		return Destination{}, err
	}

	srcInfo, _ := os.Stat(source) //nolint:errcheck // Only used for SameFile.

	lock := r.dirLock(filepath.Dir(base))
	lock.Lock()
	defer lock.Unlock()

	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	usesCount := t.Uses(CountRef)

	for n := 0; n <= maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return Destination{}, err
		}

		candidate := base

		switch {
		case n == 0:
		case usesCount:
			candidate, err = renderAttempt(t, l, n)
			if err != nil {
				return Destination{}, err
			}

		default:
			candidate = withSuffix(base, n)
		}

		free, same, err := r.free(candidate, source, srcInfo)
		if err != nil {
			return Destination{}, err
		}

		if free {
			r.claim(candidate, source)
			return Destination{Path: candidate, Count: n, InPlace: same}, nil
		}
	}

	return Destination{}, fmt.Errorf("%w: %s: %d attempts", ErrCollisionResolutionExhausted, base, maxAttempts)
}

// Claimed reports whether path was handed out by r.
func (r *Resolver) Claimed(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.claimed[path]

	return ok
}

func (r *Resolver) dirLock(dir string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.dirs[dir]
	if !ok {
		m = &sync.Mutex{}
		r.dirs[dir] = m
	}

	return m
}

func (r *Resolver) claim(path, source string) {
	r.mu.Lock()
	r.claimed[path] = source
	r.mu.Unlock()
}

// free reports whether candidate can be handed to source, and whether it
// already is the source file. The source file itself is always free, even
// when an earlier ruleset claimed it as its destination.
func (r *Resolver) free(candidate, source string, srcInfo fs.FileInfo) (bool, bool, error) {
	if candidate == filepath.Clean(source) {
		return true, true, nil
	}

	fi, err := os.Lstat(candidate)

	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return false, false, fmt.Errorf("%w: check %s: %w", ErrTemplate, candidate, err)
	case srcInfo != nil && os.SameFile(srcInfo, fi):
		return true, true, nil
	default:
		return false, false, nil
	}

	r.mu.Lock()
	owner, claimed := r.claimed[candidate]
	r.mu.Unlock()

	return !claimed || owner == source, false, nil
}

func renderAttempt(t *Template, l attr.Lookup, n int) (string, error) {
	count := ""
	if n > 0 {
		count = "_" + strconv.Itoa(n)
	}

	s, err := t.RenderPath(attr.Chain(countLookup(count), l))
	if err != nil {
		return "", err
	}

	return absPath(s)
}

func countLookup(count string) attr.Lookup {
	return attr.LookupFunc(func(name string) attr.Value {
		if name == CountRef {
			return attr.String(count)
		}

		return attr.Absent()
	})
}

func absPath(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: rendered an empty path", ErrTemplate)
	}

	abs, err := filepath.Abs(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemplate, err)
	}

	return abs, nil
}

func withSuffix(path string, n int) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + strconv.Itoa(n) + ext
}
