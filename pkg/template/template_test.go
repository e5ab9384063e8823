package template_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilp0inter/monana/pkg/attr"
	"github.com/nilp0inter/monana/pkg/template"
)

func testSet() *attr.Set {
	s := attr.NewSet()
	s.Put(attr.NamespaceTime, "yyyy", attr.String("2025"))
	s.Put(attr.NamespaceTime, "mm", attr.String("07"))
	s.Put(attr.NamespaceTime, "year", attr.Int(2025))
	s.Put(attr.NamespaceSpace, "city", attr.String("Madrid"))
	s.Put(attr.NamespaceSpace, "lat", attr.Float(40.5))
	s.Put(attr.NamespaceSource, "name", attr.String("IMG_1"))
	s.Put(attr.NamespaceSource, "ext", attr.String("jpg"))
	s.Put(attr.NamespaceSource, "dir", attr.String("/in/2025"))
	s.Put(attr.NamespaceSpace, "region", attr.String("Castilla/La Mancha"))
	s.Put(attr.NamespaceMedia, "type", attr.String("image"))
	s.Put(attr.NamespaceMeta, "Model", attr.String("AC/DC 100"))

	return s
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
		path bool
	}{
		{name: "strings", src: "/p/{time.yyyy}/{time.mm}/{source.name}.{source.ext}", want: "/p/2025/07/IMG_1.jpg"},
		{name: "int", src: "{time.year}", want: "2025"},
		{name: "float", src: "{space.lat}", want: "40.5"},
		{name: "flat type", src: "{type}s/{space.city}", want: "images/Madrid"},
		{name: "literal braces", src: "{not a var} {time.yyyy}", want: "{not a var} 2025"},
		{name: "raw separators", src: "{meta.Model}", want: "AC/DC 100"},
		{name: "path separators", src: "/cams/{meta.Model}/x", want: "/cams/AC_DC 100/x", path: true},
		{name: "path attributes", src: "{source.dir}/{space.region}", want: "/in/2025/Castilla_La Mancha", path: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpl, err := template.Parse(tt.src)
			require.NoError(t, err)

			render := tmpl.Render
			if tt.path {
				render = tmpl.RenderPath
			}

			got, err := render(testSet())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Referentially transparent.
			again, err := render(testSet())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestRenderUnresolved(t *testing.T) {
	t.Parallel()

	tmpl := template.MustParse("/Photos/Travel/{space.country}/{space.city}/{space.country}/{source.name}")

	_, err := tmpl.Render(testSet())
	require.ErrorIs(t, err, template.ErrTemplate)

	var uerr *template.UnresolvedError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, []string{"space.country"}, uerr.Vars)
	assert.Contains(t, err.Error(), "space.country")

	_, err = template.MustParse("{meta.Nope}-{special.md5}").Render(nil)
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, []string{"meta.Nope", "special.md5"}, uerr.Vars)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"", "  ", "/x/{sapce.city}", "/x/{city}"} {
		_, err := template.Parse(src)
		require.ErrorIs(t, err, template.ErrTemplate, src)
	}

	tmpl := template.MustParse("{time.yyyy}/{time.yyyy}/{special.count}")
	assert.Equal(t, []string{"time.yyyy", "special.count"}, tmpl.References())
	assert.True(t, tmpl.Uses(template.CountRef))
	assert.Equal(t, "{time.yyyy}/{time.yyyy}/{special.count}", tmpl.String())
}

func touch(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(path), 0o644))
}

func TestResolveSuffix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "2025", "IMG_1.jpg"))
	touch(t, filepath.Join(dir, "2025", "IMG_1_1.jpg"))

	r := template.NewResolver()
	tmpl := template.MustParse(dir + "/{time.yyyy}/{source.name}.{source.ext}")

	d, err := r.Resolve(t.Context(), tmpl, testSet(), "/elsewhere/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025", "IMG_1_2.jpg"), d.Path)
	assert.Equal(t, 2, d.Count)
	assert.True(t, r.Claimed(d.Path))

	// A second file claims the next free counter even though nothing was
	// written to disk.
	d2, err := r.Resolve(t.Context(), tmpl, testSet(), "/elsewhere/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025", "IMG_1_3.jpg"), d2.Path)
	assert.Greater(t, d2.Count, d.Count)

	// The same source gets its own claim back.
	d3, err := r.Resolve(t.Context(), tmpl, testSet(), "/elsewhere/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, d.Path, d3.Path)
}

func TestResolveCountPlaceholder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tmpl := template.MustParse(dir + "/{source.name}{special.count}.{source.ext}")
	r := template.NewResolver()

	d, err := r.Resolve(t.Context(), tmpl, testSet(), "a")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "IMG_1.jpg"), d.Path)
	assert.Equal(t, 0, d.Count)

	touch(t, d.Path)

	d, err = r.Resolve(t.Context(), tmpl, testSet(), "b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "IMG_1_1.jpg"), d.Path)
}

func TestResolveSameFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "IMG_1.jpg")
	touch(t, src)

	d, err := template.NewResolver().Resolve(t.Context(), template.MustParse(dir+"/{source.name}.{source.ext}"), testSet(), src)
	require.NoError(t, err)
	assert.Equal(t, src, d.Path)
	assert.True(t, d.InPlace)
}

func TestResolveSourceDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	touch(t, src)

	s := attr.NewSet()
	s.Put(attr.NamespaceSource, "dir", attr.String(dir))
	s.Put(attr.NamespaceSource, "path", attr.String(src))
	s.Put(attr.NamespaceSource, "original", attr.String("a.jpg"))

	r := template.NewResolver()

	d, err := r.Resolve(t.Context(), template.MustParse("{source.dir}/sorted/{source.original}"), s, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sorted", "a.jpg"), d.Path)
	assert.False(t, d.InPlace)

	d, err = r.Resolve(t.Context(), template.MustParse("{source.path}"), s, src)
	require.NoError(t, err)
	assert.Equal(t, src, d.Path)
	assert.True(t, d.InPlace)
}

func TestResolveClaimedBySource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tmpl := template.MustParse(dir + "/{source.name}.{source.ext}")
	r := template.NewResolver()

	// An upstream ruleset claims the destination for the original file.
	up, err := r.Resolve(t.Context(), tmpl, testSet(), "/in/IMG_1.jpg")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "IMG_1.jpg"), up.Path)

	tests := []struct {
		name    string
		written bool
	}{
		{name: "dry run"},
		{name: "applied", written: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.written {
				touch(t, up.Path)
			}

			// The file now living there renders the same path.
			down, err := r.Resolve(t.Context(), tmpl, testSet(), up.Path)
			require.NoError(t, err)
			assert.Equal(t, up.Path, down.Path)
			assert.Equal(t, 0, down.Count)
			assert.True(t, down.InPlace)
		})
	}

	// Any other file still collides.
	other, err := r.Resolve(t.Context(), tmpl, testSet(), "/in/other.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "IMG_1_1.jpg"), other.Path)
}

func TestResolveExhausted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "IMG_1.jpg"))
	touch(t, filepath.Join(dir, "IMG_1_1.jpg"))
	touch(t, filepath.Join(dir, "IMG_1_2.jpg"))

	r := template.NewResolver()
	r.MaxAttempts = 2

	_, err := r.Resolve(t.Context(), template.MustParse(dir+"/{source.name}.{source.ext}"), testSet(), "x")
	require.ErrorIs(t, err, template.ErrCollisionResolutionExhausted)
}

func TestResolveRelative(t *testing.T) {
	t.Parallel()

	d, err := template.NewResolver().Resolve(t.Context(), template.MustParse("out/{source.name}.{source.ext}"), testSet(), "x")
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "out", "IMG_1.jpg"), d.Path)
}

func TestResolveConcurrent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tmpl := template.MustParse(dir + "/{source.name}.{source.ext}")
	r := template.NewResolver()

	const workers = 32

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		paths = map[string]bool{}
	)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			d, err := r.Resolve(t.Context(), tmpl, testSet(), filepath.Join("/src", string(rune('a'+i))))
			assert.NoError(t, err)

			mu.Lock()
			paths[d.Path] = true
			mu.Unlock()
		}()
	}

	wg.Wait()
	assert.Len(t, paths, workers)
}
