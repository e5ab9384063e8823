package expr_test

import (
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilp0inter/monana/pkg/expr"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		expression string
		file       string
		op         fsnotify.Op
		expected   bool
	}{
		{
			name:       "pathExt in list",
			expression: `pathExt(file) in [".jpg", ".mp4"]`,
			file:       "/inbox/IMG_1.JPG",
			op:         fsnotify.Create,
			expected:   true,
		},
		{
			name:       "pathBase prefix",
			expression: `pathBase(file).startsWith("IMG_")`,
			file:       "/inbox/VID_1.mp4",
			op:         fsnotify.Create,
			expected:   false,
		},
		{
			name:       "pathDir contains",
			expression: `!pathDir(file).contains("/.thumbnails")`,
			file:       "/inbox/.thumbnails/a.jpg",
			op:         fsnotify.Write,
			expected:   false,
		},
		{
			name:       "has single flag",
			expression: `fs.event.has(fs.CREATE)`,
			file:       "/inbox/a.jpg",
			op:         fsnotify.Create | fsnotify.Write,
			expected:   true,
		},
		{
			name:       "has any flag",
			expression: `fs.event.has(fs.RENAME, fs.CREATE)`,
			file:       "/inbox/a.jpg",
			op:         fsnotify.Write,
			expected:   false,
		},
		{
			name:       "compare constants",
			expression: `fs.event == fs.WRITE`,
			file:       "/inbox/a.jpg",
			op:         fsnotify.Write,
			expected:   true,
		},
		{
			name:       "pathMatch doublestar",
			expression: `pathMatch("/inbox/**/DCIM/*.{jpg,JPG}", file)`,
			file:       "/inbox/phone/DCIM/IMG_1.JPG",
			op:         fsnotify.Create,
			expected:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := expr.NewFilter(tt.expression)
			require.NoError(t, err)

			got, err := f.Match(tt.file, tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expression, f.String())
		})
	}
}

func TestFilterErrors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{`file +`, `unknown == 1`, `pathBase(file)`} {
		_, err := expr.NewFilter(src)
		require.ErrorIs(t, err, expr.ErrFilter, src)
	}
}

func TestNilFilter(t *testing.T) {
	t.Parallel()

	var f *expr.Filter

	ok, err := f.Match("/a.jpg", fsnotify.Chmod)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, f.String())
}
