package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilp0inter/monana/pkg/log"
)

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "json", level: "info", format: "json"},
		{name: "logfmt", level: "debug", format: "logfmt"},
		{name: "text", level: "WARN", format: "text"},
		{name: "warning alias", level: "warning", format: "json"},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, err := log.CreateHandlerWithStrings(&bytes.Buffer{}, tt.level, tt.format)
			if tt.wantErr {
				require.ErrorIs(t, err, log.ErrInvalidArgument)
				assert.Nil(t, h)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func TestJSONHandlerLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(log.CreateHandler(&buf, slog.LevelWarn, log.FormatJSON))
	logger.Info("hidden")
	logger.Warn("shown", slog.String("path", "/a.jpg"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"path":"/a.jpg"`)
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(log.CreateHandler(&buf, slog.LevelInfo, log.FormatJSON)).With(slog.String("ruleset", "photos"))
	ctx := log.NewContext(context.Background(), logger)

	log.WithContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), `"ruleset":"photos"`)

	assert.Equal(t, slog.Default(), log.WithContext(context.Background()))
}

func TestDurationAttr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format log.Format
		want   string
	}{
		{name: "json", format: log.FormatJSON, want: `"duration":"1.5s"`},
		{name: "logfmt", format: log.FormatLogfmt, want: `duration=1.5s`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			logger := slog.New(log.CreateHandler(&buf, slog.LevelInfo, tt.format))
			logger.Info("processed", slog.Duration("duration", 1500*time.Millisecond+300*time.Microsecond))

			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestTextHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(log.CreateHandler(&buf, slog.LevelInfo, log.FormatText))
	logger.Info("processed", slog.String("ruleset", "photos"), slog.String("status", "applied"))

	assert.Contains(t, buf.String(), "processed")
	assert.Contains(t, buf.String(), "photos")
}
