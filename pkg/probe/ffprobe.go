package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nilp0inter/monana/pkg/execs"
)

// DefaultFFprobe is the ffprobe binary looked up in PATH.
const DefaultFFprobe = "ffprobe"

// ErrFFprobeUnavailable is returned when the ffprobe binary cannot be found.
var ErrFFprobeUnavailable = errors.New("ffprobe unavailable")

// VideoInfo is the parsed output of an ffprobe inspection.
type VideoInfo struct {
	Streams []VideoStream `json:"streams"`
	Format  VideoFormat   `json:"format"`
}

// VideoStream describes a single stream in the media container.
type VideoStream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Index     int    `json:"index"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// VideoFormat captures container-level metadata.
type VideoFormat struct {
	Tags       map[string]string `json:"tags"`
	Duration   string            `json:"duration"`
	FormatName string            `json:"format_name"`
}

// Video returns the first video stream.
func (v VideoInfo) Video() (VideoStream, bool) {
	for _, s := range v.Streams {
		if strings.EqualFold(s.CodecType, "video") {
			return s, true
		}
	}

	return VideoStream{}, false
}

// DurationSeconds returns the container duration, falling back to the
// video stream duration. It returns false when neither is known.
func (v VideoInfo) DurationSeconds() (float64, bool) {
	if d := parseFloat(v.Format.Duration); !math.IsNaN(d) && d > 0 {
		return d, true
	}

	if s, ok := v.Video(); ok {
		if d := parseFloat(s.Duration); !math.IsNaN(d) && d > 0 {
			return d, true
		}
	}

	return 0, false
}

// FFprobe inspects videos with an external ffprobe binary.
type FFprobe struct {
	executor *execs.Executor
	binary   string
}

// NewFFprobe creates an [FFprobe]. An empty binary uses [DefaultFFprobe].
func NewFFprobe(binary string, executor *execs.Executor) *FFprobe {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultFFprobe
	}

	if executor == nil {
		executor = execs.NewExecutor()
	}

	return &FFprobe{binary: binary, executor: executor}
}

// Available reports whether the ffprobe binary can be found.
func (p *FFprobe) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// Inspect runs ffprobe against path and decodes its JSON report.
func (p *FFprobe) Inspect(ctx context.Context, path string) (VideoInfo, error) {
	if !p.Available() {
		return VideoInfo{}, fmt.Errorf("%w: %s", ErrFFprobeUnavailable, p.binary)
	}

	res, err := p.executor.Exec(ctx, execs.Command{
		Command: p.binary,
		Args:    []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path},
	}, filepath.Dir(path))
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var info VideoInfo
	if err := json.Unmarshal([]byte(res.Stdout), &info); err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	return info, nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}

	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}

	return math.NaN()
}
