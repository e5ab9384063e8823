// Package report renders pipeline outcomes for people and machines.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"github.com/nilp0inter/monana/pkg/pipeline"
)

// Format selects how a [Reporter] writes outcomes.
type Format string

const (
	// FormatAuto is [FormatTable] on a terminal and [FormatJSON] otherwise.
	FormatAuto Format = "auto"
	// FormatTable buffers outcomes and renders a table on [Reporter.Flush].
	FormatTable Format = "table"
	// FormatJSON writes one JSON object per outcome as it completes.
	FormatJSON Format = "json"
	// FormatLog leaves outcomes to the logger and writes only the summary.
	FormatLog Format = "log"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatAuto, FormatTable, FormatJSON, FormatLog}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Formats, f) {
		return f, nil
	}

	return "", fmt.Errorf("unknown report format %q", s)
}

// Reporter writes outcomes to w. It implements [pipeline.OutcomeSink].
type Reporter struct {
	w        io.Writer
	enc      *json.Encoder
	outcomes []pipeline.Outcome
	format   Format
	color    bool
	mu       sync.Mutex
}

// New creates a [Reporter]. [FormatAuto] is resolved against w.
func New(w io.Writer, format Format) *Reporter {
	tty := isTerminal(w)

	if format == FormatAuto || format == "" {
		format = FormatJSON
		if tty {
			format = FormatTable
		}
	}

	return &Reporter{w: w, enc: json.NewEncoder(w), format: format, color: tty}
}

// Format returns the resolved format.
func (r *Reporter) Format() Format {
	return r.format
}

// Record implements [pipeline.OutcomeSink].
func (r *Reporter) Record(_ context.Context, o pipeline.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.format {
	case FormatJSON:
		_ = r.enc.Encode(o) //nolint:errcheck // Output is best effort.
	case FormatTable:
		r.outcomes = append(r.outcomes, o)
	}
}

// Flush renders buffered outcomes and the summary line.
func (r *Reporter) Flush(s pipeline.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.format == FormatJSON {
		if err := json.NewEncoder(r.w).Encode(struct {
			Summary pipeline.Summary `json:"summary"`
		}{s}); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}

		return nil
	}

	if r.format == FormatTable && len(r.outcomes) > 0 {
		if _, err := fmt.Fprintln(r.w, r.table()); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		r.outcomes = nil
	}

	if _, err := fmt.Fprintln(r.w, SummaryLine(s)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

func (r *Reporter) table() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Ruleset", "Source", "Status", "Rule", "Destination"})

	slices.SortStableFunc(r.outcomes, func(a, b pipeline.Outcome) int {
		return strings.Compare(a.Source, b.Source)
	})

	for _, o := range r.outcomes {
		detail := o.Destination
		if o.Status == pipeline.StatusError {
			detail = o.ErrorKind + ": " + o.Error
		}

		tw.AppendRow(table.Row{o.Ruleset, filepath.Base(o.Source), r.status(o.Status), o.Rule, detail})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 40},
		{Number: 5, WidthMax: 80},
	})

	return tw.Render()
}

func (r *Reporter) status(s pipeline.Status) string {
	if !r.color {
		return string(s)
	}

	var c text.Colors

	switch s {
	case pipeline.StatusApplied:
		c = text.Colors{text.FgGreen}
	case pipeline.StatusDryRun:
		c = text.Colors{text.FgCyan}
	case pipeline.StatusNoMatch:
		c = text.Colors{text.FgYellow}
	case pipeline.StatusError:
		c = text.Colors{text.FgRed, text.Bold}
	}

	return c.Sprint(string(s))
}

// SummaryLine formats s on one line.
func SummaryLine(s pipeline.Summary) string {
	return fmt.Sprintf("%s files: %s applied, %s dry-run, %s unmatched, %s failed",
		humanize.Comma(int64(s.Total())),
		humanize.Comma(int64(s.Applied)),
		humanize.Comma(int64(s.DryRun)),
		humanize.Comma(int64(s.NoMatch)),
		humanize.Comma(int64(s.Errors)),
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // File descriptors fit in int.
}
