package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nilp0inter/monana/pkg/attr"
)

// WriteAttributes renders every attribute of s, grouped by namespace.
// [FormatJSON] writes a single object keyed by dotted name; any other
// format writes a table.
func WriteAttributes(w io.Writer, s *attr.Set, format Format) error {
	if format == FormatAuto || format == "" {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatTable
		}
	}

	if format == FormatJSON {
		out := map[string]attr.Value{}

		for _, ns := range attr.Namespaces {
			for k, v := range s.Namespace(ns) {
				out[string(ns)+"."+k] = v
			}
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode attributes: %w", err)
		}

		return nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Attribute", "Value", "Kind"})

	dim := text.Colors{}
	if isTerminal(w) {
		dim = text.Colors{text.Faint}
	}

	rows := 0

	for _, ns := range attr.Namespaces {
		keys := s.Keys(ns)
		if len(keys) == 0 {
			continue
		}

		if rows > 0 {
			tw.AppendSeparator()
		}

		rows += len(keys)

		for _, k := range keys {
			v := s.Get(ns, k)
			tw.AppendRow(table.Row{string(ns) + "." + k, v.String(), dim.Sprint(v.Kind().String())})
		}
	}

	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})

	if _, err := fmt.Fprintln(w, tw.Render()); err != nil {
		return fmt.Errorf("write attributes: %w", err)
	}

	return nil
}
