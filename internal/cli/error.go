package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"

	"github.com/nilp0inter/monana/pkg/pipeline"
)

var usagePrefixes = []string{
	"flag needs an argument:",
	"unknown flag:",
	"unknown shorthand flag:",
	"unknown command",
	"invalid argument",
	"accepts ",
}

// ErrorHandler prints err under the fang error header, followed by a hint
// for usage, configuration and per-file failures.
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	mustN(fmt.Fprintln(w, styles.ErrorHeader.String()))
	mustN(fmt.Fprintln(w, lipgloss.NewStyle().MarginLeft(2).Render(err.Error())))
	mustN(fmt.Fprintln(w))

	if h := hint(err); h != nil {
		text := styles.ErrorText.UnsetWidth()
		mustN(fmt.Fprintln(w, lipgloss.JoinHorizontal(
			lipgloss.Left,
			text.Render(h[0]),
			styles.Program.Flag.Render(h[1]),
			text.UnsetMargins().UnsetTransform().PaddingLeft(1).Render(h[2]),
		)))
		mustN(fmt.Fprintln(w))
	}
}

func hint(err error) []string {
	switch {
	case isUsageError(err):
		return []string{"Try", "--help", "for usage."}
	case errors.Is(err, pipeline.ErrConfiguration):
		return []string{"Run", cmdName + " validate", "to check the configuration."}
	case errors.Is(err, ErrFailedOutcomes):
		return []string{"Rerun with", "--log-level debug", "for details."}
	}

	return nil
}

// XXX: this is a hack to detect usage errors.
// See: https://github.com/spf13/cobra/pull/2266
func isUsageError(err error) bool {
	s := err.Error()

	return slices.ContainsFunc(usagePrefixes, func(prefix string) bool {
		return strings.HasPrefix(s, prefix)
	})
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustN(_ int, err error) {
	must(err)
}
