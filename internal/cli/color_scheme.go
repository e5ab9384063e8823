package cli

import (
	"image/color"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/exp/charmtone"
)

// ColorSchemeFunc styles help and error output.
func ColorSchemeFunc(c lipgloss.LightDarkFunc) fang.ColorScheme {
	accent := c(charmtone.Guac, charmtone.Julep)
	subtle := c(charmtone.Squid, charmtone.Oyster)
	text := c(charmtone.Pepper, charmtone.Salt)

	return fang.ColorScheme{
		Base:           text,
		Title:          c(charmtone.Charple, charmtone.Malibu),
		Codeblock:      c(charmtone.Salt, lipgloss.Color("#2F2E36")),
		Program:        accent,
		Command:        accent,
		DimmedArgument: subtle,
		Comment:        subtle,
		Flag:           c(charmtone.Cheeky, charmtone.Bok),
		Argument:       text,
		Description:    text,
		FlagDefault:    subtle,
		QuotedString:   c(charmtone.Coral, charmtone.Tang),
		ErrorHeader: [2]color.Color{
			charmtone.Butter,
			charmtone.Cherry,
		},
	}
}
