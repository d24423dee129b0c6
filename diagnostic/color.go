// Copyright © 2024 The runcoliru authors

package diagnostic

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorMode controls when ANSI color codes are used.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // detect based on terminal and NO_COLOR
	ColorAlways                  // always use colors
	ColorNever                   // never use colors
)

// ParseColorMode maps the --color flag values onto a ColorMode. Unknown
// values select ColorAuto.
func ParseColorMode(s string) ColorMode {
	switch s {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}

// palette holds the styles used for diagnostic output.
type palette struct {
	bold      *color.Color
	boldRed   *color.Color
	yellow    *color.Color
	boldBlue  *color.Color
	boldCyan  *color.Color
	boldGreen *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		bold:      color.New(color.Bold),
		boldRed:   color.New(color.FgRed, color.Bold),
		yellow:    color.New(color.FgYellow, color.Bold),
		boldBlue:  color.New(color.FgBlue, color.Bold),
		boldCyan:  color.New(color.FgCyan, color.Bold),
		boldGreen: color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.bold, p.boldRed, p.yellow, p.boldBlue, p.boldCyan, p.boldGreen} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// choosePalette selects the appropriate color palette based on the mode
// and the output writer.
func choosePalette(mode ColorMode, w io.Writer) palette {
	switch mode {
	case ColorAlways:
		return newPalette(true)
	case ColorNever:
		return newPalette(false)
	default: // ColorAuto
		if os.Getenv("NO_COLOR") != "" {
			return newPalette(false)
		}
		return newPalette(isTerminal(w))
	}
}

// isTerminal reports whether w is connected to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
