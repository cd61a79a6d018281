package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the timelockd banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Amber to orange, one step per line.
	lines := []struct{ text, color string }{
		{"  _   _              _            _    ", "#fbbf24"},
		{" | |_(_)_ __  ___| | ___  ___| | __", "#f59e0b"},
		{" | __| | '_ ` _ \\/ _ \\ |/ _ \\/ __| |/ /", "#f97316"},
		{" | |_| | | | | | |  __/ | (_) | (__|   < ", "#ea580c"},
		{"  \\__|_|_| |_| |_|\\___|_|\\___/ \\___|_|\\_\\", "#c2410c"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  BTC timelock bridge engine "+version).Faint())
	fmt.Fprintln(w)
}
