package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the weft banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"                __ _   ", "#818cf8"},
		{" __      _____ / _| |_ ", "#a78bfa"},
		{" \\ \\ /\\ / / _ \\ |_| __|", "#c084fc"},
		{"  \\ V  V /  __/  _| |_ ", "#e879f9"},
		{"   \\_/\\_/ \\___|_|  \\__|", "#f472b6"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
