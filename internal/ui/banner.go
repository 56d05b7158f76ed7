// Package ui provides colorized console output for the SVG arena server.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Version is printed in the banner.
const Version = "v1.0.0"

// ══════════════════════════════════════════════════════════════════════════════
// ASCII ART BANNER
// ══════════════════════════════════════════════════════════════════════════════

// PrintBanner displays the ASCII art startup banner.
func PrintBanner() {
	out := color.Output
	fmt.Fprintln(out)

	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	art := [][2]string{
		{"███████╗██╗   ██╗ ██████╗ ", " █████╗ ██████╗ ███████╗███╗   ██╗ █████╗ "},
		{"██╔════╝██║   ██║██╔════╝ ", "██╔══██╗██╔══██╗██╔════╝████╗  ██║██╔══██╗"},
		{"███████╗██║   ██║██║  ███╗", "███████║██████╔╝█████╗  ██╔██╗ ██║███████║"},
		{"╚════██║╚██╗ ██╔╝██║   ██║", "██╔══██║██╔══██╗██╔══╝  ██║╚██╗██║██╔══██║"},
		{"███████║ ╚████╔╝ ╚██████╔╝", "██║  ██║██║  ██║███████╗██║ ╚████║██║  ██║"},
		{"╚══════╝  ╚═══╝   ╚═════╝ ", "╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═══╝╚═╝  ╚═╝"},
	}

	cyan.Fprintln(out, "╔══════════════════════════════════════════════════════════════════════════╗")
	for _, line := range art {
		cyan.Fprint(out, "║  ")
		hiCyan.Fprint(out, line[0])
		dim.Fprint(out, "   ")
		magenta.Fprint(out, line[1])
		cyan.Fprintln(out, "  ║")
	}
	cyan.Fprintln(out, "╠══════════════════════════════════════════════════════════════════════════╣")

	cyan.Fprint(out, "║  ")
	yellow.Fprint(out, "ONE PROMPT, EVERY MODEL")
	dim.Fprint(out, "  │  ")
	white.Fprint(out, Version)
	dim.Fprint(out, "                                        ")
	cyan.Fprintln(out, "║")

	cyan.Fprintln(out, "╚══════════════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
}
