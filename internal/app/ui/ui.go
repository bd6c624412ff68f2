package ui

import (
	"fmt"
	"strings"
)

const AsciiArt = `
  ___ _ __ __ ___      _| |_ __  _ __ ___ | |__   ___
 / __| '__/ _` + "`" + ` \ \ /\ / / | '_ \| '__/ _ \| '_ \ / _ \
| (__| | | (_| |\ V  V /| | |_) | | | (_) | |_) |  __/
 \___|_|  \__,_| \_/\_/ |_| .__/|_|  \___/|_.__/ \___|
                          |_|
`

const (
	ColorReset  = "\033[0m"
	ColorGray   = "\033[90m" // Light gray
	ColorWhite  = "\033[97m" // White
	ColorRed    = "\033[91m" // Bright Red
	ColorGreen  = "\033[92m" // Bright Green
	ColorYellow = "\033[93m" // Bright Yellow
)

// PrintGradientAsciiArt prints the banner with a yellow to blue gradient.
func PrintGradientAsciiArt() {
	lines := strings.Split(strings.Trim(AsciiArt, "\n"), "\n")
	for i, line := range lines {
		ratio := float64(i) / float64(len(lines)-1)

		var r, g, b int
		// Yellow (255,255,0) -> Cyan (0,255,255) -> Blue (0,0,255)
		if ratio < 0.5 {
			localRatio := ratio * 2
			r = int(255 * (1 - localRatio))
			g = 255
			b = int(255 * localRatio)
		} else {
			localRatio := (ratio - 0.5) * 2
			r = 0
			g = int(255 * (1 - localRatio))
			b = 255
		}

		fmt.Printf("\033[38;2;%d;%d;%dm%s\033[0m\n", r, g, b, line)
	}
}
