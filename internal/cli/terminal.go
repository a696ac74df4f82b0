package cli

import (
	"os"

	"golang.org/x/term"
)

// fallbackTerminalWidth is used when stdout isn't a TTY (piped output,
// CI logs) or the size can't be queried.
const fallbackTerminalWidth = 100

// terminalWidth returns the width of the controlling terminal in columns.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fallbackTerminalWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return fallbackTerminalWidth
	}
	return width
}

// supportsColor reports whether stdout can render ANSI color. Honors
// NO_COLOR (https://no-color.org) and falls back to plain text when
// output isn't a terminal (e.g. piped into a file or another program).
func supportsColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiYellow = "\x1b[33m"
	ansiDim    = "\x1b[2m"
)

func colorize(code, s string) string {
	if !supportsColor() {
		return s
	}
	return code + s + ansiReset
}

func truncate(s string, max int) string {
	if max <= 1 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
