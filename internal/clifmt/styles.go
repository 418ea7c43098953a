package clifmt

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

var colorEnabled = detectColor()

func detectColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func style(code, s string) string {
	if !colorEnabled || s == "" {
		return s
	}
	return code + s + ansiReset
}

func Headerf(format string, args ...any) string {
	return style(ansiBold, fmt.Sprintf(format, args...))
}

func Success(s string) string {
	return style(ansiGreen, s)
}

func Warn(s string) string {
	return style(ansiYellow, s)
}

func Key(s string) string {
	return style(ansiCyan, s)
}

func Dim(s string) string {
	return style(ansiDim, s)
}
