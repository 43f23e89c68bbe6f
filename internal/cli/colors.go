package cli

import (
	"fmt"
	"os"
	"strings"
)

const (
	ResetCode = "\033[0m"
	BoldCode  = "\033[1m"
	DimCode   = "\033[2m"
	Red       = "\033[31m"
	Green     = "\033[32m"
	Yellow    = "\033[33m"
	Blue      = "\033[34m"
	Purple    = "\033[35m"
	Cyan      = "\033[36m"
)

// RGB is a TrueColor triple.
type RGB struct {
	R, G, B float64
}

var (
	RelayTeal   = RGB{0, 190, 170}
	RelayViolet = RGB{140, 80, 235}
)

var disabled = noColor()

func noColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	if v := os.Getenv("LOG_COLOR"); v != "" {
		return v != "true" && v != "1"
	}
	return false
}

// Enabled reports whether ANSI output is allowed.
func Enabled() bool {
	return !disabled
}

// SetEnabled overrides the environment check, mostly for tests.
func SetEnabled(on bool) {
	disabled = !on
}

func Style(text string, code string) string {
	if disabled {
		return text
	}
	return code + text + ResetCode
}

func ColorizeRGB(text string, c RGB) string {
	if disabled {
		return text
	}
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s%s", int(c.R), int(c.G), int(c.B), text, ResetCode)
}

// Gradient colors text at a point between start and end, progress in [0,1].
func Gradient(text string, start, end RGB, progress float64) string {
	if disabled {
		return text
	}
	return ColorizeRGB(text, RGB{
		R: start.R + (end.R-start.R)*progress,
		G: start.G + (end.G-start.G)*progress,
		B: start.B + (end.B-start.B)*progress,
	})
}

func CheckMark() string { return Style("✔", Green) }
func CrossMark() string { return Style("✘", Red) }
func Arrow() string     { return Style("➜", Blue) }

// Banner renders the startup wordmark, one gradient step per line.
func Banner(name, version string) string {
	lines := []string{
		"┌┬┐┌─┐┌┬┐┌─┐┬    ┬─┐┌─┐┬  ┌─┐┬ ┬",
		"││││ │ ││├┤ │    ├┬┘├┤ │  ├─┤└┬┘",
		"┴ ┴└─┘─┴┘└─┘┴─┘  ┴└─└─┘┴─┘┴ ┴ ┴ ",
	}
	var b strings.Builder
	for i, line := range lines {
		b.WriteString(Gradient(line, RelayTeal, RelayViolet, float64(i)/float64(len(lines)-1)))
		b.WriteByte('\n')
	}
	b.WriteString(Style(fmt.Sprintf("%s %s", name, version), DimCode))
	b.WriteByte('\n')
	return b.String()
}

// RouteLine is one row of the startup route summary.
func RouteLine(name string, active bool, endpoint, exposed, stream string) string {
	mark, state := CheckMark(), Style("active", Green)
	if !active {
		mark, state = CrossMark(), Style("inactive", DimCode)
	}
	return fmt.Sprintf("  %s %s [%s] %s %s %s (stream: %s)",
		mark, Style(name, BoldCode), state, endpoint, Arrow(), exposed, stream)
}
