// Package ui implements the colored terminal output pacquet's CLI uses for
// fatal-error banners and command feedback (§4.14).
//
// Grounded on the teacher's `internal/ui/ui.go`: a `cli.ColoredUi` wrapping
// stdin/stdout/stderr, an ANSI-stripping writer for `--no-color`/non-tty
// output, and bold reverse-video prefixes for error/warning/info lines.
// Trimmed of the rainbow banner and the CI-detection globals, neither of
// which this core has a use for — see DESIGN.md.
package ui

import (
	"io"
	"os"
	"regexp"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/cli"
)

const ansiEscapeStr = "[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))"

// IsTTY is true when stdout appears to be a tty.
var IsTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

var gray = color.New(color.Faint)
var bold = color.New(color.Bold)

// ColorMode is the resolved color decision for one command invocation:
// left to terminal/env auto-detection, or pinned on/off by a `--color`/
// `--no-color` flag (cmdutil.Helper) or the `FORCE_COLOR` env var
// (GetColorModeFromEnv).
type ColorMode int

const (
	// ColorModeAuto defers to color.NoColor's own isTTY/NO_COLOR detection.
	ColorModeAuto ColorMode = iota + 1
	ColorModeSuppressed
	ColorModeForced
)

// GetColorModeFromEnv reads FORCE_COLOR, honoring the same values as the
// npm ecosystem's supports-color package that pnpm and most of its plugins
// build on: "0"/"false" suppresses, "1"/"2"/"3"/"true" forces, anything else
// (including unset) defers to auto-detection.
func GetColorModeFromEnv() ColorMode {
	switch v := os.Getenv("FORCE_COLOR"); {
	case v == "0" || v == "false":
		return ColorModeSuppressed
	case v == "1" || v == "2" || v == "3" || v == "true":
		return ColorModeForced
	default:
		return ColorModeAuto
	}
}

// applyColorMode pins color.NoColor per colorMode (a no-op for
// ColorModeAuto, which leaves color.NoColor's own detection in place), and
// returns the mode BuildColoredUi should actually render with.
func applyColorMode(colorMode ColorMode) ColorMode {
	switch colorMode {
	case ColorModeForced:
		color.NoColor = false
	case ColorModeSuppressed:
		color.NoColor = true
	}

	if color.NoColor {
		return ColorModeSuppressed
	}
	return ColorModeForced
}

// ERROR_PREFIX is the reverse-video banner prepended to fatal-error lines.
var ERROR_PREFIX = color.New(color.Bold, color.FgRed, color.ReverseVideo).Sprint(" ERROR ")

// WARNING_PREFIX is the reverse-video banner prepended to warning lines.
var WARNING_PREFIX = color.New(color.Bold, color.FgYellow, color.ReverseVideo).Sprint(" WARNING ")

// InfoPrefix is the reverse-video banner prepended to info lines.
var InfoPrefix = color.New(color.Bold, color.FgWhite, color.ReverseVideo).Sprint(" INFO ")

var ansiRegex = regexp.MustCompile(ansiEscapeStr)

// Dim prints out dimmed text.
func Dim(str string) string {
	return gray.Sprint(str)
}

// Bold prints out bold text.
func Bold(str string) string {
	return bold.Sprint(str)
}

type stripAnsiWriter struct {
	wrappedWriter io.Writer
}

func (into *stripAnsiWriter) Write(p []byte) (int, error) {
	n, err := into.wrappedWriter.Write(ansiRegex.ReplaceAll(p, []byte{}))
	if err != nil {
		return n, err
	}
	return len(p), nil
}

// Default returns the default colored UI.
func Default() *cli.ColoredUi {
	return BuildColoredUi(ColorModeAuto)
}

// BuildColoredUi builds the cli.Ui every pacquet command writes through,
// stripping ANSI codes when colorMode resolves to suppressed.
func BuildColoredUi(colorMode ColorMode) *cli.ColoredUi {
	colorMode = applyColorMode(colorMode)

	var outWriter, errWriter io.Writer
	if colorMode == ColorModeSuppressed {
		outWriter = &stripAnsiWriter{wrappedWriter: os.Stdout}
		errWriter = &stripAnsiWriter{wrappedWriter: os.Stderr}
	} else {
		outWriter = os.Stdout
		errWriter = os.Stderr
	}

	return &cli.ColoredUi{
		Ui: &cli.BasicUi{
			Reader:      os.Stdin,
			Writer:      outWriter,
			ErrorWriter: errWriter,
		},
		OutputColor: cli.UiColorNone,
		InfoColor:   cli.UiColorNone,
		WarnColor:   cli.UiColor{Code: int(color.FgYellow), Bold: false},
		ErrorColor:  cli.UiColorRed,
	}
}
