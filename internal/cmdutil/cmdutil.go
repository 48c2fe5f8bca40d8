// Package cmdutil holds functionality common to every pacquet cobra
// subcommand: flag parsing for verbosity, color, and working directory, and
// the construction of the logger, terminal UI, and loaded `.npmrc`
// configuration every command needs (§4.14, §4.15).
//
// Grounded on the teacher's `internal/cmdutil.Helper`: the same
// verbosity -> hclog.Level switch and --color/--no-color -> ui.ColorMode
// mapping, trimmed of everything this core has no use for (a remote-cache
// API client, on-disk user config, repo-root symlink resolution) — see
// DESIGN.md.
package cmdutil

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/pacquet/pacquet/internal/npmrc"
	"github.com/pacquet/pacquet/internal/ui"
)

// envLogLevel is the environment variable consulted when no -v flag is set.
const envLogLevel = "PACQUET_LOG_LEVEL"

// Helper holds the flag-derived values common to every subcommand.
type Helper struct {
	forceColor bool
	noColor    bool
	verbosity  int
	rawCwd     string
}

// NewHelper returns a Helper ready to have its flags registered.
func NewHelper() *Helper {
	return &Helper{}
}

// AddFlags registers the flags common to every pacquet subcommand, binding
// them to this Helper.
func (h *Helper) AddFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&h.forceColor, "color", false, "force color usage in the terminal")
	flags.BoolVar(&h.noColor, "no-color", false, "suppress color usage in the terminal")
	flags.CountVarP(&h.verbosity, "verbosity", "v", "increase logging verbosity (-v, -vv, -vvv)")
	flags.StringVar(&h.rawCwd, "cwd", "", "directory to run pacquet in (defaults to the current directory)")
}

func (h *Helper) ui(flags *pflag.FlagSet) cli.Ui {
	colorMode := ui.GetColorModeFromEnv()
	if flags.Changed("no-color") && h.noColor {
		colorMode = ui.ColorModeSuppressed
	}
	if flags.Changed("color") && h.forceColor {
		colorMode = ui.ColorModeForced
	}
	return ui.BuildColoredUi(colorMode)
}

func (h *Helper) logger() (hclog.Logger, error) {
	var level hclog.Level
	switch h.verbosity {
	case 0:
		if v := os.Getenv(envLogLevel); v != "" {
			level = hclog.LevelFromString(v)
			if level == hclog.NoLevel {
				return nil, errors.Errorf("%s value %q is not a valid log level", envLogLevel, v)
			}
		} else {
			level = hclog.Off
		}
	case 1:
		level = hclog.Info
	case 2:
		level = hclog.Debug
	default:
		level = hclog.Trace
	}

	// Default output is nowhere unless logging was explicitly enabled.
	var output io.Writer = ioutil.Discard
	color := hclog.ColorOff
	if level != hclog.Off {
		output = os.Stderr
		color = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "pacquet",
		Level:  level,
		Color:  color,
		Output: output,
	}), nil
}

// Base holds the components every subcommand needs, built once per
// invocation from the Helper's parsed flags.
type Base struct {
	UI     cli.Ui
	Logger hclog.Logger
	Cwd    string
	Config npmrc.Config
}

// GetBase resolves the working directory, loads `.npmrc` over it, and
// builds the logger and terminal UI every subcommand needs.
func (h *Helper) GetBase(flags *pflag.FlagSet) (*Base, error) {
	logger, err := h.logger()
	if err != nil {
		return nil, err
	}

	cwd := h.rawCwd
	if cwd == "" {
		cwd, err = os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve the current directory")
		}
	}

	cfg, err := npmrc.Load(cwd)
	if err != nil {
		return nil, err
	}

	return &Base{
		UI:     h.ui(flags),
		Logger: logger,
		Cwd:    cwd,
		Config: cfg,
	}, nil
}
