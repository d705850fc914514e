package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tracefold/internal/config"
)

// settings is the configuration file merged with command line flags.
type settings struct {
	cfg     config.Config
	source  string
	quiet   bool
	timings bool
}

// loadSettings reads --config or the nearest configuration file and lets
// explicitly set flags win over it.
func loadSettings(cmd *cobra.Command) (settings, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return settings{}, fmt.Errorf("failed to get config flag: %w", err)
	}

	var file *config.File
	if path != "" {
		file, err = config.Load(path)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			file, _, err = config.Discover(wd)
		}
	}
	if err != nil {
		return settings{}, err
	}

	s := settings{cfg: file.Config, source: file.Path}
	if err := mergeFlags(&s.cfg, flags); err != nil {
		return settings{}, err
	}
	if err := s.cfg.Validate(); err != nil {
		return settings{}, err
	}
	if s.quiet, err = flags.GetBool("quiet"); err != nil {
		return settings{}, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if s.timings, err = flags.GetBool("timings"); err != nil {
		return settings{}, fmt.Errorf("failed to get timings flag: %w", err)
	}
	return s, nil
}

// mergeFlags copies every changed persistent flag into cfg.
func mergeFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error
	if flags.Changed("color") {
		if cfg.Output.Color, err = flags.GetString("color"); err != nil {
			return err
		}
	}
	if flags.Changed("max-diagnostics") {
		if cfg.Correlate.MaxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
			return err
		}
	}
	if flags.Changed("trace") {
		if cfg.Trace.Output, err = flags.GetString("trace"); err != nil {
			return err
		}
	}
	if flags.Changed("trace-level") {
		if cfg.Trace.Level, err = flags.GetString("trace-level"); err != nil {
			return err
		}
	}
	if flags.Changed("trace-mode") {
		if cfg.Trace.Mode, err = flags.GetString("trace-mode"); err != nil {
			return err
		}
	}
	if flags.Changed("trace-ring-size") {
		if cfg.Trace.RingSize, err = flags.GetInt("trace-ring-size"); err != nil {
			return err
		}
	}
	return nil
}

// useColor resolves auto against the stream the output goes to.
func (s settings) useColor(f *os.File) bool {
	switch s.cfg.Output.Color {
	case "on":
		return true
	case "off":
		return false
	default:
		return f != nil && isTerminal(f)
	}
}
