package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// progressView decides whether batch renders the interactive progress view.
// A changed --ui flag wins over [output].progress; auto asks whether out is a
// terminal. Quiet runs never get the view.
func (s settings) progressView(flags *pflag.FlagSet, out *os.File) (bool, error) {
	mode := s.cfg.Output.Progress
	if flags.Changed("ui") {
		v, err := flags.GetString("ui")
		if err != nil {
			return false, fmt.Errorf("failed to get ui flag: %w", err)
		}
		mode = strings.ToLower(strings.TrimSpace(v))
		if mode != "auto" && mode != "on" && mode != "off" {
			return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", v)
		}
	}
	if s.quiet {
		return false, nil
	}
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return out != nil && isTerminal(out), nil
	}
}
