// Package config loads tracefold.toml or .tracefold.yaml.
//
// Discovery walks from the working directory up to the filesystem root and
// stops at the first directory holding either file; TOML wins when both
// exist. Command line flags override file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tracefold/internal/usertimings"
)

// File names probed in every directory, in priority order.
var fileNames = []string{"tracefold.toml", ".tracefold.yaml", ".tracefold.yml"}

// Config mirrors the file layout.
type Config struct {
	Correlate Correlate `toml:"correlate" yaml:"correlate"`
	Output    Output    `toml:"output" yaml:"output"`
	Cache     Cache     `toml:"cache" yaml:"cache"`
	Trace     Trace     `toml:"trace" yaml:"trace"`
}

type Correlate struct {
	Categories     []string `toml:"categories" yaml:"categories"`
	TimestampEvent string   `toml:"timestamp_event" yaml:"timestamp_event"`
	MeasureEvent   string   `toml:"measure_event" yaml:"measure_event"`
	MaxDiagnostics int      `toml:"max_diagnostics" yaml:"max_diagnostics"`
}

type Output struct {
	Format   string `toml:"format" yaml:"format"`
	Color    string `toml:"color" yaml:"color"`
	Width    int    `toml:"width" yaml:"width"`
	// Progress controls the batch progress view: auto|on|off.
	Progress string `toml:"progress" yaml:"progress"`
}

type Cache struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Dir     string `toml:"dir" yaml:"dir"`
}

type Trace struct {
	Level    string `toml:"level" yaml:"level"`
	Mode     string `toml:"mode" yaml:"mode"`
	Output   string `toml:"output" yaml:"output"`
	RingSize int    `toml:"ring_size" yaml:"ring_size"`
}

// File is a loaded configuration file.
type File struct {
	Path   string
	Root   string
	Config Config
}

// Default returns the configuration used without a file.
func Default() Config {
	opts := usertimings.DefaultOptions()
	return Config{
		Correlate: Correlate{
			Categories:     opts.Categories,
			TimestampEvent: opts.TimestampEventName,
			MeasureEvent:   opts.MeasureEventName,
			MaxDiagnostics: opts.MaxDiagnostics,
		},
		Output: Output{Format: "pretty", Color: "auto", Progress: "auto"},
		Trace:  Trace{Level: "off", Mode: "stream", Output: "-", RingSize: 4096},
	}
}

// Options converts the [correlate] section.
func (c Config) Options() usertimings.Options {
	return usertimings.Options{
		Categories:         slices.Clone(c.Correlate.Categories),
		TimestampEventName: c.Correlate.TimestampEvent,
		MeasureEventName:   c.Correlate.MeasureEvent,
		MaxDiagnostics:     c.Correlate.MaxDiagnostics,
	}
}

// Find returns the nearest configuration file at or above startDir.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range fileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest file. Without one it returns the
// defaults and ok=false.
func Discover(startDir string) (*File, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return &File{Config: Default()}, false, err
	}
	f, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return f, true, nil
}

// Load reads path, choosing the decoder by extension, and applies defaults
// to every key the file leaves out.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = decodeTOML(data, &cfg)
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	default:
		err = fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &File{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

func decodeTOML(data []byte, cfg *Config) error {
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if meta.IsDefined("correlate", "categories") && len(cfg.Correlate.Categories) == 0 {
		return fmt.Errorf("[correlate].categories must not be empty")
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Correlate.MaxDiagnostics < 0 {
		errs = append(errs, fmt.Errorf("[correlate].max_diagnostics must be >= 0"))
	}
	for _, cat := range c.Correlate.Categories {
		if strings.TrimSpace(cat) == "" {
			errs = append(errs, fmt.Errorf("[correlate].categories contains an empty entry"))
			break
		}
	}
	if !slices.Contains([]string{"", "pretty", "json", "chrome"}, c.Output.Format) {
		errs = append(errs, fmt.Errorf("[output].format %q is not one of pretty|json|chrome", c.Output.Format))
	}
	if !slices.Contains([]string{"", "auto", "on", "off"}, c.Output.Color) {
		errs = append(errs, fmt.Errorf("[output].color %q is not one of auto|on|off", c.Output.Color))
	}
	if !slices.Contains([]string{"", "auto", "on", "off"}, c.Output.Progress) {
		errs = append(errs, fmt.Errorf("[output].progress %q is not one of auto|on|off", c.Output.Progress))
	}
	if c.Output.Width < 0 {
		errs = append(errs, fmt.Errorf("[output].width must be >= 0"))
	}
	if c.Trace.RingSize < 0 {
		errs = append(errs, fmt.Errorf("[trace].ring_size must be >= 0"))
	}
	return errors.Join(errs...)
}
