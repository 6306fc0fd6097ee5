package loom

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"loom/term"
)

// SyncMode controls synchronized updates.
type SyncMode string

const (
	// SyncAuto enables synchronized updates on interactive terminals.
	SyncAuto SyncMode = "auto"
	SyncOn   SyncMode = "on"
	SyncOff  SyncMode = "off"
)

// Options configures the render loop. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// Fullscreen renders on the alternate screen. Otherwise output is
	// inline, below the cursor.
	Fullscreen bool `yaml:"fullscreen" toml:"fullscreen"`
	// Mouse enables mouse reporting in fullscreen mode.
	Mouse bool `yaml:"mouse" toml:"mouse"`
	// SyncUpdates wraps every frame in a synchronized update.
	SyncUpdates SyncMode `yaml:"sync_updates" toml:"sync_updates"`
	// KeyboardEnhancement probes for disambiguated key reporting and
	// enables it when supported.
	KeyboardEnhancement bool `yaml:"keyboard_enhancement" toml:"keyboard_enhancement"`
	// ProbeTimeout bounds the keyboard enhancement probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout" toml:"probe_timeout"`
	// ColorProfile forces a color depth: truecolor, 256, ansi or ascii.
	// Empty detects it from the environment.
	ColorProfile string `yaml:"color_profile" toml:"color_profile"`
	// AmbiguousWidth sets the width of East Asian ambiguous characters.
	AmbiguousWidth term.WidthMode `yaml:"ambiguous_width" toml:"ambiguous_width"`
	// FrameInterval is the minimum time between two frames.
	FrameInterval time.Duration `yaml:"frame_interval" toml:"frame_interval"`
	// ExitOnCtrlC stops the loop when Ctrl+C is pressed.
	ExitOnCtrlC bool `yaml:"exit_on_ctrl_c" toml:"exit_on_ctrl_c"`
	// ExitGrace is how long Run waits for cancelled tasks to return.
	ExitGrace time.Duration `yaml:"exit_grace" toml:"exit_grace"`
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		SyncUpdates:         SyncAuto,
		KeyboardEnhancement: true,
		ProbeTimeout:        100 * time.Millisecond,
		AmbiguousWidth:      term.WidthAuto,
		ExitOnCtrlC:         true,
		ExitGrace:           time.Second,
	}
}

// LoadOptions reads options from a YAML or TOML file, chosen by extension.
// Fields missing from the file keep their default values.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return opts, &Error{Op: "options.load", Kind: KindEnvironment, Err: fmt.Errorf("%w: %s", ErrUnsupportedFile, path)}
	}
	return opts, opts.validate()
}

// FromEnv overrides options from LOOM_FULLSCREEN and LOOM_COLOR.
func (o Options) FromEnv() Options {
	if v, ok := os.LookupEnv("LOOM_FULLSCREEN"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			o.Fullscreen = b
		}
	}
	if v := os.Getenv("LOOM_COLOR"); v != "" {
		o.ColorProfile = v
	}
	return o
}

func (o Options) validate() error {
	switch o.SyncUpdates {
	case SyncAuto, SyncOn, SyncOff, "":
	default:
		return fmt.Errorf("invalid sync_updates %q", o.SyncUpdates)
	}
	switch o.AmbiguousWidth {
	case term.WidthAuto, term.WidthNarrow, term.WidthWide, "":
	default:
		return fmt.Errorf("invalid ambiguous_width %q", o.AmbiguousWidth)
	}
	if _, ok := parseProfile(o.ColorProfile); !ok && o.ColorProfile != "" {
		return fmt.Errorf("invalid color_profile %q", o.ColorProfile)
	}
	if o.ProbeTimeout < 0 || o.FrameInterval < 0 || o.ExitGrace < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

type config struct {
	Options
	terminal  term.Terminal
	phaseHook func(Phase)
}

// Option configures Run.
type Option func(*config)

// WithOptions replaces the whole configuration.
func WithOptions(o Options) Option {
	return func(c *config) { c.Options = o }
}

// WithTerminal renders to t instead of stdin and stdout.
func WithTerminal(t term.Terminal) Option {
	return func(c *config) { c.terminal = t }
}

// WithFullscreen selects fullscreen or inline output.
func WithFullscreen(on bool) Option {
	return func(c *config) { c.Fullscreen = on }
}

// WithColorProfile forces a color depth.
func WithColorProfile(name string) Option {
	return func(c *config) { c.ColorProfile = name }
}

// WithPhaseHook calls fn on every phase transition of the loop.
func WithPhaseHook(fn func(Phase)) Option {
	return func(c *config) { c.phaseHook = fn }
}
