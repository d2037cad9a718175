// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/user/avplay/pkg/audiofeed"
	"github.com/user/avplay/pkg/orchestrator"
	"github.com/user/avplay/pkg/pipeline"
	"github.com/user/avplay/pkg/ports"
)

// AppName names the per-user config and state directories.
const AppName = "avplay"

// FileName is the config file looked up under the XDG config directories.
const FileName = "config.yaml"

// Renderer and audio output names.
const (
	RendererTerminal = "terminal"
	RendererPNG      = "png"
	RendererNull     = "null"

	AudioSpeaker = "speaker"
	AudioNull    = "null"
)

// Config represents the full configuration for avplay.
type Config struct {
	// Pipeline
	QueueCapacity int           `yaml:"queue_capacity"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	EOFDelay      time.Duration `yaml:"eof_delay"`

	// Audio
	Audio        string        `yaml:"audio"`
	AudioBuffer  int           `yaml:"audio_buffer"`
	AudioLatency time.Duration `yaml:"audio_latency"`
	Volume       float64       `yaml:"volume"`
	VolumeStep   float64       `yaml:"volume_step"`

	// Controls
	SeekStep     time.Duration `yaml:"seek_step"`
	SeekStepLong time.Duration `yaml:"seek_step_long"`

	// Output
	Renderer        string `yaml:"renderer"`
	BackgroundColor string `yaml:"background_color"`
	ScaleQuality    string `yaml:"scale_quality"`
	ShowStatus      bool   `yaml:"show_status"`
	WindowWidth     int    `yaml:"window_width"`
	WindowHeight    int    `yaml:"window_height"`
	FrameDir        string `yaml:"frame_dir"`
	FrameEvery      int    `yaml:"frame_every"`

	// Decoding
	FFmpegPath string `yaml:"ffmpeg_path"`

	// Session
	ExitOnEOF bool   `yaml:"exit_on_eof"`
	LogFile   string `yaml:"log_file"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	p := pipeline.DefaultConfig()
	return Config{
		// Pipeline
		QueueCapacity: p.QueueCapacity,
		PollInterval:  p.PollInterval,
		EOFDelay:      p.EOFDelay,

		// Audio
		Audio:        AudioSpeaker,
		AudioBuffer:  audiofeed.DefaultCarryCapacity,
		AudioLatency: 50 * time.Millisecond,
		Volume:       1.0,
		VolumeStep:   0.1,

		// Controls
		SeekStep:     5 * time.Second,
		SeekStepLong: 60 * time.Second,

		// Output
		Renderer:        RendererTerminal,
		BackgroundColor: "#002b36",
		ScaleQuality:    "bilinear",
		ShowStatus:      true,
		WindowWidth:     640,
		WindowHeight:    480,
		FrameDir:        "./frames",
		FrameEvery:      1,
	}
}

// LoadFromFile loads configuration from a YAML file on disk.
func LoadFromFile(fs ports.FileSystem, path string) (Config, error) {
	cfg := Defaults()

	data, err := fs.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Load reads explicitPath when it is set. Otherwise it looks for
// avplay/config.yaml in the XDG config directories and falls back to the
// defaults when there is none. The returned path is the file that was read,
// or empty.
func Load(fs ports.FileSystem, explicitPath string) (Config, string, error) {
	if explicitPath != "" {
		cfg, err := LoadFromFile(fs, explicitPath)
		return cfg, explicitPath, err
	}

	path, err := xdg.SearchConfigFile(filepath.Join(AppName, FileName))
	if err != nil {
		return Defaults(), "", nil
	}
	cfg, err := LoadFromFile(fs, path)
	return cfg, path, err
}

// DefaultLogFile returns the log path used while the terminal renderer owns
// the screen.
func DefaultLogFile() (string, error) {
	return xdg.StateFile(filepath.Join(AppName, AppName+".log"))
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.QueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("queue_capacity must be at least 1, got %d", c.QueueCapacity))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.EOFDelay < 0 {
		errs = append(errs, fmt.Errorf("eof_delay must not be negative, got %s", c.EOFDelay))
	}
	if c.AudioBuffer < 1 {
		errs = append(errs, fmt.Errorf("audio_buffer must be at least 1, got %d", c.AudioBuffer))
	}
	if c.AudioLatency < 0 {
		errs = append(errs, fmt.Errorf("audio_latency must not be negative, got %s", c.AudioLatency))
	}
	if c.Volume < 0 || c.Volume > 1 {
		errs = append(errs, fmt.Errorf("volume must be within 0..1, got %g", c.Volume))
	}
	if c.VolumeStep <= 0 || c.VolumeStep > 1 {
		errs = append(errs, fmt.Errorf("volume_step must be within (0, 1], got %g", c.VolumeStep))
	}
	if c.SeekStep <= 0 || c.SeekStepLong <= 0 {
		errs = append(errs, fmt.Errorf("seek steps must be positive, got %s and %s", c.SeekStep, c.SeekStepLong))
	}
	switch c.Renderer {
	case RendererTerminal, RendererPNG, RendererNull:
	default:
		errs = append(errs, fmt.Errorf("renderer must be one of terminal, png, null, got %q", c.Renderer))
	}
	switch c.Audio {
	case AudioSpeaker, AudioNull:
	default:
		errs = append(errs, fmt.Errorf("audio must be one of speaker, null, got %q", c.Audio))
	}
	if _, err := ParseColor(c.BackgroundColor); err != nil {
		errs = append(errs, fmt.Errorf("background_color: %w", err))
	}
	if c.WindowWidth < 1 || c.WindowHeight < 1 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.WindowWidth, c.WindowHeight))
	}
	if c.Renderer == RendererPNG && c.FrameDir == "" {
		errs = append(errs, errors.New("frame_dir is required for the png renderer"))
	}
	if c.FrameEvery < 1 {
		errs = append(errs, fmt.Errorf("frame_every must be at least 1, got %d", c.FrameEvery))
	}
	return errors.Join(errs...)
}

// ParseColor parses a #rrggbb or #rgb hex color.
func ParseColor(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", hex)
	}

	var rgb [3]uint8
	for i := range rgb {
		hi, ok1 := hexValue(s[i*2])
		lo, ok2 := hexValue(s[i*2+1])
		if !ok1 || !ok2 {
			return color.RGBA{}, fmt.Errorf("invalid color %q", hex)
		}
		rgb[i] = hi<<4 | lo
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig(locator string) orchestrator.Config {
	oc := orchestrator.DefaultConfig()
	oc.Locator = locator
	oc.Pipeline = pipeline.Config{
		QueueCapacity: c.QueueCapacity,
		PollInterval:  c.PollInterval,
		EOFDelay:      c.EOFDelay,
	}
	oc.Volume = c.Volume
	oc.VolumeStep = c.VolumeStep
	oc.AudioBuffer = c.AudioBuffer
	if bg, err := ParseColor(c.BackgroundColor); err == nil {
		oc.BackgroundColor = bg
	}
	oc.ShowStatus = c.ShowStatus
	oc.ExitOnEOF = c.ExitOnEOF
	return oc
}
