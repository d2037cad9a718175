package config

import (
	"image/color"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"

	"github.com/user/avplay/pkg/mocks"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.QueueCapacity != 8 {
		t.Errorf("QueueCapacity = %d, want 8", cfg.QueueCapacity)
	}
	if cfg.PollInterval != 16*time.Millisecond {
		t.Errorf("PollInterval = %s, want 16ms", cfg.PollInterval)
	}
	if cfg.AudioBuffer != 32*1024 {
		t.Errorf("AudioBuffer = %d, want 32768", cfg.AudioBuffer)
	}
}

func TestLoadFromFile(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile("avplay.yaml", []byte(`
queue_capacity: 4
poll_interval: 10ms
seek_step: 10s
volume: 0.5
renderer: png
frame_dir: /tmp/frames
background_color: "#ff8000"
exit_on_eof: true
`))

	cfg, err := LoadFromFile(fs, "avplay.yaml")
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.QueueCapacity != 4 || cfg.PollInterval != 10*time.Millisecond {
		t.Errorf("pipeline settings = %d, %s", cfg.QueueCapacity, cfg.PollInterval)
	}
	if cfg.SeekStep != 10*time.Second {
		t.Errorf("SeekStep = %s", cfg.SeekStep)
	}
	if cfg.Renderer != RendererPNG || cfg.FrameDir != "/tmp/frames" || !cfg.ExitOnEOF {
		t.Errorf("output settings = %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.SeekStepLong != time.Minute || cfg.Audio != AudioSpeaker {
		t.Errorf("defaults lost: %s, %s", cfg.SeekStepLong, cfg.Audio)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	fs := mocks.NewFileSystem()
	if _, err := LoadFromFile(fs, "missing.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	fs.AddFile("bad.yaml", []byte("queue_capacity: [1, 2"))
	if _, err := LoadFromFile(fs, "bad.yaml"); err == nil {
		t.Error("expected error for malformed YAML")
	}

	fs.AddFile("duration.yaml", []byte("poll_interval: soon"))
	if _, err := LoadFromFile(fs, "duration.yaml"); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoad_Explicit(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile("custom.yaml", []byte("volume: 0.25\n"))

	cfg, path, err := Load(fs, "custom.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != "custom.yaml" || cfg.Volume != 0.25 {
		t.Errorf("Load() = %g from %q", cfg.Volume, path)
	}

	if _, _, err := Load(fs, "nope.yaml"); err == nil {
		t.Error("expected error for a missing explicit file")
	}
}

func TestLoad_XDGFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(dir, "none"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	fs := mocks.NewFileSystem()
	cfg, path, err := Load(fs, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != "" || cfg != Defaults() {
		t.Errorf("expected defaults without a config file, got path %q", path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"queue capacity", func(c *Config) { c.QueueCapacity = 0 }, "queue_capacity"},
		{"poll interval", func(c *Config) { c.PollInterval = 0 }, "poll_interval"},
		{"volume", func(c *Config) { c.Volume = 1.5 }, "volume"},
		{"volume step", func(c *Config) { c.VolumeStep = 0 }, "volume_step"},
		{"renderer", func(c *Config) { c.Renderer = "sdl" }, "renderer"},
		{"audio", func(c *Config) { c.Audio = "alsa" }, "audio"},
		{"color", func(c *Config) { c.BackgroundColor = "teal" }, "background_color"},
		{"frame dir", func(c *Config) { c.Renderer = RendererPNG; c.FrameDir = "" }, "frame_dir"},
		{"seek step", func(c *Config) { c.SeekStep = 0 }, "seek steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsAll(t *testing.T) {
	cfg := Defaults()
	cfg.QueueCapacity = 0
	cfg.Audio = "alsa"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "queue_capacity") || !strings.Contains(err.Error(), "audio") {
		t.Errorf("error %q should list both problems", err)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{"#002b36", color.RGBA{R: 0x00, G: 0x2b, B: 0x36, A: 255}, false},
		{"FF8000", color.RGBA{R: 0xff, G: 0x80, B: 0x00, A: 255}, false},
		{"#fff", color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 255}, false},
		{"", color.RGBA{}, true},
		{"#12345", color.RGBA{}, true},
		{"#gg0000", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToOrchestratorConfig(t *testing.T) {
	cfg := Defaults()
	cfg.QueueCapacity = 3
	cfg.Volume = 0.4
	cfg.BackgroundColor = "#102030"
	cfg.ExitOnEOF = true

	oc := cfg.ToOrchestratorConfig("movie.mp4")
	if oc.Locator != "movie.mp4" {
		t.Errorf("Locator = %q", oc.Locator)
	}
	if oc.Pipeline.QueueCapacity != 3 || oc.Pipeline.PollInterval != cfg.PollInterval {
		t.Errorf("Pipeline = %+v", oc.Pipeline)
	}
	if oc.Volume != 0.4 || oc.VolumeStep != cfg.VolumeStep || oc.AudioBuffer != cfg.AudioBuffer {
		t.Errorf("audio settings = %g, %g, %d", oc.Volume, oc.VolumeStep, oc.AudioBuffer)
	}
	if oc.BackgroundColor != (color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}) {
		t.Errorf("BackgroundColor = %v", oc.BackgroundColor)
	}
	if !oc.ExitOnEOF || !oc.ShowStatus {
		t.Errorf("session flags = %v, %v", oc.ExitOnEOF, oc.ShowStatus)
	}
}
