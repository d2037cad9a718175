// Package main provides the CLI entry point for avplay.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/user/avplay/pkg/adapters/beepaudio"
	"github.com/user/avplay/pkg/adapters/ffmpegdecoder"
	"github.com/user/avplay/pkg/adapters/filesink"
	"github.com/user/avplay/pkg/adapters/ggrenderer"
	"github.com/user/avplay/pkg/adapters/logger"
	"github.com/user/avplay/pkg/adapters/nullaudio"
	"github.com/user/avplay/pkg/adapters/nullsink"
	"github.com/user/avplay/pkg/adapters/opener"
	"github.com/user/avplay/pkg/adapters/osfilesystem"
	"github.com/user/avplay/pkg/adapters/terminput"
	"github.com/user/avplay/pkg/adapters/termrenderer"
	"github.com/user/avplay/pkg/config"
	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/orchestrator"
	"github.com/user/avplay/pkg/ports"
	"github.com/user/avplay/pkg/summarizer"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args))
}

// run executes the CLI and returns the process exit code: 0 when playback
// ended normally, 1 on any setup or decode error.
func run(args []string) int {
	app := newApp()
	if err := app.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %s", err))
		return 1
	}
	return 0
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "avplay",
		Usage:     l10n.T("Play a video file or stream with synchronized audio"),
		UsageText: "avplay [options] LOCATOR",
		Description: l10n.T("avplay decodes a media file on a background worker and plays it in the terminal. " +
			"LOCATOR is an MP4 file path or synth: for a built-in test pattern."),
		Version:         version,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   l10n.T("Config file (default: $XDG_CONFIG_HOME/avplay/config.yaml)"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   l10n.T("Log level (debug, info, warn, error)"),
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"Q"},
				Usage:   l10n.T("Suppress all log output"),
			},
			&cli.StringFlag{
				Name:  "ffmpeg",
				Usage: l10n.T("Path to the ffmpeg executable used to decode compressed media"),
			},
			&cli.StringFlag{
				Name:    "renderer",
				Aliases: []string{"r"},
				Usage:   l10n.T("Video output (terminal, png, null)"),
			},
			&cli.StringFlag{
				Name:  "audio",
				Usage: l10n.T("Audio output (speaker, null)"),
			},
			&cli.BoolFlag{
				Name:  "exit-on-eof",
				Usage: l10n.T("Quit when playback reaches the end of the input"),
			},
			&cli.StringFlag{
				Name:  "summary",
				Usage: l10n.T("Write the playback summary to a file"),
			},
		},
		Action: play,
		// Exit codes are decided by run.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func play(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowAppHelp(c)
		return errors.New(l10n.T("exactly one LOCATOR argument is required"))
	}
	locator := c.Args().First()

	fs := osfilesystem.New()
	cfg, cfgPath, err := config.Load(fs, c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closeLog, err := newLogger(c, cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	if cfgPath != "" {
		log.Debug("Loaded config from %s", cfgPath)
	}

	ffmpegdecoder.SetFFmpegPath(cfg.FFmpegPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	m, err := opener.New(log).Open(locator)
	if err != nil {
		return err
	}
	defer m.Close()

	orchConfig := cfg.ToOrchestratorConfig(locator)
	renderer := newRenderer(cfg, orchConfig, fs)
	input, err := newInput(cfg)
	if err != nil {
		renderer.Close()
		return fmt.Errorf("open terminal input: %w", err)
	}

	orch := orchestrator.New(
		m,
		ggrenderer.NewScaler(cfg.ScaleQuality),
		renderer,
		newAudioDevice(cfg),
		beepaudio.NewResampler(beepaudio.DefaultQuality),
		input,
		log,
	)

	result, runErr := orch.Run(ctx, orchConfig)

	// The terminal must be restored before anything else is printed.
	input.Close()
	if err := renderer.Close(); err != nil {
		log.Warn("Failed to restore output: %v", err)
	}

	if result.ExitReason != orchestrator.ExitNone {
		writeSummary(c, locator, result, fs, log)
	}
	return runErr
}

// applyFlags overrides config values with explicitly set flags.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("ffmpeg") {
		cfg.FFmpegPath = c.String("ffmpeg")
	}
	if c.IsSet("renderer") {
		cfg.Renderer = c.String("renderer")
	}
	if c.IsSet("audio") {
		cfg.Audio = c.String("audio")
	}
	if c.IsSet("exit-on-eof") {
		cfg.ExitOnEOF = c.Bool("exit-on-eof")
	}
}

// newLogger creates the logger. While the terminal renderer owns the screen
// log lines go to a file instead.
func newLogger(c *cli.Context, cfg config.Config) (ports.Logger, func(), error) {
	if c.Bool("quiet") {
		return logger.NewNoop(), func() {}, nil
	}
	level, err := ports.ParseLogLevel(c.String("log-level"))
	if err != nil {
		return nil, nil, err
	}
	if cfg.Renderer != config.RendererTerminal || !isatty.IsTerminal(os.Stdout.Fd()) {
		return logger.NewConsole(level), func() {}, nil
	}

	path := cfg.LogFile
	if path == "" {
		if path, err = config.DefaultLogFile(); err != nil {
			return nil, nil, fmt.Errorf("locate log file: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logger.NewConsoleTo(level, f, f), func() { f.Close() }, nil
}

func newRenderer(cfg config.Config, oc orchestrator.Config, fs ports.FileSystem) ports.Renderer {
	window := media.Size{Width: cfg.WindowWidth, Height: cfg.WindowHeight}
	switch cfg.Renderer {
	case config.RendererPNG:
		return filesink.New(cfg.FrameDir, window, oc.BackgroundColor, fs, filesink.WithEvery(cfg.FrameEvery))
	case config.RendererNull:
		return nullsink.New(window)
	default:
		return termrenderer.New(os.Stdout, oc.BackgroundColor)
	}
}

func newAudioDevice(cfg config.Config) ports.AudioDevice {
	if cfg.Audio == config.AudioNull {
		return nullaudio.New(nullaudio.DefaultPeriod)
	}
	return beepaudio.New(cfg.AudioLatency)
}

// newInput reads keys from stdin. Raw mode is only used with the terminal
// renderer; otherwise keys arrive line by line.
func newInput(cfg config.Config) (*terminput.Input, error) {
	keys := terminput.Keymap{Step: cfg.SeekStep, LongStep: cfg.SeekStepLong}
	if cfg.Renderer == config.RendererTerminal {
		return terminput.New(os.Stdin, keys)
	}
	return terminput.NewFromReader(os.Stdin, keys), nil
}

func writeSummary(c *cli.Context, locator string, result orchestrator.RunResult, fs ports.FileSystem, log ports.Logger) {
	summary := summarizer.NewBuilder().
		WithLocator(locator).
		WithResult(result).
		Build()
	w := summarizer.NewWriter(summarizer.NewTextFormatter(
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	), fs)

	var out io.Writer = os.Stderr
	if c.Bool("quiet") {
		out = io.Discard
	}
	emitSummary(w, summary, c.String("summary"), out, log)
}

// emitSummary saves the summary to path, or prints it to out when path is
// empty.
func emitSummary(w *summarizer.Writer, summary *summarizer.Summary, path string, out io.Writer, log ports.Logger) {
	if path != "" {
		if err := w.Write(path, summary); err != nil {
			log.Error("Failed to write summary: %v", err)
			return
		}
		log.Info("Summary saved to %s", path)
		return
	}
	if err := w.Print(out, summary); err != nil {
		log.Error("Failed to print summary: %v", err)
	}
}
