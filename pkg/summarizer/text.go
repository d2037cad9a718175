package summarizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// TextFormatter renders a Summary as aligned plain text.
type TextFormatter struct {
	translate func(string) string
	version   string
}

// TextOption customises a TextFormatter.
type TextOption func(*TextFormatter)

// WithTranslator translates labels, for example with l10n.T.
func WithTranslator(fn func(string) string) TextOption {
	return func(f *TextFormatter) {
		f.translate = fn
	}
}

// WithVersion adds the program version to the header.
func WithVersion(version string) TextOption {
	return func(f *TextFormatter) {
		f.version = version
	}
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(opts ...TextOption) *TextFormatter {
	f := &TextFormatter{translate: func(s string) string { return s }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *TextFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	header := t("Playback Summary")
	if f.version != "" {
		header += " (avplay " + f.version + ")"
	}
	b.WriteString(header + "\n")

	rows := [][2]string{}
	add := func(label, value string) {
		rows = append(rows, [2]string{t(label), value})
	}

	if s.Locator != "" {
		add("Source", s.Locator)
	}
	if s.Streams.HasVideo {
		add("Video", fmt.Sprintf("%s %dx%d", s.Streams.VideoCodec, s.Streams.VideoSize.Width, s.Streams.VideoSize.Height))
	}
	if s.Streams.HasAudio {
		add("Audio", fmt.Sprintf("%s %s", s.Streams.AudioCodec, s.Streams.AudioFormat))
	}
	if s.Streams.DurationMs > 0 {
		add("Duration", FormatMs(s.Streams.DurationMs))
	}

	p := s.Playback
	add("Position", FormatMs(p.PositionMs))
	add("Wall time", FormatDuration(p.WallTime))
	if s.Streams.HasVideo {
		add("Frames presented", humanize.Comma(p.FramesPresented))
		add("Frames dropped", humanize.Comma(p.Dropped))
	}
	seeks := humanize.Comma(p.Seeks)
	if p.FailedSeeks > 0 {
		seeks += fmt.Sprintf(" (%s %s)", humanize.Comma(p.FailedSeeks), t("failed"))
	}
	add("Seeks", seeks)
	if p.AudioBytes > 0 || p.Underruns > 0 {
		add("Audio played", humanize.IBytes(uint64(p.AudioBytes)))
		add("Audio underruns", humanize.Comma(p.Underruns))
	}
	if p.ExitReason != "" {
		add("Exit", t(p.ExitReason))
	}

	width := 0
	for _, r := range rows {
		width = max(width, len([]rune(r[0])))
	}
	for _, r := range rows {
		pad := width - len([]rune(r[0]))
		fmt.Fprintf(&b, "  %s:%s %s\n", r[0], strings.Repeat(" ", pad), r[1])
	}
	return b.String()
}

// FormatMs formats a media position as [h:]mm:ss.mmm.
func FormatMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	m := ms / 60000 % 60
	sec := ms / 1000 % 60
	frac := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, sec, frac)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, sec, frac)
}

// FormatDuration formats a wall-clock duration rounded to milliseconds.
func FormatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

var _ Formatter = (*TextFormatter)(nil)
