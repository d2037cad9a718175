package terminput

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/user/avplay/pkg/ports"
)

func TestParse(t *testing.T) {
	keys := DefaultKeymap()
	tests := []struct {
		name  string
		input string
		want  []ports.Event
	}{
		{"space pauses", " ", []ports.Event{{Type: ports.EventTogglePause}}},
		{"p pauses", "p", []ports.Event{{Type: ports.EventTogglePause}}},
		{"q quits", "q", []ports.Event{{Type: ports.EventQuit}}},
		{"ctrl-c quits", "\x03", []ports.Event{{Type: ports.EventQuit}}},
		{"lone escape quits", "\x1b", []ports.Event{{Type: ports.EventQuit}}},
		{"right arrow", "\x1b[C", []ports.Event{{Type: ports.EventSeek, SeekMs: 5000}}},
		{"left arrow", "\x1b[D", []ports.Event{{Type: ports.EventSeek, SeekMs: -5000}}},
		{"up arrow", "\x1b[A", []ports.Event{{Type: ports.EventSeek, SeekMs: 60000}}},
		{"down arrow", "\x1b[B", []ports.Event{{Type: ports.EventSeek, SeekMs: -60000}}},
		{"application mode arrow", "\x1bOC", []ports.Event{{Type: ports.EventSeek, SeekMs: 5000}}},
		{"volume down", "9", []ports.Event{{Type: ports.EventVolume, Steps: -1}}},
		{"volume up", "0", []ports.Event{{Type: ports.EventVolume, Steps: 1}}},
		{"mute", "m", []ports.Event{{Type: ports.EventToggleMute}}},
		{"unknown sequence", "\x1b[Z", nil},
		{"unknown key", "x", nil},
		{"several keys", "0\x1b[Cq", []ports.Event{
			{Type: ports.EventVolume, Steps: 1},
			{Type: ports.EventSeek, SeekMs: 5000},
			{Type: ports.EventQuit},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse([]byte(tt.input), keys)
			if len(got) != len(tt.want) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParse_CustomSteps(t *testing.T) {
	keys := Keymap{Step: 10 * time.Second, LongStep: 10 * time.Minute}
	got := Parse([]byte("\x1b[D\x1b[A"), keys)
	if len(got) != 2 || got[0].SeekMs != -10000 || got[1].SeekMs != 600000 {
		t.Errorf("Parse() = %+v", got)
	}
}

func TestInput_PollFromReader(t *testing.T) {
	in := NewFromReader(strings.NewReader(" q"), DefaultKeymap())
	defer in.Close()

	<-in.done

	ev, ok := in.Poll()
	if !ok || ev.Type != ports.EventTogglePause {
		t.Fatalf("first Poll() = %+v, %v", ev, ok)
	}
	ev, ok = in.Poll()
	if !ok || ev.Type != ports.EventQuit {
		t.Fatalf("second Poll() = %+v, %v", ev, ok)
	}
	if _, ok := in.Poll(); ok {
		t.Error("expected no more events")
	}
}

func TestInput_PollWithoutEvents(t *testing.T) {
	in := NewFromReader(strings.NewReader(""), DefaultKeymap())
	<-in.done
	if _, ok := in.Poll(); ok {
		t.Error("expected no events")
	}
	if err := in.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestParse_HoldsBackUnfinishedSequence(t *testing.T) {
	tests := []struct {
		input string
		n     int
		rest  string
	}{
		{"q\x1b", 1, "\x1b"},
		{"\x1b[", 0, "\x1b["},
		{"m\x1bO", 1, "\x1bO"},
		{"\x1b[C", 1, ""},
	}
	for _, tt := range tests {
		events, rest := parse([]byte(tt.input), DefaultKeymap())
		if len(events) != tt.n || string(rest) != tt.rest {
			t.Errorf("parse(%q) = %v, %q; want %d events, rest %q", tt.input, events, rest, tt.n, tt.rest)
		}
	}
}

func TestInput_ArrowSplitAcrossReads(t *testing.T) {
	pr, pw := io.Pipe()
	in := NewFromReader(pr, DefaultKeymap())
	defer in.Close()

	pw.Write([]byte("\x1b["))
	time.Sleep(5 * time.Millisecond)
	pw.Write([]byte("D"))
	pw.Close()
	<-in.done

	ev, ok := in.Poll()
	if !ok || ev.Type != ports.EventSeek || ev.SeekMs != -5000 {
		t.Fatalf("Poll() = %+v, %v; want seek -5000", ev, ok)
	}
	if ev, ok := in.Poll(); ok {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestInput_LoneEscapeQuitsAfterTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	in := NewFromReader(pr, DefaultKeymap())
	defer pw.Close()
	defer in.Close()

	pw.Write([]byte("\x1b"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ev, ok := in.Poll(); ok {
			if ev.Type != ports.EventQuit {
				t.Fatalf("Poll() = %+v, want quit", ev)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("lone ESC never produced an event")
}
