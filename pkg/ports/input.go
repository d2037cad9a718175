package ports

// EventType identifies a user command.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventTogglePause
	EventSeek
	EventVolume
	EventToggleMute
)

// Event is one decoded user command.
type Event struct {
	Type EventType
	// SeekMs is the signed offset of an EventSeek.
	SeekMs int64
	// Steps is the signed number of volume steps of an EventVolume.
	Steps int
}

// Input delivers user commands.
type Input interface {
	// Poll returns the next pending event without blocking.
	Poll() (Event, bool)

	// Close restores the input device.
	Close() error
}
