package domain

import "time"

// RawEvent is a chat event as delivered by the game server, before formatting.
type RawEvent struct {
	Text      string
	Sender    string
	Character string
	// Kind is the message radius reported by the mod (say, shout, whisper, ...).
	Kind     string
	Location string
	Channel  string

	// ReceivedAt is captured by the ingress handler as soon as the request arrives.
	ReceivedAt time.Time
}

// Message is an admitted chat line. It is immutable once created.
type Message struct {
	// Seq is assigned at admission and defines the total delivery order.
	Seq        uint64
	ReceivedAt time.Time
	// Text is the formatted, sanitized display line.
	Text    string
	Channel string
}

// SubmitResult is the outcome of offering a RawEvent to the bridge.
type SubmitResult int

const (
	SubmitAccepted SubmitResult = iota
	SubmitIgnored
	SubmitFull
)

// String returns a human-readable representation of the result.
func (r SubmitResult) String() string {
	switch r {
	case SubmitAccepted:
		return "ok"
	case SubmitIgnored:
		return "ignored"
	case SubmitFull:
		return "queue_full"
	default:
		return "unknown"
	}
}
