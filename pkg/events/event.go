package events

import "time"

// Event is the envelope for every bus message. Publish fills ID,
// Timestamp and Type when the publisher leaves them zero.
type Event struct {
	ID        string
	Type      string
	Timestamp time.Time
	Source    string
	Data      any
}
