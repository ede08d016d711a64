package log

import (
	"time"

	"github.com/google/uuid"
)

// Recorder wraps a Logger and stamps each event with a session identity and
// a timestamp before forwarding it. One Recorder corresponds to one recording
// session; all events it forwards share the same SessionID.
type Recorder struct {
	logger    Logger
	sessionID string
}

// NewRecorder creates a Recorder with a fresh session UUID.
// A nil logger yields a Recorder that discards events.
func NewRecorder(logger Logger) *Recorder {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &Recorder{
		logger:    logger,
		sessionID: uuid.NewString(),
	}
}

// SessionID returns the session identity stamped onto forwarded events.
func (r *Recorder) SessionID() string { return r.sessionID }

// Log stamps and forwards the event.
func (r *Recorder) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.SessionID = r.sessionID
	r.logger.Log(event)
}

// Compile-time interface satisfaction check.
var _ Logger = (*Recorder)(nil)
