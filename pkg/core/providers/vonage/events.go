package vonage

import "strings"

// AnswerEvent is delivered to the answer webhook when a call connects.
type AnswerEvent struct {
	UUID             string `json:"uuid"`
	ConversationUUID string `json:"conversation_uuid"`
	From             string `json:"from"`
	To               string `json:"to"`
}

// CallID returns the leg uuid, or the conversation uuid when the leg is missing.
func (e AnswerEvent) CallID() string {
	return firstNonEmpty(e.UUID, e.ConversationUUID)
}

// RecordingEvent is delivered to a record action's eventUrl.
type RecordingEvent struct {
	UUID             string `json:"uuid"`
	ConversationUUID string `json:"conversation_uuid"`
	RecordingURL     string `json:"recording_url"`
	RecordingUUID    string `json:"recording_uuid"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Size             int64  `json:"size"`
}

// CallID returns the leg uuid, or the conversation uuid when the leg is missing.
func (e RecordingEvent) CallID() string {
	return firstNonEmpty(e.UUID, e.ConversationUUID)
}

// StatusEvent is delivered to the application's event webhook on call state changes.
type StatusEvent struct {
	UUID             string `json:"uuid"`
	ConversationUUID string `json:"conversation_uuid"`
	Status           string `json:"status"`
	Direction        string `json:"direction"`
	From             string `json:"from"`
	To               string `json:"to"`
	Timestamp        string `json:"timestamp"`
	Duration         string `json:"duration,omitempty"`
}

// CallID returns the leg uuid, or the conversation uuid when the leg is missing.
func (e StatusEvent) CallID() string {
	return firstNonEmpty(e.UUID, e.ConversationUUID)
}

// InputEvent is delivered to an input action's eventUrl.
type InputEvent struct {
	UUID             string `json:"uuid"`
	ConversationUUID string `json:"conversation_uuid"`
	From             string `json:"from"`
	To               string `json:"to"`
	DTMF             struct {
		Digits   string `json:"digits"`
		TimedOut bool   `json:"timed_out"`
	} `json:"dtmf"`
}

// CallID returns the leg uuid, or the conversation uuid when the leg is missing.
func (e InputEvent) CallID() string {
	return firstNonEmpty(e.UUID, e.ConversationUUID)
}

// Call statuses after which no further webhooks arrive for the leg.
const (
	StatusCompleted  = "completed"
	StatusBusy       = "busy"
	StatusCancelled  = "cancelled"
	StatusFailed     = "failed"
	StatusRejected   = "rejected"
	StatusTimeout    = "timeout"
	StatusUnanswered = "unanswered"
)

// IsTerminal reports whether status ends the call.
func IsTerminal(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusCompleted, StatusBusy, StatusCancelled, StatusFailed,
		StatusRejected, StatusTimeout, StatusUnanswered:
		return true
	default:
		return false
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
