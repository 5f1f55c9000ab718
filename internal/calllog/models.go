package calllog

import "time"

// Collection is the document collection log records live in.
const Collection = "logs"

// ChannelCall labels records produced by the voice assistant.
const ChannelCall = "Call"

type Status string

const (
	StatusCallStarted Status = "call_started"
	StatusCallEnded   Status = "call_ended"
	StatusTranscript  Status = "transcript"
	StatusMessage     Status = "message"
)

// Record is one document in the logs collection.
//
// Optional fields are omitted from the stored document when empty, never written as null.
// CreatedAt and UpdatedAt are assigned by the store.
type Record struct {
	ID string `json:"id,omitempty"`

	CallID  string `json:"callId,omitempty"`
	Channel string `json:"channel"`
	Status  Status `json:"status"`

	PhoneNumber string         `json:"phoneNumber,omitempty"`
	AssistantID string         `json:"assistantId,omitempty"`
	Duration    *float64       `json:"duration,omitempty"`
	EndedReason string         `json:"endedReason,omitempty"`
	Transcript  string         `json:"transcript,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Analysis    map[string]any `json:"analysis,omitempty"`

	Message string `json:"message,omitempty"`
	Role    string `json:"role,omitempty"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// EndedFields are the call-level artifacts a call-ended event may carry. Empty fields leave the
// stored record untouched.
type EndedFields struct {
	PhoneNumber string
	AssistantID string
	Duration    *float64
	EndedReason string
	Transcript  string
	Summary     string
	Analysis    map[string]any
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status Status
	CallID string
	Limit  int
}
