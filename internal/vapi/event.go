// Package vapi ingests webhook events from the Vapi voice assistant.
package vapi

import (
	"encoding/json"
	"strconv"
)

// Event type discriminators as sent in the "type" field.
const (
	TypeCallStarted  = "call-started"
	TypeCallEnded    = "call-ended"
	TypeFunctionCall = "function-call"
	TypeSpeechUpdate = "speech-update"
	TypeTranscript   = "transcript"
	TypeMessage      = "message"
)

// unknownType labels events whose type is absent or not renderable.
const unknownType = "unknown"

// Event is one classified webhook delivery. The concrete types below are the only implementations.
type Event interface {
	// Type is the label used in the acknowledgment message.
	Type() string
	isEvent()
}

// CallInfo holds call-level artifacts. Each field comes from the nested call object when present
// there, and from the top level of the payload otherwise.
type CallInfo struct {
	ID          string
	PhoneNumber string
	AssistantID string
	Status      string
	Duration    *float64
	EndedReason string
	Transcript  string
	Summary     string
	Analysis    map[string]any
}

type CallStarted struct{ Call CallInfo }

type CallEnded struct{ Call CallInfo }

type FunctionCall struct {
	CallID     string
	Name       string
	Parameters map[string]any
}

type SpeechUpdate struct {
	CallID  string
	Message string
	Role    string
}

type Transcript struct {
	CallID  string
	Message string
	Role    string
}

type Message struct {
	CallID  string
	Message string
	Role    string
}

// Unknown covers unrecognized types, a missing type and non-object bodies.
type Unknown struct{ Label string }

func (CallStarted) Type() string  { return TypeCallStarted }
func (CallEnded) Type() string    { return TypeCallEnded }
func (FunctionCall) Type() string { return TypeFunctionCall }
func (SpeechUpdate) Type() string { return TypeSpeechUpdate }
func (Transcript) Type() string   { return TypeTranscript }
func (Message) Type() string      { return TypeMessage }
func (u Unknown) Type() string {
	if u.Label == "" {
		return unknownType
	}
	return u.Label
}

func (CallStarted) isEvent()  {}
func (CallEnded) isEvent()    {}
func (FunctionCall) isEvent() {}
func (SpeechUpdate) isEvent() {}
func (Transcript) isEvent()   {}
func (Message) isEvent()      {}
func (Unknown) isEvent()      {}

// ParseEvent decodes body and classifies it. Only malformed JSON is an error; any well-formed
// value yields an Event. Fields of an unexpected JSON type are treated as absent.
func ParseEvent(body []byte) (Event, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return Unknown{}, nil
	}
	return classify(obj), nil
}

func classify(obj map[string]any) Event {
	typ, isString := obj["type"].(string)
	if !isString {
		return Unknown{Label: renderType(obj["type"])}
	}

	call, _ := obj["call"].(map[string]any)
	info := callInfo(call, obj)

	switch typ {
	case TypeCallStarted:
		return CallStarted{Call: info}
	case TypeCallEnded:
		return CallEnded{Call: info}
	case TypeFunctionCall:
		fc, _ := obj["functionCall"].(map[string]any)
		params, _ := fc["parameters"].(map[string]any)
		return FunctionCall{CallID: info.ID, Name: str(fc, "name"), Parameters: params}
	case TypeSpeechUpdate:
		return SpeechUpdate{CallID: info.ID, Message: str(obj, "message"), Role: str(obj, "role")}
	case TypeTranscript:
		msg := str(obj, "message")
		if msg == "" {
			msg = str(obj, "transcript")
		}
		return Transcript{CallID: info.ID, Message: msg, Role: str(obj, "role")}
	case TypeMessage:
		return Message{CallID: info.ID, Message: str(obj, "message"), Role: str(obj, "role")}
	default:
		return Unknown{Label: typ}
	}
}

// renderType labels a non-string type value. Scalars keep their JSON spelling.
func renderType(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func callInfo(call, top map[string]any) CallInfo {
	info := CallInfo{
		ID:          first(str(call, "id"), str(top, "callId")),
		PhoneNumber: first(str(call, "phoneNumber"), str(top, "phoneNumber")),
		AssistantID: first(str(call, "assistantId"), str(top, "assistantId")),
		Status:      str(call, "status"),
		EndedReason: first(str(call, "endedReason"), str(top, "endedReason")),
		Transcript:  first(str(call, "transcript"), str(top, "transcript")),
		Summary:     first(str(call, "summary"), str(top, "summary")),
	}
	if info.PhoneNumber == "" {
		customer, _ := call["customer"].(map[string]any)
		info.PhoneNumber = str(customer, "number")
	}
	if d, ok := num(call, "duration"); ok {
		info.Duration = &d
	} else if d, ok := num(top, "duration"); ok {
		info.Duration = &d
	}
	if a, ok := call["analysis"].(map[string]any); ok && len(a) > 0 {
		info.Analysis = a
	} else if a, ok := top["analysis"].(map[string]any); ok && len(a) > 0 {
		info.Analysis = a
	}
	return info
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func num(m map[string]any, key string) (float64, bool) {
	f, ok := m[key].(float64)
	return f, ok
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
