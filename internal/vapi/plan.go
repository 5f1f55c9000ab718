package vapi

import "restaurant-ops/internal/calllog"

// Effect is the write intent derived from an Event.
type Effect interface{ isEffect() }

// InsertLog appends Record to the logs collection.
type InsertLog struct{ Record calllog.Record }

// EndCall marks CallID ended, patching its earlier record when one exists.
type EndCall struct {
	CallID string
	Fields calllog.EndedFields
}

// LogOnly records the event in the operator log without persisting it.
type LogOnly struct {
	Msg   string
	Attrs []any
}

func (InsertLog) isEffect() {}
func (EndCall) isEffect()   {}
func (LogOnly) isEffect()   {}

// Plan maps an event to its effect. It performs no I/O.
func Plan(e Event) Effect {
	switch ev := e.(type) {
	case CallStarted:
		return InsertLog{Record: calllog.Record{
			CallID:      ev.Call.ID,
			Channel:     calllog.ChannelCall,
			Status:      calllog.StatusCallStarted,
			PhoneNumber: ev.Call.PhoneNumber,
			AssistantID: ev.Call.AssistantID,
		}}
	case CallEnded:
		return EndCall{CallID: ev.Call.ID, Fields: calllog.EndedFields{
			PhoneNumber: ev.Call.PhoneNumber,
			AssistantID: ev.Call.AssistantID,
			Duration:    ev.Call.Duration,
			EndedReason: ev.Call.EndedReason,
			Transcript:  ev.Call.Transcript,
			Summary:     ev.Call.Summary,
			Analysis:    ev.Call.Analysis,
		}}
	case FunctionCall:
		return LogOnly{Msg: "function call", Attrs: []any{"call_id", ev.CallID, "function", ev.Name, "parameters", ev.Parameters}}
	case SpeechUpdate:
		return LogOnly{Msg: "speech update", Attrs: []any{"call_id", ev.CallID, "message", ev.Message, "role", ev.Role}}
	case Transcript:
		return InsertLog{Record: calllog.Record{
			CallID:  ev.CallID,
			Channel: calllog.ChannelCall,
			Status:  calllog.StatusTranscript,
			Message: ev.Message,
			Role:    ev.Role,
		}}
	case Message:
		return InsertLog{Record: calllog.Record{
			CallID:  ev.CallID,
			Channel: calllog.ChannelCall,
			Status:  calllog.StatusMessage,
			Message: ev.Message,
			Role:    ev.Role,
		}}
	default:
		return LogOnly{Msg: "unhandled webhook event", Attrs: []any{"type", e.Type()}}
	}
}
