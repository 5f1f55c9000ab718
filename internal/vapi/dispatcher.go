package vapi

import (
	"context"
	"fmt"
	"log/slog"

	"restaurant-ops/internal/calllog"
)

// CallLog is the persistence the dispatcher writes to. *calllog.Service implements it.
type CallLog interface {
	Append(ctx context.Context, r calllog.Record) (string, error)
	MarkCallEnded(ctx context.Context, callID string, f calllog.EndedFields) (string, bool, error)
}

// Dispatcher runs effects. Failures are logged and never returned: the webhook acknowledges every
// well-formed delivery so the provider does not retry.
type Dispatcher struct {
	logs CallLog
}

func NewDispatcher(logs CallLog) *Dispatcher { return &Dispatcher{logs: logs} }

// Dispatch plans and runs the effect for e.
func (d *Dispatcher) Dispatch(ctx context.Context, log *slog.Logger, e Event) {
	log = log.With("event_type", e.Type())
	if err := d.run(ctx, log, Plan(e)); err != nil {
		log.Error("webhook persistence failed", "err", err)
	}
}

func (d *Dispatcher) run(ctx context.Context, log *slog.Logger, eff Effect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vapi: effect panicked: %v", r)
		}
	}()

	switch e := eff.(type) {
	case InsertLog:
		id, err := d.logs.Append(ctx, e.Record)
		if err != nil {
			return err
		}
		log.Info("log record inserted", "id", id, "call_id", e.Record.CallID, "status", e.Record.Status)
	case EndCall:
		id, created, err := d.logs.MarkCallEnded(ctx, e.CallID, e.Fields)
		if err != nil {
			return err
		}
		log.Info("call ended recorded", "id", id, "call_id", e.CallID, "created", created)
	case LogOnly:
		log.Info(e.Msg, e.Attrs...)
	}
	return nil
}
