package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"contract-sender/internal/timestamp"
)

func TestChannel(t *testing.T) {
	if got := Channel("u1"); got != "notifications:user:u1" {
		t.Fatalf("unexpected channel %q", got)
	}
}

func TestDecode(t *testing.T) {
	e, err := Decode([]byte(`{"type":"contract_confirmed","user_id":"u1","record_id":"r1","confirmed_at":{"_seconds":1717234200}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	c := e.Confirmation()
	if c.RecordID != "r1" {
		t.Fatalf("unexpected confirmation %+v", c)
	}
	at, ok := c.ConfirmedAt.Time()
	if !ok || at.Unix() != 1717234200 {
		t.Fatalf("unexpected confirmed_at %v %v", at, ok)
	}

	if _, err := Decode([]byte(`{"type":"other","user_id":"u1"}`)); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	if _, err := Decode([]byte(`{"type":"contract_confirmed"}`)); err == nil {
		t.Fatalf("expected error for missing user")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestEvent_RoundTripsThroughJSON(t *testing.T) {
	in := Event{Type: EventContractConfirmed, UserID: "u", PhoneNumber: "+4791234567", ConfirmedAt: timestamp.Of(time.Unix(100, 0))}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.PhoneNumber != in.PhoneNumber {
		t.Fatalf("unexpected %+v", out)
	}
}

func TestMemoryBus_DeliversToUserOnly(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine, stop, err := bus.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()
	other, stopOther, _ := bus.Subscribe(ctx, "u2")
	defer stopOther()

	if err := bus.Publish(ctx, Event{Type: EventContractConfirmed, UserID: "u1", RecordID: "r1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case e := <-mine:
		if e.RecordID != "r1" {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
	select {
	case e := <-other:
		t.Fatalf("event leaked to other user: %+v", e)
	default:
	}
}

func TestMemoryBus_CancelClosesChannel(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _, _ := bus.Subscribe(ctx, "u1")
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}
	if err := bus.Publish(context.Background(), Event{Type: EventContractConfirmed, UserID: "u1"}); err != nil {
		t.Fatalf("publish after unsubscribe: %v", err)
	}
	if err := bus.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error without user")
	}
}
