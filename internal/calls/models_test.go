package calls

import (
	"encoding/json"
	"testing"
)

func ptr(f float64) *float64 { return &f }

func TestDurationSeconds_PrefersWebhookValue(t *testing.T) {
	r := Record{Duration: ptr(30), WebhookDuration: ptr(45)}
	if got := r.DurationSeconds(); got != 45 {
		t.Fatalf("expected webhook duration 45, got %v", got)
	}
	r = Record{Duration: ptr(30)}
	if got := r.DurationSeconds(); got != 30 {
		t.Fatalf("expected generic duration 30, got %v", got)
	}
	r = Record{}
	if got := r.DurationSeconds(); got != 0 {
		t.Fatalf("expected 0 without duration, got %v", got)
	}
}

func TestDurationSeconds_NeverNegative(t *testing.T) {
	r := Record{Duration: ptr(-5)}
	if got := r.DurationSeconds(); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
}

func TestRecord_DecodesMixedTimestamps(t *testing.T) {
	body := `[
		{"id":"a","user_id":"u1","status":"completed","start_time":{"_seconds":1700000000},"duration":12,"cost":1.5},
		{"id":"b","user_id":"u1","status":"failed","start_time":"broken"}
	]`
	var recs []Record
	if err := json.Unmarshal([]byte(body), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if start, ok := recs[0].Start(); !ok || start.Unix() != 1700000000 {
		t.Fatalf("unexpected start %v %v", start, ok)
	}
	if _, ok := recs[1].Start(); ok {
		t.Fatalf("expected broken start to be invalid")
	}
	if recs[0].Status != StatusCompleted || recs[0].DurationSeconds() != 12 {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
}
