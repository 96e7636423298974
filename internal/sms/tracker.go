package sms

import (
	"sort"
	"sync"
	"time"

	"contract-sender/internal/smstemplate"
	"contract-sender/internal/timestamp"
)

// Tracker holds one user's sent records. Poll results and push events both
// flow through Apply, so duplicate delivery is harmless. Every state change
// is reported to all open watches, whichever path applied it.
type Tracker struct {
	mu      sync.RWMutex
	records []Record

	wmu     sync.Mutex
	watches map[*Watch]struct{}
}

func NewTracker() *Tracker { return &Tracker{watches: make(map[*Watch]struct{})} }

// Watch queues the records a tracker confirms. Ready fires when the queue
// goes from empty to non-empty; Drain empties it. Nothing is dropped and
// Apply never blocks on a slow reader.
type Watch struct {
	mu      sync.Mutex
	pending []Record
	ready   chan struct{}
}

func (w *Watch) Ready() <-chan struct{} { return w.ready }

func (w *Watch) Drain() []Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.pending
	w.pending = nil
	return out
}

func (w *Watch) push(r Record) {
	w.mu.Lock()
	w.pending = append(w.pending, r)
	w.mu.Unlock()
	select {
	case w.ready <- struct{}{}:
	default:
	}
}

// Watch registers a new watch. The returned func unregisters it.
func (t *Tracker) Watch() (*Watch, func()) {
	w := &Watch{ready: make(chan struct{}, 1)}
	t.wmu.Lock()
	if t.watches == nil {
		t.watches = make(map[*Watch]struct{})
	}
	t.watches[w] = struct{}{}
	t.wmu.Unlock()
	return w, func() {
		t.wmu.Lock()
		delete(t.watches, w)
		t.wmu.Unlock()
	}
}

func (t *Tracker) broadcast(r Record) {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	for w := range t.watches {
		w.push(r)
	}
}

// Replace swaps in a freshly fetched list. Confirmations already applied
// locally survive a stale list that has not caught up yet.
func (t *Tracker) Replace(fresh []Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	confirmed := make(map[string]Record, len(t.records))
	for _, r := range t.records {
		if r.ContractConfirmed {
			confirmed[r.ID] = r
		}
	}
	out := make([]Record, len(fresh))
	copy(out, fresh)
	for i := range out {
		if old, ok := confirmed[out[i].ID]; ok && !out[i].ContractConfirmed {
			out[i].ContractConfirmed = true
			out[i].ConfirmedAt = old.ConfirmedAt
		}
	}
	t.records = out
}

// Add records a just-sent message at the front.
func (t *Tracker) Add(r Record) {
	t.mu.Lock()
	t.records = append([]Record{r}, t.records...)
	t.mu.Unlock()
}

func (t *Tracker) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, r := range t.records {
		if r.ID == id {
			t.records = append(t.records[:i:i], t.records[i+1:]...)
			return true
		}
	}
	return false
}

// Records returns a copy, newest first.
func (t *Tracker) Records() []Record {
	t.mu.RLock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	t.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].CreatedAt.Time()
		b, _ := out[j].CreatedAt.Time()
		return a.After(b)
	})
	return out
}

// Apply marks the matching record confirmed and returns it. Matching is by
// record id, then message id, then phone number; a phone match picks the
// newest unconfirmed record for that number. changed is false when nothing
// matched or the record was already confirmed.
func (t *Tracker) Apply(c Confirmation, now time.Time) (rec Record, changed bool) {
	rec, changed = t.apply(c, now)
	if changed {
		t.broadcast(rec)
	}
	return rec, changed
}

func (t *Tracker) apply(c Confirmation, now time.Time) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.match(c)
	if idx < 0 {
		return Record{}, false
	}
	r := &t.records[idx]
	if r.ContractConfirmed {
		return *r, false
	}
	r.ContractConfirmed = true
	if !c.ConfirmedAt.IsZero() {
		r.ConfirmedAt = c.ConfirmedAt
	} else {
		r.ConfirmedAt = timestamp.Of(now)
	}
	return *r, true
}

func (t *Tracker) match(c Confirmation) int {
	for i, r := range t.records {
		if c.RecordID != "" && r.ID == c.RecordID {
			return i
		}
	}
	for i, r := range t.records {
		if c.MessageID != "" && r.MessageID == c.MessageID {
			return i
		}
	}
	phone := smstemplate.FormatPhone(c.PhoneNumber)
	if phone == "" {
		return -1
	}
	best := -1
	var bestAt time.Time
	for i, r := range t.records {
		if r.ContractConfirmed || smstemplate.FormatPhone(r.PhoneNumber) != phone {
			continue
		}
		at, _ := r.CreatedAt.Time()
		if best < 0 || at.After(bestAt) {
			best, bestAt = i, at
		}
	}
	if best < 0 {
		// Everything for this number is already confirmed; report the first
		// so the caller sees an idempotent no-op rather than a miss.
		for i, r := range t.records {
			if smstemplate.FormatPhone(r.PhoneNumber) == phone {
				return i
			}
		}
	}
	return best
}

// Trackers keeps one tracker per user.
type Trackers struct {
	mu sync.Mutex
	m  map[string]*Tracker
}

func NewTrackers() *Trackers { return &Trackers{m: make(map[string]*Tracker)} }

func (ts *Trackers) For(userID string) *Tracker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.m[userID]
	if !ok {
		t = NewTracker()
		ts.m[userID] = t
	}
	return t
}
