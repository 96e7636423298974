package telephony

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"contract-sender/internal/calls"
	"contract-sender/internal/smstemplate"
	"contract-sender/pkg/logger"
)

var (
	ErrBusy       = errors.New("telephony: a call is already open")
	ErrDialing    = errors.New("telephony: call is still being placed")
	ErrNoNumber   = errors.New("telephony: phone number is required")
	ErrNoProvider = errors.New("telephony: provider not configured")
)

// Probe reports whether call is still live.
type Probe func(ctx context.Context, call Call) (bool, error)

// Dialer is one representative's call session: open, close, and an observed
// in-call flag refreshed by a periodic probe.
type Dialer struct {
	mu       sync.Mutex
	provider Provider
	current  *Call
	inCall   bool
	// dialing is set while MakeCall is outstanding; the line counts as
	// busy and cannot be closed until the provider answers.
	dialing bool

	// OnChange, when set, is called with the new in-call state.
	OnChange func(bool)
}

func NewDialer(p Provider) *Dialer { return &Dialer{provider: p} }

// Open places a call to phone. Only one call may be open at a time.
func (d *Dialer) Open(ctx context.Context, phone string, metadata map[string]string) (Call, error) {
	if d.provider == nil {
		return Call{}, ErrNoProvider
	}
	to := smstemplate.FormatPhone(phone)
	if to == "" {
		return Call{}, ErrNoNumber
	}

	d.mu.Lock()
	if d.inCall {
		d.mu.Unlock()
		return Call{}, ErrBusy
	}
	d.inCall, d.dialing = true, true
	d.mu.Unlock()

	call, err := d.provider.MakeCall(ctx, CallRequest{To: to, Metadata: metadata})

	d.mu.Lock()
	d.dialing = false
	if err != nil {
		d.inCall = false
		d.mu.Unlock()
		return Call{}, err
	}
	if call.To == "" {
		call.To = to
	}
	d.current = &call
	d.inCall = true
	d.mu.Unlock()
	d.notify(true)
	logger.From(ctx).Info("call opened", "call_id", call.ID, "to", to)
	return call, nil
}

// Close hangs up the open call. Closing with nothing open is a no-op.
// While a call is still being placed Close returns ErrDialing and changes
// nothing. If the provider refuses, the session stays open so the user can
// retry.
func (d *Dialer) Close(ctx context.Context) error {
	d.mu.Lock()
	cur, dialing := d.current, d.dialing
	d.mu.Unlock()
	if dialing {
		return ErrDialing
	}
	if cur == nil {
		d.Observe(false)
		return nil
	}
	if d.provider == nil {
		return ErrNoProvider
	}
	if err := d.provider.EndCall(ctx, cur.ID); err != nil {
		return err
	}
	d.Observe(false)
	logger.From(ctx).Info("call closed", "call_id", cur.ID)
	return nil
}

func (d *Dialer) InCall() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inCall
}

func (d *Dialer) Current() (Call, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return Call{}, false
	}
	return *d.current, true
}

// Observe records an externally seen in-call state. Going idle forgets the
// current call. Observations made while a call is being placed are ignored.
func (d *Dialer) Observe(inCall bool) {
	d.mu.Lock()
	if d.dialing {
		d.mu.Unlock()
		return
	}
	changed := d.inCall != inCall
	d.inCall = inCall
	if !inCall {
		d.current = nil
	}
	d.mu.Unlock()
	if changed {
		d.notify(inCall)
	}
}

func (d *Dialer) notify(v bool) {
	if d.OnChange != nil {
		d.OnChange(v)
	}
}

// Run probes the open call every interval until ctx ends. Probe errors are
// logged and leave the state as it was.
func (d *Dialer) Run(ctx context.Context, interval time.Duration, probe Probe) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		call, ok := d.Current()
		if !ok {
			continue
		}
		live, err := probe(ctx, call)
		if err != nil {
			logger.From(ctx).Warn("call probe failed", "call_id", call.ID, "error", err)
			continue
		}
		if !live {
			d.Observe(false)
		}
	}
}

// CallLogSource lists recent call records.
type CallLogSource interface {
	ListCallLogs(ctx context.Context, limit int) ([]calls.Record, error)
}

// LogProbe treats a call as live until it shows up in the recent call log
// with a terminal status.
func LogProbe(src CallLogSource, window int) Probe {
	if window <= 0 {
		window = 50
	}
	return func(ctx context.Context, call Call) (bool, error) {
		recent, err := src.ListCallLogs(ctx, window)
		if err != nil {
			return false, err
		}
		for _, r := range recent {
			if r.ID != call.ID && r.ProviderCallID != call.ID {
				continue
			}
			return !terminal(r.Status), nil
		}
		return true, nil
	}
}

func terminal(s calls.Status) bool {
	switch calls.Status(strings.ToLower(string(s))) {
	case calls.StatusCompleted, calls.StatusFailed, calls.StatusNoAnswer, calls.StatusBusy, calls.StatusCanceled:
		return true
	}
	return false
}

// Dialers keeps one dialer per user.
type Dialers struct {
	mu       sync.Mutex
	provider Provider
	m        map[string]*Dialer
}

func NewDialers(p Provider) *Dialers {
	return &Dialers{provider: p, m: make(map[string]*Dialer)}
}

func (ds *Dialers) For(userID string) *Dialer {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	d, ok := ds.m[userID]
	if !ok {
		d = NewDialer(ds.provider)
		ds.m[userID] = d
	}
	return d
}
