package sms

import (
	"context"
	"time"

	"contract-sender/pkg/logger"
	"contract-sender/pkg/metrics"
)

// Source lists the caller's own sent records.
type Source interface {
	ListMySMSRecords(ctx context.Context) ([]Record, error)
}

// Poller re-fetches the user's records on a fixed interval and applies any
// confirmations it finds. It does not retry a failed fetch early; the next
// tick is the retry.
type Poller struct {
	src      Source
	tracker  *Tracker
	interval time.Duration
	clock    func() time.Time

	// OnConfirmed, when set, receives every record that changed state.
	OnConfirmed func(Record)
}

func NewPoller(src Source, tracker *Tracker, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{src: src, tracker: tracker, interval: interval, clock: time.Now}
}

// Run polls until ctx is done. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			logger.From(ctx).Warn("sms confirmation poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Poll fetches once and applies confirmations. Records confirmed on the
// server but not locally are patched through Apply.
func (p *Poller) Poll(ctx context.Context) error {
	fresh, err := p.src.ListMySMSRecords(ctx)
	if err != nil {
		return err
	}
	var newly []Confirmation
	for _, r := range fresh {
		if r.ContractConfirmed {
			newly = append(newly, Confirmation{RecordID: r.ID, ConfirmedAt: r.ConfirmedAt})
		}
	}
	// Unconfirmed view first so Apply can report which records changed.
	for i := range fresh {
		fresh[i].ContractConfirmed = false
	}
	p.tracker.Replace(fresh)
	now := p.clock()
	for _, c := range newly {
		if rec, changed := p.tracker.Apply(c, now); changed {
			metrics.ContractConfirmations.WithLabelValues("poll").Inc()
			if p.OnConfirmed != nil {
				p.OnConfirmed(rec)
			}
		}
	}
	return nil
}
