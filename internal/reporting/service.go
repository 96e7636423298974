package reporting

import (
	"context"
	"errors"
	"time"

	"contract-sender/internal/calls"
	"contract-sender/internal/users"
	"contract-sender/pkg/logger"
)

// Repository supplies the snapshot a report is computed from.
// The CRM backend client implements it; MemoryRepo serves tests.
type Repository interface {
	ListCalls(ctx context.Context) ([]calls.Record, error)
	ListUsers(ctx context.Context) ([]users.Account, error)
}

type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service { return &Service{repo: repo, clock: time.Now} }

// WithClock replaces the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Report fetches calls and users and aggregates them for r, normalized
// by ParseRange. Either fetch failing fails the whole report; nothing
// partial is returned.
func (s *Service) Report(ctx context.Context, r Range) (KPIReport, error) {
	if s.repo == nil {
		return KPIReport{}, errors.New("reporting: repository not configured")
	}
	r, err := ParseRange(string(r))
	if err != nil {
		return KPIReport{}, err
	}

	callRows, err := s.repo.ListCalls(ctx)
	if err != nil {
		return KPIReport{}, err
	}
	roster, err := s.repo.ListUsers(ctx)
	if err != nil {
		return KPIReport{}, err
	}

	out := Aggregate(AggregateInput{Calls: callRows, Users: roster, Range: r, Now: s.clock()})

	log := logger.From(ctx)
	if n := len(out.UnattributedCalls); n > 0 {
		log.Warn("calls without a matching user", "count", n, "call_ids", out.UnattributedCalls)
	}
	if out.InvalidTimestamps > 0 {
		log.Warn("calls with unreadable start time excluded", "count", out.InvalidTimestamps)
	}
	return out, nil
}
