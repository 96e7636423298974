package audit

import (
	"context"
	"errors"
	"time"

	"contract-sender/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for activity events.
// It is append-only: there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, f Filter) ([]Event, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ActorUserID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.List(ctx, f)
}

// record appends and only logs a failure.
func (s *Service) record(ctx context.Context, e Event) {
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("activity log append failed", "type", e.Type, "error", err)
	}
}

func (a Actor) event(t EventType) Event {
	return Event{Type: t, ActorUserID: a.UserID, ActorEmail: a.Email, ActorRole: a.Role, IPAddress: a.IP}
}

func (s *Service) LeadMoved(ctx context.Context, a Actor, pipelineID, leadID, from, to string) {
	e := a.event(EventLeadMoved)
	e.PipelineID, e.LeadID, e.FromStage, e.ToStage = pipelineID, leadID, from, to
	s.record(ctx, e)
}

func (s *Service) LeadUpdated(ctx context.Context, a Actor, leadID string) {
	e := a.event(EventLeadUpdated)
	e.LeadID = leadID
	s.record(ctx, e)
}

func (s *Service) SMSSent(ctx context.Context, a Actor, smsID, leadID string) {
	e := a.event(EventSMSSent)
	e.SMSID, e.LeadID = smsID, leadID
	s.record(ctx, e)
}

func (s *Service) SMSDeleted(ctx context.Context, a Actor, smsID string) {
	e := a.event(EventSMSDeleted)
	e.SMSID = smsID
	s.record(ctx, e)
}

func (s *Service) ContractConfirmed(ctx context.Context, a Actor, smsID, channel string) {
	e := a.event(EventContractConfirmed)
	e.SMSID = smsID
	e.Message = "via " + channel
	s.record(ctx, e)
}
