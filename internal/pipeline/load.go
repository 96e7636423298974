package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"contract-sender/internal/leads"
	"contract-sender/pkg/logger"
)

var ErrNoPipeline = errors.New("pipeline: no pipeline assigned to user")

// Source is the read side of the backend needed to build a board.
type Source interface {
	ListPipelines(ctx context.Context) ([]Pipeline, error)
	ListPipelineItems(ctx context.Context, pipelineID string) ([]Item, error)
	BulkFetchLeads(ctx context.Context, ids []string) ([]leads.Lead, error)
}

// Backend is everything a board needs from the CRM backend.
type Backend interface {
	Source
	Mover
	LeadUpdater
}

// FindAssigned picks the pipeline assigned to the user. Active pipelines
// win over inactive ones; otherwise the first match is used.
func FindAssigned(all []Pipeline, userID, email string) (Pipeline, bool) {
	var fallback *Pipeline
	for i := range all {
		p := all[i]
		if !p.AssignedTo(userID, email) {
			continue
		}
		if p.Active {
			return p, true
		}
		if fallback == nil {
			fallback = &all[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Pipeline{}, false
}

// Load builds the board for a representative: their assigned pipeline, its
// items, and the leads behind them. Items pointing at unknown stages or
// leads the backend did not return are skipped and logged.
func Load(ctx context.Context, be Backend, userID, email string, opts ...Option) (*Board, error) {
	log := logger.From(ctx)

	all, err := be.ListPipelines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	p, ok := FindAssigned(all, userID, email)
	if !ok {
		return nil, ErrNoPipeline
	}

	items, err := be.ListPipelineItems(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list pipeline items: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })

	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.LeadID != "" {
			ids = append(ids, it.LeadID)
		}
	}
	byID := make(map[string]leads.Lead, len(ids))
	if len(ids) > 0 {
		fetched, err := be.BulkFetchLeads(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("bulk fetch leads: %w", err)
		}
		for _, l := range fetched {
			byID[l.ID] = l
		}
	}

	byStage := make(LeadsByStage, len(p.Stages))
	for _, it := range items {
		if !p.HasStage(it.StageID) {
			log.Warn("pipeline item in unknown stage", "pipeline_id", p.ID, "item_id", it.ID, "stage_id", it.StageID)
			continue
		}
		l, ok := byID[it.LeadID]
		if !ok {
			log.Warn("pipeline item without lead", "pipeline_id", p.ID, "item_id", it.ID, "lead_id", it.LeadID)
			continue
		}
		l.PipelineItemID = it.ID
		l.StageID = it.StageID
		byStage[it.StageID] = append(byStage[it.StageID], l)
	}

	return NewBoard(p, byStage, be, be, opts...), nil
}

// Boards keeps one loaded board per user.
type Boards struct {
	mu     sync.Mutex
	boards map[string]*Board
	opts   []Option
}

func NewBoards(opts ...Option) *Boards {
	return &Boards{boards: make(map[string]*Board), opts: opts}
}

// Get returns the cached board for userID, loading it on first use.
func (r *Boards) Get(ctx context.Context, be Backend, userID, email string) (*Board, error) {
	r.mu.Lock()
	b, ok := r.boards[userID]
	r.mu.Unlock()
	if ok {
		return b, nil
	}
	return r.Reload(ctx, be, userID, email)
}

// Reload replaces the cached board with a fresh one from the backend.
func (r *Boards) Reload(ctx context.Context, be Backend, userID, email string) (*Board, error) {
	b, err := Load(ctx, be, userID, email, r.opts...)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.boards[userID] = b
	r.mu.Unlock()
	return b, nil
}

func (r *Boards) Drop(userID string) {
	r.mu.Lock()
	delete(r.boards, userID)
	r.mu.Unlock()
}

// DropPipeline evicts every cached board showing pipelineID and returns the
// affected user ids. Used when a pipeline changes hands, so the previous
// owner cannot keep moving leads on a stale board.
func (r *Boards) DropPipeline(pipelineID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var dropped []string
	for userID, b := range r.boards {
		if b.Pipeline().ID == pipelineID {
			delete(r.boards, userID)
			dropped = append(dropped, userID)
		}
	}
	return dropped
}
