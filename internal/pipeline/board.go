// Package pipeline keeps the per-representative kanban board: leads
// partitioned by stage, moved by drag-and-drop against the backend's move
// endpoint and edited in place.
//
// Local state changes only after the backend confirms a move or edit; on
// failure the board is left exactly as it was.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"contract-sender/internal/leads"
	"contract-sender/pkg/logger"
	"contract-sender/pkg/metrics"
)

var (
	// ErrMissingPipelineItem means a lead on the board has no pipeline item
	// id. It indicates a loading bug and is logged, never papered over.
	ErrMissingPipelineItem = errors.New("pipeline: lead has no pipeline item id")
	ErrMoveInFlight        = errors.New("pipeline: a move for this lead is already in flight")
	ErrUnknownStage        = errors.New("pipeline: drop target is not a stage of this pipeline")
	ErrLeadNotOnBoard      = errors.New("pipeline: lead is not on the board")
)

// Outcome of a drag completion.
type Outcome string

const (
	OutcomeMoved    Outcome = "moved"
	OutcomeNoOp     Outcome = "noop"
	OutcomeRejected Outcome = "rejected"
)

// DropTarget is where a card was released: an empty column (StageID) or
// another card (LeadID). StageID wins when both are set.
type DropTarget struct {
	StageID string `json:"stage_id,omitempty"`
	LeadID  string `json:"lead_id,omitempty"`
}

// Mover persists a stage change for one pipeline item.
type Mover interface {
	MovePipelineItem(ctx context.Context, pipelineID, itemID, stageID string) error
}

// LeadUpdater persists an inline lead edit.
type LeadUpdater interface {
	UpdateLead(ctx context.Context, leadID string, u leads.Update) error
}

type Board struct {
	mu       sync.Mutex
	pipeline Pipeline
	stages   LeadsByStage
	dragging string
	editing  string

	mover   Mover
	updater LeadUpdater
	guard   Guard
}

type Option func(*Board)

func WithGuard(g Guard) Option { return func(b *Board) { b.guard = g } }

// NewBoard builds a board over stages. Every stage of p gets a list, empty
// if byStage has none.
func NewBoard(p Pipeline, byStage LeadsByStage, mover Mover, updater LeadUpdater, opts ...Option) *Board {
	stages := byStage.Clone()
	for _, s := range p.Stages {
		if _, ok := stages[s.ID]; !ok {
			stages[s.ID] = []leads.Lead{}
		}
	}
	b := &Board{pipeline: p, stages: stages, mover: mover, updater: updater, guard: NewMemoryGuard()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Board) Pipeline() Pipeline {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pipeline
}

// DragStart records the lead being dragged for preview rendering only.
func (b *Board) DragStart(leadID string) {
	b.mu.Lock()
	b.dragging = leadID
	b.mu.Unlock()
}

func (b *Board) DragCancel() {
	b.mu.Lock()
	b.dragging = ""
	b.mu.Unlock()
}

func (b *Board) Dragging() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dragging
}

// DragEnd completes a drag of leadID onto target. The dragging reference is
// cleared whatever the outcome. A backend error is returned unchanged and
// leaves the board untouched.
func (b *Board) DragEnd(ctx context.Context, leadID string, target DropTarget) (out Outcome, err error) {
	log := logger.From(ctx).With("lead_id", leadID)
	defer func() {
		label := string(out)
		if err != nil && out == OutcomeRejected && !isLocalReject(err) {
			label = "failed"
		}
		metrics.PipelineMoves.WithLabelValues(label).Inc()
	}()

	b.mu.Lock()
	b.dragging = ""
	pipelineID := b.pipeline.ID

	targetStage := target.StageID
	if targetStage == "" && target.LeadID != "" {
		targetStage, _, _ = b.stages.Locate(target.LeadID)
	}
	if !b.pipeline.HasStage(targetStage) {
		b.mu.Unlock()
		return OutcomeRejected, ErrUnknownStage
	}

	source, idx, ok := b.stages.Locate(leadID)
	if !ok {
		b.mu.Unlock()
		return OutcomeRejected, ErrLeadNotOnBoard
	}
	if source == targetStage {
		b.mu.Unlock()
		return OutcomeNoOp, nil
	}
	itemID := b.stages[source][idx].PipelineItemID
	b.mu.Unlock()

	if itemID == "" {
		log.Error("lead on board without pipeline item id", "pipeline_id", pipelineID, "stage_id", source)
		return OutcomeRejected, ErrMissingPipelineItem
	}

	acquired, err := b.guard.Acquire(ctx, leadID)
	if err != nil {
		return OutcomeRejected, fmt.Errorf("acquire move guard: %w", err)
	}
	if !acquired {
		return OutcomeRejected, ErrMoveInFlight
	}
	defer func() {
		if rerr := b.guard.Release(context.WithoutCancel(ctx), leadID); rerr != nil {
			log.Warn("release move guard", "error", rerr)
		}
	}()

	if err := b.mover.MovePipelineItem(ctx, pipelineID, itemID, targetStage); err != nil {
		log.Warn("pipeline move failed", "target_stage", targetStage, "error", err)
		return OutcomeRejected, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.commitMove(leadID, targetStage)
	log.Info("lead moved", "from_stage", source, "to_stage", targetStage)
	return OutcomeMoved, nil
}

// commitMove removes the lead from the stage holding it now and appends it
// to target. Other lists are not touched. Caller holds mu.
func (b *Board) commitMove(leadID, target string) {
	source, idx, ok := b.stages.Locate(leadID)
	if !ok {
		return
	}
	list := b.stages[source]
	lead := list[idx]
	rest := make([]leads.Lead, 0, len(list)-1)
	rest = append(rest, list[:idx]...)
	rest = append(rest, list[idx+1:]...)
	b.stages[source] = rest

	lead.StageID = target
	b.stages[target] = append(b.stages[target], lead)
}

func isLocalReject(err error) bool {
	return errors.Is(err, ErrUnknownStage) ||
		errors.Is(err, ErrLeadNotOnBoard) ||
		errors.Is(err, ErrMissingPipelineItem) ||
		errors.Is(err, ErrMoveInFlight)
}

// BeginEdit opens the edit form for leadID seeded from its current values.
func (b *Board) BeginEdit(leadID string) (leads.Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sid, idx, ok := b.stages.Locate(leadID)
	if !ok {
		return leads.Update{}, ErrLeadNotOnBoard
	}
	b.editing = leadID
	return leads.FormFrom(b.stages[sid][idx]), nil
}

// SubmitEdit validates u, persists it, then patches every copy of the lead
// on the board by id. Validation failures never reach the backend.
func (b *Board) SubmitEdit(ctx context.Context, leadID string, u leads.Update) (leads.Lead, error) {
	u = u.Normalize()
	if err := u.Validate(); err != nil {
		return leads.Lead{}, err
	}

	b.mu.Lock()
	_, _, ok := b.stages.Locate(leadID)
	b.mu.Unlock()
	if !ok {
		return leads.Lead{}, ErrLeadNotOnBoard
	}

	if err := b.updater.UpdateLead(ctx, leadID, u); err != nil {
		return leads.Lead{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var patched leads.Lead
	for _, list := range b.stages {
		for i := range list {
			if list[i].ID == leadID {
				leads.Apply(&list[i], u)
				patched = list[i]
			}
		}
	}
	if b.editing == leadID {
		b.editing = ""
	}
	logger.From(ctx).Info("lead updated", "lead_id", leadID)
	return patched, nil
}

// Snapshot returns a deep copy ordered by stage order.
func (b *Board) Snapshot() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	ordered := b.pipeline.OrderedStages()
	v := View{Pipeline: b.pipeline, Dragging: b.dragging, Editing: b.editing}
	v.Stages = make([]StageView, 0, len(ordered))
	for _, s := range ordered {
		list := make([]leads.Lead, len(b.stages[s.ID]))
		copy(list, b.stages[s.ID])
		v.Stages = append(v.Stages, StageView{Stage: s, Leads: list})
	}
	return v
}

// LeadsByStage returns a deep copy of the stage cache.
func (b *Board) LeadsByStage() LeadsByStage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stages.Clone()
}
