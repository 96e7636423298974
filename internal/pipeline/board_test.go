package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"contract-sender/internal/leads"
)

type fakeBackend struct {
	mu        sync.Mutex
	moves     []string
	updates   []leads.Update
	moveErr   error
	updateErr error

	// block, when set, holds MovePipelineItem until closed.
	block   chan struct{}
	entered chan struct{}

	pipelines []Pipeline
	items     []Item
	leads     []leads.Lead
}

func (f *fakeBackend) MovePipelineItem(ctx context.Context, pipelineID, itemID, stageID string) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, pipelineID+"/"+itemID+"->"+stageID)
	return f.moveErr
}

func (f *fakeBackend) UpdateLead(ctx context.Context, leadID string, u leads.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return f.updateErr
}

func (f *fakeBackend) ListPipelines(ctx context.Context) ([]Pipeline, error) {
	return f.pipelines, nil
}

func (f *fakeBackend) ListPipelineItems(ctx context.Context, pipelineID string) ([]Item, error) {
	return f.items, nil
}

func (f *fakeBackend) BulkFetchLeads(ctx context.Context, ids []string) ([]leads.Lead, error) {
	return f.leads, nil
}

func testPipeline() Pipeline {
	return Pipeline{
		ID:             "p1",
		AssignedUserID: "rep",
		Active:         true,
		Stages: []Stage{
			{ID: "won", Name: "Won", Order: 3},
			{ID: "new", Name: "New", Order: 1},
			{ID: "contacted", Name: "Contacted", Order: 2},
		},
	}
}

func testBoard(be *fakeBackend) *Board {
	return NewBoard(testPipeline(), LeadsByStage{
		"new": {
			{ID: "a", CompanyName: "A", PipelineItemID: "ia", StageID: "new"},
			{ID: "b", CompanyName: "B", PipelineItemID: "ib", StageID: "new"},
			{ID: "c", CompanyName: "C", PipelineItemID: "ic", StageID: "new"},
		},
		"contacted": {
			{ID: "d", CompanyName: "D", PipelineItemID: "id", StageID: "contacted"},
		},
		"won": {
			{ID: "e", CompanyName: "E", PipelineItemID: "ie", StageID: "won"},
		},
	}, be, be)
}

func ids(list []leads.Lead) []string {
	out := make([]string, len(list))
	for i, l := range list {
		out[i] = l.ID
	}
	return out
}

func TestDragEnd_MovesOnSuccess(t *testing.T) {
	be := &fakeBackend{}
	b := testBoard(be)
	before := b.LeadsByStage()

	b.DragStart("b")
	out, err := b.DragEnd(context.Background(), "b", DropTarget{StageID: "contacted"})
	if err != nil || out != OutcomeMoved {
		t.Fatalf("expected moved, got %s %v", out, err)
	}
	if b.Dragging() != "" {
		t.Fatalf("dragging not cleared")
	}
	after := b.LeadsByStage()
	if got := ids(after["new"]); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("unexpected source list %v", got)
	}
	if got := ids(after["contacted"]); !reflect.DeepEqual(got, []string{"d", "b"}) {
		t.Fatalf("unexpected target list %v", got)
	}
	if after["contacted"][1].StageID != "contacted" {
		t.Fatalf("moved lead keeps stale stage id")
	}
	if !reflect.DeepEqual(before["won"], after["won"]) {
		t.Fatalf("unrelated stage changed")
	}
	if !reflect.DeepEqual(be.moves, []string{"p1/ib->contacted"}) {
		t.Fatalf("unexpected backend calls %v", be.moves)
	}
}

func TestDragEnd_DropOnCardResolvesStage(t *testing.T) {
	be := &fakeBackend{}
	b := testBoard(be)
	out, err := b.DragEnd(context.Background(), "a", DropTarget{LeadID: "e"})
	if err != nil || out != OutcomeMoved {
		t.Fatalf("expected moved, got %s %v", out, err)
	}
	if got := ids(b.LeadsByStage()["won"]); !reflect.DeepEqual(got, []string{"e", "a"}) {
		t.Fatalf("unexpected won list %v", got)
	}
}

func TestDragEnd_SameStageIsNoOp(t *testing.T) {
	be := &fakeBackend{}
	b := testBoard(be)
	before := b.LeadsByStage()

	out, err := b.DragEnd(context.Background(), "a", DropTarget{LeadID: "c"})
	if err != nil || out != OutcomeNoOp {
		t.Fatalf("expected noop, got %s %v", out, err)
	}
	if len(be.moves) != 0 {
		t.Fatalf("noop must not call backend")
	}
	if !reflect.DeepEqual(before, b.LeadsByStage()) {
		t.Fatalf("noop changed state")
	}
}

func TestDragEnd_UnknownTargetRejected(t *testing.T) {
	be := &fakeBackend{}
	b := testBoard(be)
	b.DragStart("a")
	out, err := b.DragEnd(context.Background(), "a", DropTarget{StageID: "elsewhere"})
	if out != OutcomeRejected || !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("expected unknown stage rejection, got %s %v", out, err)
	}
	if b.Dragging() != "" {
		t.Fatalf("dragging must clear on invalid drop")
	}
	if _, err := b.DragEnd(context.Background(), "a", DropTarget{LeadID: "ghost"}); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("expected unknown stage for unknown card, got %v", err)
	}
}

func TestDragEnd_MissingPipelineItem(t *testing.T) {
	be := &fakeBackend{}
	b := NewBoard(testPipeline(), LeadsByStage{"new": {{ID: "x"}}}, be, be)
	out, err := b.DragEnd(context.Background(), "x", DropTarget{StageID: "won"})
	if out != OutcomeRejected || !errors.Is(err, ErrMissingPipelineItem) {
		t.Fatalf("expected missing item, got %s %v", out, err)
	}
	if len(be.moves) != 0 {
		t.Fatalf("backend must not be called")
	}
}

func TestDragEnd_BackendFailureLeavesStateUntouched(t *testing.T) {
	remote := errors.New("stage locked")
	be := &fakeBackend{moveErr: remote}
	b := testBoard(be)
	before := b.LeadsByStage()

	out, err := b.DragEnd(context.Background(), "a", DropTarget{StageID: "won"})
	if out != OutcomeRejected || !errors.Is(err, remote) {
		t.Fatalf("expected remote error, got %s %v", out, err)
	}
	if !reflect.DeepEqual(before, b.LeadsByStage()) {
		t.Fatalf("failed move changed state")
	}
}

func TestDragEnd_SecondMoveOfSameLeadRejectedWhileInFlight(t *testing.T) {
	be := &fakeBackend{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	b := testBoard(be)

	done := make(chan error, 1)
	go func() {
		_, err := b.DragEnd(context.Background(), "a", DropTarget{StageID: "contacted"})
		done <- err
	}()
	<-be.entered

	out, err := b.DragEnd(context.Background(), "a", DropTarget{StageID: "won"})
	if out != OutcomeRejected || !errors.Is(err, ErrMoveInFlight) {
		t.Fatalf("expected in-flight rejection, got %s %v", out, err)
	}

	close(be.block)
	if err := <-done; err != nil {
		t.Fatalf("first move failed: %v", err)
	}
	if got := ids(b.LeadsByStage()["contacted"]); !reflect.DeepEqual(got, []string{"d", "a"}) {
		t.Fatalf("unexpected contacted list %v", got)
	}

	// Guard released: the lead can move again.
	be.entered = nil
	be.block = nil
	if out, err := b.DragEnd(context.Background(), "a", DropTarget{StageID: "won"}); err != nil || out != OutcomeMoved {
		t.Fatalf("expected second move to succeed, got %s %v", out, err)
	}
}

func TestDragCancel(t *testing.T) {
	b := testBoard(&fakeBackend{})
	b.DragStart("a")
	if b.Dragging() != "a" {
		t.Fatalf("expected dragging a")
	}
	b.DragCancel()
	if b.Dragging() != "" {
		t.Fatalf("expected cleared")
	}
}

func TestEdit_PatchesEveryCopyInPlace(t *testing.T) {
	be := &fakeBackend{}
	b := NewBoard(testPipeline(), LeadsByStage{
		"new":       {{ID: "a", CompanyName: "Old", PipelineItemID: "ia"}, {ID: "b", CompanyName: "B", PipelineItemID: "ib"}},
		"contacted": {{ID: "a", CompanyName: "Old", PipelineItemID: "ia2"}},
	}, be, be)

	form, err := b.BeginEdit("a")
	if err != nil || form.CompanyName != "Old" {
		t.Fatalf("unexpected form %+v %v", form, err)
	}
	if b.Snapshot().Editing != "a" {
		t.Fatalf("expected editing a")
	}
	form.CompanyName = " New AS "
	got, err := b.SubmitEdit(context.Background(), "a", form)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.CompanyName != "New AS" {
		t.Fatalf("unexpected patched lead %+v", got)
	}
	state := b.LeadsByStage()
	if state["new"][0].CompanyName != "New AS" || state["contacted"][0].CompanyName != "New AS" {
		t.Fatalf("not patched everywhere: %+v", state)
	}
	if state["new"][0].PipelineItemID != "ia" || state["contacted"][0].PipelineItemID != "ia2" {
		t.Fatalf("linkage changed")
	}
	if ids(state["new"])[1] != "b" || state["new"][1].CompanyName != "B" {
		t.Fatalf("other lead touched")
	}
	if len(be.updates) != 1 {
		t.Fatalf("expected one update call")
	}
}

func TestSubmitEdit_InvalidNeverReachesBackend(t *testing.T) {
	be := &fakeBackend{}
	b := testBoard(be)
	_, err := b.SubmitEdit(context.Background(), "a", leads.Update{CompanyName: ""})
	if !errors.Is(err, leads.ErrInvalidUpdate) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(be.updates) != 0 {
		t.Fatalf("backend called despite invalid form")
	}
}

func TestSubmitEdit_BackendFailureLeavesLead(t *testing.T) {
	be := &fakeBackend{updateErr: errors.New("nope")}
	b := testBoard(be)
	if _, err := b.SubmitEdit(context.Background(), "a", leads.Update{CompanyName: "Z"}); err == nil {
		t.Fatalf("expected error")
	}
	if b.LeadsByStage()["new"][0].CompanyName != "A" {
		t.Fatalf("lead changed after failed update")
	}
}

func TestSnapshot_OrderedByStageOrder(t *testing.T) {
	v := testBoard(&fakeBackend{}).Snapshot()
	var got []string
	for _, s := range v.Stages {
		got = append(got, s.Stage.ID)
	}
	if !reflect.DeepEqual(got, []string{"new", "contacted", "won"}) {
		t.Fatalf("unexpected order %v", got)
	}
}
