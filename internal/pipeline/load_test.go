package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"contract-sender/internal/leads"
)

func TestFindAssigned(t *testing.T) {
	all := []Pipeline{
		{ID: "old", AssignedUserEmail: "Rep@Example.com"},
		{ID: "other", AssignedUserID: "someone", Active: true},
		{ID: "current", AssignedUserID: "rep", Active: true},
	}
	p, ok := FindAssigned(all, "rep", "rep@example.com")
	if !ok || p.ID != "current" {
		t.Fatalf("expected active pipeline, got %+v", p)
	}
	p, ok = FindAssigned(all[:1], "nobody", "rep@example.com")
	if !ok || p.ID != "old" {
		t.Fatalf("expected email match, got %+v", p)
	}
	if _, ok := FindAssigned(all, "x", ""); ok {
		t.Fatalf("expected no match")
	}
}

func TestLoad_BuildsBoardFromItems(t *testing.T) {
	be := &fakeBackend{
		pipelines: []Pipeline{testPipeline()},
		items: []Item{
			{ID: "i2", StageID: "new", LeadID: "l2", Position: 2},
			{ID: "i1", StageID: "new", LeadID: "l1", Position: 1},
			{ID: "i3", StageID: "won", LeadID: "l3", Position: 1},
			{ID: "i4", StageID: "gone", LeadID: "l1", Position: 1},
			{ID: "i5", StageID: "won", LeadID: "missing", Position: 2},
		},
		leads: []leads.Lead{{ID: "l1"}, {ID: "l2"}, {ID: "l3"}},
	}
	b, err := Load(context.Background(), be, "rep", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	state := b.LeadsByStage()
	if got := ids(state["new"]); !reflect.DeepEqual(got, []string{"l1", "l2"}) {
		t.Fatalf("unexpected new list %v", got)
	}
	if got := ids(state["won"]); !reflect.DeepEqual(got, []string{"l3"}) {
		t.Fatalf("unexpected won list %v", got)
	}
	if state["new"][0].PipelineItemID != "i1" || state["won"][0].StageID != "won" {
		t.Fatalf("linkage not set: %+v", state)
	}
	if list, ok := state["contacted"]; !ok || len(list) != 0 {
		t.Fatalf("expected empty contacted column")
	}
}

func TestLoad_NoAssignedPipeline(t *testing.T) {
	be := &fakeBackend{pipelines: []Pipeline{{ID: "p", AssignedUserID: "other"}}}
	if _, err := Load(context.Background(), be, "rep", "rep@example.com"); !errors.Is(err, ErrNoPipeline) {
		t.Fatalf("expected ErrNoPipeline, got %v", err)
	}
}

func TestBoards_CachesPerUser(t *testing.T) {
	be := &fakeBackend{pipelines: []Pipeline{testPipeline()}}
	reg := NewBoards()
	b1, err := reg.Get(context.Background(), be, "rep", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b2, _ := reg.Get(context.Background(), be, "rep", "")
	if b1 != b2 {
		t.Fatalf("expected cached board")
	}
	reg.Drop("rep")
	b3, _ := reg.Get(context.Background(), be, "rep", "")
	if b3 == b1 {
		t.Fatalf("expected fresh board after drop")
	}
}

func TestBoards_DropPipelineEvictsEveryViewer(t *testing.T) {
	be := &fakeBackend{pipelines: []Pipeline{testPipeline()}}
	reg := NewBoards()
	b1, err := reg.Get(context.Background(), be, "rep", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := reg.DropPipeline("unrelated"); len(got) != 0 {
		t.Fatalf("expected nothing dropped, got %v", got)
	}
	if got := reg.DropPipeline(testPipeline().ID); !reflect.DeepEqual(got, []string{"rep"}) {
		t.Fatalf("expected rep dropped, got %v", got)
	}
	if b2, _ := reg.Get(context.Background(), be, "rep", ""); b2 == b1 {
		t.Fatalf("expected fresh board after pipeline drop")
	}
}
