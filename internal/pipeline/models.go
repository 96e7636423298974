package pipeline

import (
	"sort"
	"strings"

	"contract-sender/internal/leads"
	"contract-sender/internal/timestamp"
)

// Stage is one ordered step of a pipeline.
type Stage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
	Required bool   `json:"required"`
	Color    string `json:"color,omitempty"`
}

// Pipeline is an ordered workflow assigned to at most one representative.
type Pipeline struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	AssignedUserID    string `json:"assigned_user_id,omitempty"`
	AssignedUserEmail string `json:"assigned_user_email,omitempty"`

	Active bool    `json:"is_active"`
	Stages []Stage `json:"stages"`

	CreatedAt timestamp.Value `json:"created_at,omitempty"`
	UpdatedAt timestamp.Value `json:"updated_at,omitempty"`
}

// OrderedStages returns the stages left to right. Ties keep input order.
func (p Pipeline) OrderedStages() []Stage {
	out := make([]Stage, len(p.Stages))
	copy(out, p.Stages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (p Pipeline) HasStage(id string) bool {
	if id == "" {
		return false
	}
	for _, s := range p.Stages {
		if s.ID == id {
			return true
		}
	}
	return false
}

// AssignedTo matches by user id, then case-insensitively by email.
func (p Pipeline) AssignedTo(userID, email string) bool {
	if userID != "" && p.AssignedUserID == userID {
		return true
	}
	e := strings.TrimSpace(email)
	return e != "" && strings.EqualFold(strings.TrimSpace(p.AssignedUserEmail), e)
}

// Item is the server's record of a lead's position in a stage.
type Item struct {
	ID         string          `json:"id"`
	PipelineID string          `json:"pipeline_id"`
	StageID    string          `json:"stage_id"`
	LeadID     string          `json:"lead_id"`
	Position   int             `json:"position"`
	MovedAt    timestamp.Value `json:"moved_at,omitempty"`
	CreatedAt  timestamp.Value `json:"created_at,omitempty"`
}

// LeadsByStage mirrors server-side stage membership: stage id to the
// ordered leads believed to occupy it.
type LeadsByStage map[string][]leads.Lead

// Clone deep-copies the stage lists.
func (m LeadsByStage) Clone() LeadsByStage {
	out := make(LeadsByStage, len(m))
	for k, v := range m {
		cp := make([]leads.Lead, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Locate returns the stage containing leadID and its index there.
func (m LeadsByStage) Locate(leadID string) (stageID string, idx int, ok bool) {
	for sid, list := range m {
		for i, l := range list {
			if l.ID == leadID {
				return sid, i, true
			}
		}
	}
	return "", -1, false
}

// StageView is one rendered column.
type StageView struct {
	Stage Stage        `json:"stage"`
	Leads []leads.Lead `json:"leads"`
}

// View is a read-only snapshot of a board.
type View struct {
	Pipeline Pipeline    `json:"pipeline"`
	Stages   []StageView `json:"stages"`
	Dragging string      `json:"dragging,omitempty"`
	Editing  string      `json:"editing,omitempty"`
}
