package httpapi

import (
	"context"
	"net/http"

	"contract-sender/internal/audit"
	"contract-sender/internal/leads"
	"contract-sender/internal/pipeline"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) board(c *gin.Context) (*pipeline.Board, bool) {
	id, ok := identity(c)
	if !ok {
		return nil, false
	}
	b, err := h.Boards.Get(c.Request.Context(), h.Backend, id.UserID, id.Email)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return b, true
}

// Board returns the caller's pipeline board.
func (h *Handlers) Board(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b.Snapshot())
}

// ReloadBoard drops the cached board and fetches it again.
func (h *Handlers) ReloadBoard(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	b, err := h.Boards.Reload(c.Request.Context(), h.Backend, id.UserID, id.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b.Snapshot())
}

func (h *Handlers) DragStart(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	b.DragStart(c.Param("lead_id"))
	c.JSON(http.StatusOK, gin.H{"dragging": b.Dragging()})
}

func (h *Handlers) DragCancel(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	b.DragCancel()
	c.Status(http.StatusNoContent)
}

type dropRequest struct {
	StageID string `json:"stage_id"`
	LeadID  string `json:"over_lead_id"`
}

// Drop completes a drag onto a stage column or onto another card.
func (h *Handlers) Drop(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	b, ok := h.board(c)
	if !ok {
		return
	}
	var req dropRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.StageID == "" && req.LeadID == "") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "stage_id or over_lead_id required"})
		return
	}

	leadID := c.Param("lead_id")
	from, _, _ := b.LeadsByStage().Locate(leadID)
	out, err := b.DragEnd(c.Request.Context(), leadID, pipeline.DropTarget{StageID: req.StageID, LeadID: req.LeadID})
	if err != nil {
		respondError(c, err)
		return
	}
	if out == pipeline.OutcomeMoved {
		to, _, _ := b.LeadsByStage().Locate(leadID)
		h.record(func(s *audit.Service) {
			s.LeadMoved(context.WithoutCancel(c.Request.Context()), actor(c, id), b.Pipeline().ID, leadID, from, to)
		})
	}
	c.JSON(http.StatusOK, gin.H{"outcome": out, "board": b.Snapshot()})
}

// EditForm seeds the edit form for a lead on the board.
func (h *Handlers) EditForm(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	form, err := b.BeginEdit(c.Param("lead_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// UpdateLead submits an edit and returns the patched lead.
func (h *Handlers) UpdateLead(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	b, ok := h.board(c)
	if !ok {
		return
	}
	var u leads.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	leadID := c.Param("lead_id")
	lead, err := b.SubmitEdit(c.Request.Context(), leadID, u)
	if err != nil {
		respondError(c, err)
		return
	}
	h.record(func(s *audit.Service) {
		s.LeadUpdated(context.WithoutCancel(c.Request.Context()), actor(c, id), leadID)
	})
	c.JSON(http.StatusOK, lead)
}

// CompanyInfo looks an organisation number up in the company registry and
// returns it shaped as a lead.
func (h *Handlers) CompanyInfo(c *gin.Context) {
	company, err := h.Backend.CompanyInfo(c.Request.Context(), c.Param("org_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company, "lead": company.Lead()})
}

// UpdatePipeline is the admin edit of a pipeline definition. Cached boards
// are dropped so representatives pick the change up on next load.
func (h *Handlers) UpdatePipeline(c *gin.Context) {
	var p pipeline.Pipeline
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p.ID = c.Param("pipeline_id")
	if err := h.Backend.UpdatePipeline(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	h.Boards.DropPipeline(p.ID)
	if p.AssignedUserID != "" {
		h.Boards.Drop(p.AssignedUserID)
	}
	c.JSON(http.StatusOK, p)
}
