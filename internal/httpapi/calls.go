package httpapi

import (
	"net/http"

	"contract-sender/internal/telephony"

	"github.com/gin-gonic/gin"
)

type makeCallRequest struct {
	PhoneNumber string `json:"phone_number"`
	LeadID      string `json:"lead_id,omitempty"`
}

// MakeCall opens the caller's line to a number. One call at a time.
func (h *Handlers) MakeCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req makeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	meta := map[string]string{"user_id": id.UserID}
	if req.LeadID != "" {
		meta["lead_id"] = req.LeadID
	}
	call, err := h.Dialers.For(id.UserID).Open(c.Request.Context(), req.PhoneNumber, meta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, call)
}

func (h *Handlers) EndCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Dialers.For(id.UserID).Close(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CallState reports whether the caller is in a call. An open call is
// probed against the call log first.
func (h *Handlers) CallState(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	d := h.Dialers.For(id.UserID)
	if call, open := d.Current(); open {
		live, err := telephony.LogProbe(h.Backend, callProbeWindow)(c.Request.Context(), call)
		if err != nil {
			respondError(c, err)
			return
		}
		if !live {
			d.Observe(false)
		}
	}
	body := gin.H{"in_call": d.InCall()}
	if call, open := d.Current(); open {
		body["call"] = call
	}
	c.JSON(http.StatusOK, body)
}
