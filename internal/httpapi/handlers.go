package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"contract-sender/internal/audit"
	"contract-sender/internal/auth"
	"contract-sender/internal/backend"
	"contract-sender/internal/leads"
	"contract-sender/internal/notify"
	"contract-sender/internal/pipeline"
	"contract-sender/internal/reporting"
	"contract-sender/internal/sms"
	"contract-sender/internal/telephony"
	"contract-sender/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Backend is the part of the CRM backend client the console API calls.
// *backend.Client satisfies it.
type Backend interface {
	pipeline.Backend
	reporting.Repository
	sms.Source
	telephony.CallLogSource

	ListSMSRecords(ctx context.Context) ([]sms.Record, error)
	DeleteSMS(ctx context.Context, id string) error
	SendSMS(ctx context.Context, msg sms.Outbound) (sms.Record, error)
	SMSSettings(ctx context.Context) (sms.Settings, error)
	UpdatePipeline(ctx context.Context, p pipeline.Pipeline) error
	CompanyInfo(ctx context.Context, orgNumber string) (leads.Company, error)
}

var _ Backend = (*backend.Client)(nil)

// Handlers holds what the console API handlers share. Per-user view state
// lives in Boards, Trackers and Dialers; Audit is optional.
type Handlers struct {
	Auth     *auth.Manager
	Backend  Backend
	Reports  *reporting.Service
	Boards   *pipeline.Boards
	Trackers *sms.Trackers
	Dialers  *telephony.Dialers
	Bus      notify.Bus
	Audit    *audit.Service

	// PollInterval drives the confirmation poller of each event stream.
	PollInterval time.Duration
	// WebhookSecret must match X-Webhook-Secret on the confirmation webhook.
	WebhookSecret string

	// Checks run by Health; each returns nil when its dependency is up.
	Checks map[string]func(context.Context) error

	Clock func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// ForwardToken makes the caller's bearer token ride on the request context
// so backend calls are made on their behalf. Mount after RequireAccessToken.
func ForwardToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := auth.FromContext(c.Request.Context()); err == nil {
			c.Request = c.Request.WithContext(backend.WithToken(c.Request.Context(), id.Token))
		}
		c.Next()
	}
}

func identity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.FromContext(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return auth.Identity{}, false
	}
	return id, true
}

func actor(c *gin.Context, id auth.Identity) audit.Actor {
	return audit.Actor{UserID: id.UserID, Email: id.Email, Role: id.Role, IP: c.ClientIP()}
}

// record runs fn against the activity log when one is wired.
func (h *Handlers) record(fn func(*audit.Service)) {
	if h.Audit != nil {
		fn(h.Audit)
	}
}

// respondError maps domain and backend errors onto HTTP statuses.
// Backend errors keep the backend's status and message.
func respondError(c *gin.Context, err error) {
	var (
		apiErr  *backend.APIError
		leadErr *leads.ValidationError
		sendErr *sms.ValidationError
	)
	switch {
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		c.AbortWithStatusJSON(status, gin.H{"error": apiErr.Message})
	case errors.As(err, &leadErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid lead", "fields": leadErr.Fields})
	case errors.As(err, &sendErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid sms", "fields": sendErr.Fields})
	case errors.Is(err, reporting.ErrInvalidRange),
		errors.Is(err, pipeline.ErrUnknownStage),
		errors.Is(err, telephony.ErrNoNumber),
		errors.Is(err, notify.ErrUnknownEvent):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrMissingPipelineItem),
		errors.Is(err, pipeline.ErrMoveInFlight),
		errors.Is(err, telephony.ErrBusy),
		errors.Is(err, telephony.ErrDialing):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNoPipeline),
		errors.Is(err, pipeline.ErrLeadNotOnBoard):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, telephony.ErrNoProvider):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("upstream request failed", "error", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
	}
	_ = c.Error(err)
}

// --- Health ---

func (h *Handlers) Health(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.Checks {
		if err := check(c.Request.Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	body := gin.H{"status": "ok", "deps": deps}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// --- Auth ---

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a new pair.
func (h *Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, _, err := h.Auth.Refresh(req.RefreshToken, h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *Handlers) Me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "email": id.Email, "role": id.Role})
}

// Activity lists activity log events, newest first.
func (h *Handlers) Activity(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "activity log not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.Audit.List(c.Request.Context(), audit.Filter{
		ActorUserID: c.Query("user_id"),
		LeadID:      c.Query("lead_id"),
		Type:        audit.EventType(c.Query("type")),
		Limit:       limit,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "activity lookup failed"})
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
