package httpapi

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"time"

	"contract-sender/internal/audit"
	"contract-sender/internal/notify"
	"contract-sender/internal/sms"
	"contract-sender/internal/smstemplate"
	"contract-sender/internal/telephony"
	"contract-sender/pkg/logger"
	"contract-sender/pkg/metrics"

	"github.com/gin-gonic/gin"
)

const (
	headerWebhookSecret = "X-Webhook-Secret"
	eventConfirmed      = "contract_confirmed"
	eventPing           = "ping"
	pingInterval        = 25 * time.Second
	callProbeInterval   = 3 * time.Second
	callProbeWindow     = 50
)

// PreviewSMS renders a template without sending it.
func (h *Handlers) PreviewSMS(c *gin.Context) {
	var req sms.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	c.JSON(http.StatusOK, smstemplate.Render(req.Template, req.Context(h.now())))
}

// SendSMS validates, renders and sends a templated SMS. Validation failures
// never reach the backend.
func (h *Handlers) SendSMS(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req sms.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, rendered, err := req.Build(h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	rec, err := h.Backend.SendSMS(c.Request.Context(), out)
	if err != nil {
		respondError(c, err)
		return
	}
	if rec.PhoneNumber == "" {
		rec.PhoneNumber = out.PhoneNumber
	}
	if rec.ProcessedMessage == "" {
		rec.ProcessedMessage = out.Message
	}
	if rec.UserID == "" {
		rec.UserID = id.UserID
	}
	h.Trackers.For(id.UserID).Add(rec)
	h.record(func(s *audit.Service) {
		s.SMSSent(context.WithoutCancel(c.Request.Context()), actor(c, id), rec.ID, out.LeadID)
	})
	c.JSON(http.StatusCreated, gin.H{"record": rec, "rendered": rendered})
}

// MyRecords refreshes and returns the caller's sent records, newest first.
func (h *Handlers) MyRecords(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	tracker := h.Trackers.For(id.UserID)
	p := sms.NewPoller(h.Backend, tracker, h.PollInterval)
	p.OnConfirmed = h.confirmedAudit(c, id.UserID, "poll")
	if err := p.Poll(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": tracker.Records()})
}

func (h *Handlers) SMSSettings(c *gin.Context) {
	s, err := h.Backend.SMSSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// AdminSMSRecords lists every user's SMS records.
func (h *Handlers) AdminSMSRecords(c *gin.Context) {
	list, err := h.Backend.ListSMSRecords(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": list})
}

func (h *Handlers) DeleteSMS(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	smsID := c.Param("sms_id")
	if err := h.Backend.DeleteSMS(c.Request.Context(), smsID); err != nil {
		respondError(c, err)
		return
	}
	h.Trackers.For(id.UserID).Remove(smsID)
	h.record(func(s *audit.Service) {
		s.SMSDeleted(context.WithoutCancel(c.Request.Context()), actor(c, id), smsID)
	})
	c.Status(http.StatusNoContent)
}

func (h *Handlers) confirmedAudit(c *gin.Context, userID, channel string) func(sms.Record) {
	ip := c.ClientIP()
	ctx := context.WithoutCancel(c.Request.Context())
	return func(rec sms.Record) {
		h.record(func(s *audit.Service) {
			s.ContractConfirmed(ctx, audit.Actor{UserID: userID, IP: ip}, rec.ID, channel)
		})
	}
}

// Events streams contract confirmations to the browser as Server-Sent
// Events. Confirmations arrive through the push channel, through a poller
// running for the lifetime of the stream and through /sms/mine. All of them
// go through the user's tracker, and every open stream of that user
// announces each confirmed record once.
func (h *Handlers) Events(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	log := logger.FromGin(c)

	tracker := h.Trackers.For(id.UserID)
	watch, unwatch := tracker.Watch()
	defer unwatch()

	s := &stream{
		h:       h,
		tracker: tracker,
		watch:   watch,
		onPush:  h.confirmedAudit(c, id.UserID, "push"),
	}
	if h.Bus != nil {
		ch, unsubscribe, err := h.Bus.Subscribe(ctx, id.UserID)
		if err != nil {
			log.Warn("push subscribe failed, polling only", "error", err)
		} else {
			defer unsubscribe()
			s.push = ch
		}
	}

	p := sms.NewPoller(h.Backend, tracker, h.PollInterval)
	p.OnConfirmed = h.confirmedAudit(c, id.UserID, "poll")
	go p.Run(ctx)

	if h.Dialers != nil {
		go h.Dialers.For(id.UserID).Run(ctx, callProbeInterval, telephony.LogProbe(h.Backend, callProbeWindow))
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	s.ping = ping.C

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		event, data, ok := s.next(ctx)
		if !ok {
			return false
		}
		c.SSEvent(event, data)
		return true
	})
}

type stream struct {
	h       *Handlers
	tracker *sms.Tracker
	watch   *sms.Watch
	push    <-chan notify.Event
	ping    <-chan time.Time
	onPush  func(sms.Record)

	queued []sms.Record
}

// next blocks until there is an event for the browser. ok is false once
// ctx is done. Push events only feed the tracker; what the browser sees
// comes from the watch, so a confirmation applied by another session, the
// poller or /sms/mine is announced here as well.
func (s *stream) next(ctx context.Context) (event string, data any, ok bool) {
	var ready <-chan struct{}
	if s.watch != nil {
		ready = s.watch.Ready()
	}
	for {
		if len(s.queued) > 0 {
			rec := s.queued[0]
			s.queued = s.queued[1:]
			return eventConfirmed, rec, true
		}
		select {
		case <-ctx.Done():
			return "", nil, false
		case <-ready:
			s.queued = append(s.queued, s.watch.Drain()...)
		case ev, open := <-s.push:
			if !open {
				s.push = nil
				continue
			}
			rec, changed := s.tracker.Apply(ev.Confirmation(), s.h.now())
			if !changed {
				continue
			}
			metrics.ContractConfirmations.WithLabelValues("push").Inc()
			if s.onPush != nil {
				s.onPush(rec)
			}
		case t := <-s.ping:
			return eventPing, gin.H{"time": t.UTC()}, true
		}
	}
}

// ConfirmationWebhook receives contract confirmations from the backend and
// fans them out to the owning user's console sessions.
func (h *Handlers) ConfirmationWebhook(c *gin.Context) {
	secret := c.GetHeader(headerWebhookSecret)
	if h.WebhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.WebhookSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}
	if h.Bus == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "push channel not configured"})
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	ev, err := notify.Decode(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Bus.Publish(c.Request.Context(), ev); err != nil {
		logger.FromGin(c).Error("publish confirmation failed", "user_id", ev.UserID, "error", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "publish failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
