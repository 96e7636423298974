package main

import (
	"contract-sender/internal/audit"
	"contract-sender/internal/auth"
	"contract-sender/internal/backend"
	"contract-sender/internal/config"
	"contract-sender/internal/httpapi"
	"contract-sender/internal/pipeline"
	"contract-sender/internal/reporting"
	"contract-sender/internal/sms"
	"contract-sender/internal/telephony"
	"contract-sender/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, d *deps, authManager *auth.Manager) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
	}))
	r.Use(metrics.Middleware())
	r.GET("/metrics", metrics.Handler())

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	client.CallLogLimit = cfg.Backend.CallLogLimit

	h := &httpapi.Handlers{
		Auth:          authManager,
		Backend:       client,
		Reports:       reporting.NewService(client),
		Boards:        pipeline.NewBoards(pipeline.WithGuard(d.guard)),
		Trackers:      sms.NewTrackers(),
		Dialers:       telephony.NewDialers(client),
		Bus:           d.bus,
		Audit:         audit.NewService(d.activity),
		PollInterval:  cfg.Confirmation.PollInterval,
		WebhookSecret: cfg.Confirmation.WebhookSecret,
		Checks:        d.checks(),
	}
	httpapi.Register(r, h, auth.RequireAccessToken(authManager))
}
