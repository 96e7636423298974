package httpapi

import (
	"contract-sender/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register mounts the console API on r. authMW verifies access tokens;
// admin passes every role gate.
func Register(r gin.IRouter, h *Handlers, authMW gin.HandlerFunc) {
	r.GET("/healthz", h.Health)
	r.POST("/v1/auth/refresh", h.Refresh)

	// Backend-to-console webhook, authenticated by shared secret.
	if h.WebhookSecret != "" {
		r.POST("/internal/sms/confirmations", h.ConfirmationWebhook)
	}

	v1 := r.Group("/v1")
	v1.Use(authMW, ForwardToken())
	v1.GET("/me", h.Me)

	sales := v1.Group("")
	sales.Use(rbac.RequireAnyRole(rbac.RoleSales))
	{
		sales.GET("/leads/company/:org_number", h.CompanyInfo)

		sales.GET("/pipeline", h.Board)
		sales.POST("/pipeline/reload", h.ReloadBoard)
		sales.DELETE("/pipeline/drag", h.DragCancel)
		sales.POST("/pipeline/leads/:lead_id/drag", h.DragStart)
		sales.POST("/pipeline/leads/:lead_id/drop", h.Drop)
		sales.GET("/pipeline/leads/:lead_id/edit", h.EditForm)
		sales.PUT("/pipeline/leads/:lead_id", h.UpdateLead)

		sales.POST("/sms/preview", h.PreviewSMS)
		sales.POST("/sms", h.SendSMS)
		sales.GET("/sms/mine", h.MyRecords)
		sales.GET("/sms/settings", h.SMSSettings)
		sales.GET("/sms/events", h.Events)

		sales.POST("/calls", h.MakeCall)
		sales.DELETE("/calls/current", h.EndCall)
		sales.GET("/calls/state", h.CallState)
	}

	admin := v1.Group("/admin")
	admin.Use(rbac.RequireAdmin())
	{
		admin.GET("/kpis", h.KPIs)
		admin.GET("/kpis/export", h.ExportKPIs)
		admin.GET("/users", h.Users)
		admin.GET("/sms", h.AdminSMSRecords)
		admin.DELETE("/sms/:sms_id", h.DeleteSMS)
		admin.PUT("/pipelines/:pipeline_id", h.UpdatePipeline)
		admin.GET("/activity", h.Activity)
	}
}
