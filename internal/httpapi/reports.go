package httpapi

import (
	"net/http"

	"contract-sender/internal/reporting"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// KPIs returns the admin KPI report for ?range= (default 30).
func (h *Handlers) KPIs(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportKPIs returns the same report as an xlsx attachment.
func (h *Handlers) ExportKPIs(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	data, err := reporting.ExportXLSX(report)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+reporting.ExportFilename(report)+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handlers) report(c *gin.Context) (reporting.KPIReport, bool) {
	r, err := reporting.ParseRange(c.DefaultQuery("range", "30"))
	if err != nil {
		respondError(c, err)
		return reporting.KPIReport{}, false
	}
	report, err := h.Reports.Report(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return reporting.KPIReport{}, false
	}
	return report, true
}

// Users lists the roster.
func (h *Handlers) Users(c *gin.Context) {
	list, err := h.Backend.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}
