package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/reports"
	"medical-booking-server/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatsHandler serves the admin dashboard.
type StatsHandler struct {
	Stats StatsProvider
	now   func() time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats StatsProvider) *StatsHandler {
	return &StatsHandler{Stats: stats, now: time.Now}
}

// StatsQuery sets how many trailing days the per-day series covers.
type StatsQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=366"`
}

// GetStats returns the dashboard numbers as JSON.
func (h *StatsHandler) GetStats(c *gin.Context) {
	var q StatsQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	stats, err := h.Stats.Overview(c.Request.Context(), q.Days)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Stats fetched successfully", stats)
}

// ExportStats returns the dashboard numbers as an XLSX workbook.
func (h *StatsHandler) ExportStats(c *gin.Context) {
	var q StatsQuery
	if !utils.BindQuery(c, &q) {
		return
	}
	stats, err := h.Stats.Overview(c.Request.Context(), q.Days)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	now := h.now()
	body, err := reports.StatsWorkbook(stats, now)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.File(c, fmt.Sprintf("stats-%s.xlsx", now.Format("20060102")), xlsxContentType, body)
}

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the database and the key-value store answer.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler creates a HealthHandler probing each named dependency.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health answers 200 when every dependency responds and 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "UP"
	components := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			_ = c.Error(fmt.Errorf("health %s: %w", name, err))
			components[name] = "DOWN"
			status = "DOWN"
			continue
		}
		components[name] = "UP"
	}

	code := http.StatusOK
	if status != "UP" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "components": components})
}
