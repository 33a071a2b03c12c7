package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/felipe/zapgateway/internal/db"
	"github.com/felipe/zapgateway/internal/wa"
)

// HealthHandler responde o estado do processo
type HealthHandler struct {
	db         *db.DB
	supervisor *wa.Supervisor
	startedAt  time.Time
}

func NewHealthHandler(database *db.DB, supervisor *wa.Supervisor) *HealthHandler {
	return &HealthHandler{
		db:         database,
		supervisor: supervisor,
		startedAt:  time.Now(),
	}
}

// Health é o corpo de GET /api/health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := "ok"
	if err := h.db.Health(c.Context()); err != nil {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":          status,
		"uptime":          time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp":       time.Now().Unix(),
		"active_sessions": h.supervisor.ActiveSessions(),
	})
}
