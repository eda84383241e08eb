package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/analytics"
	"github.com/hr-assistant/backend/pkg/logger"
)

type AnalyticsHandler struct {
	analytics *analytics.Service
}

func NewAnalyticsHandler(a *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: a}
}

func (h *AnalyticsHandler) GetOverview(c *fiber.Ctx) error {
	overview, err := h.analytics.Overview(c.Context())
	if err != nil {
		logger.Error("Failed to build analytics overview", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build analytics overview",
		})
	}

	return c.JSON(fiber.Map{
		"total_queries":           overview.TotalQueries,
		"queries_today":           overview.QueriesToday,
		"avg_confidence":          overview.AvgConfidence,
		"escalation_rate":         overview.EscalationRate,
		"avg_response_time_ms":    overview.AvgResponseTimeMS,
		"pending_escalations":     overview.PendingEscalations,
		"active_employees":        overview.ActiveEmployees,
		"category_distribution":   overview.CategoryDistribution,
		"department_distribution": overview.DepartmentDistribution,
	})
}

func (h *AnalyticsHandler) GetCategories(c *fiber.Ctx) error {
	overview, err := h.analytics.Overview(c.Context())
	if err != nil {
		logger.Error("Failed to load category distribution", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load category distribution",
		})
	}

	return c.JSON(fiber.Map{
		"category_distribution": overview.CategoryDistribution,
	})
}

func (h *AnalyticsHandler) GetTrends(c *fiber.Ctx) error {
	days := c.QueryInt("days", 14)

	trends, err := h.analytics.DailyTrends(c.Context(), days)
	if err != nil {
		logger.Error("Failed to load daily trends", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load daily trends",
		})
	}

	out := make([]fiber.Map, 0, len(trends))
	for _, t := range trends {
		out = append(out, fiber.Map{
			"date":        t.Date,
			"queries":     t.Queries,
			"escalations": t.Escalations,
		})
	}

	return c.JSON(fiber.Map{
		"daily_trends": out,
	})
}

func (h *AnalyticsHandler) GetPendingEscalations(c *fiber.Ctx) error {
	escalations, err := h.analytics.PendingEscalations(c.Context())
	if err != nil {
		logger.Error("Failed to load pending escalations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load pending escalations",
		})
	}

	pending := make([]fiber.Map, 0, len(escalations))
	for _, esc := range escalations {
		pending = append(pending, fiber.Map{
			"id":              esc.ID,
			"session_id":      esc.SessionID,
			"employee_id":     esc.EmployeeID,
			"department":      esc.Department,
			"escalation_type": esc.EscalationType,
			"priority":        esc.Priority,
			"status":          esc.Status,
			"created_at":      esc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"pending": pending,
		"total":   len(pending),
	})
}

type resolveEscalationRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

func (h *AnalyticsHandler) ResolveEscalation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid escalation id",
		})
	}

	var req resolveEscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.analytics.ResolveEscalation(c.Context(), id, req.ResolutionNotes); err != nil {
		logger.Error("Failed to resolve escalation", zap.Int("escalation_id", id), zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":        "success",
		"escalation_id": id,
		"resolved_at":   time.Now().UTC().Format(time.RFC3339),
	})
}
