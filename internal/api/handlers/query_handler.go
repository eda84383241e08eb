package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/analytics"
	"github.com/hr-assistant/backend/internal/pipeline"
	"github.com/hr-assistant/backend/internal/storage/models"
	"github.com/hr-assistant/backend/pkg/logger"
)

type QueryHandler struct {
	pipeline  *pipeline.Pipeline
	analytics *analytics.Service
}

func NewQueryHandler(p *pipeline.Pipeline, a *analytics.Service) *QueryHandler {
	return &QueryHandler{
		pipeline:  p,
		analytics: a,
	}
}

type queryRequest struct {
	Query      string `json:"query"`
	EmployeeID string `json:"employee_id"`
	Department string `json:"department"`
	Role       string `json:"role"`
	SessionID  string `json:"session_id"`
}

// HandleQuery runs one query through the resolution pipeline. The
// pipeline always yields a verdict, so this endpoint only fails on a
// malformed request.
func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req queryRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	resolution, err := h.pipeline.Resolve(c.Context(), pipeline.Query{
		Text:       req.Query,
		EmployeeID: req.EmployeeID,
		Department: req.Department,
		Role:       req.Role,
		SessionID:  req.SessionID,
	})
	if err != nil {
		logger.Error("Failed to process query", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	body := fiber.Map{
		"session_id":        resolution.SessionID,
		"query":             resolution.Query,
		"response":          resolution.Response,
		"category":          resolution.Category,
		"confidence":        resolution.Confidence,
		"escalated":         resolution.Verdict.Escalated,
		"escalation_reason": resolution.Verdict.Reason,
		"sources":           resolution.Sources,
		"response_time_ms":  resolution.ResponseTimeMS,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	}
	if resolution.LoggingFailed {
		// Degraded success: the answer stands but the audit write did
		// not land.
		body["warning"] = "analytics logging unavailable; this interaction was not recorded"
	}

	return c.JSON(body)
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	employeeID := c.Query("employee_id")
	if employeeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "employee_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)

	records, err := h.analytics.QueryHistory(c.Context(), employeeID, limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	history := make([]fiber.Map, 0, len(records))
	for _, rec := range records {
		history = append(history, fiber.Map{
			"session_id":        rec.SessionID,
			"query":             rec.QueryText,
			"category":          rec.Category,
			"confidence":        rec.Confidence,
			"escalated":         rec.Escalated,
			"escalation_reason": rec.EscalationReason,
			"created_at":        rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"history": history,
	})
}

type feedbackRequest struct {
	SessionID    string `json:"session_id"`
	Satisfied    bool   `json:"satisfied"`
	FeedbackText string `json:"feedback_text"`
}

func (h *QueryHandler) SubmitFeedback(c *fiber.Ctx) error {
	var req feedbackRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	err := h.analytics.SubmitFeedback(c.Context(), &models.Feedback{
		SessionID:    req.SessionID,
		Satisfied:    req.Satisfied,
		FeedbackText: req.FeedbackText,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		logger.Error("Failed to record feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record feedback",
		})
	}

	return c.JSON(fiber.Map{
		"status":     "success",
		"session_id": req.SessionID,
	})
}
