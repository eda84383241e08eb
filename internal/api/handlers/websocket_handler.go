package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/pipeline"
	"github.com/hr-assistant/backend/pkg/logger"
)

// WebSocketHandler streams query resolutions over a socket. Same
// pipeline as the REST endpoint; only the answer delivery differs.
type WebSocketHandler struct {
	pipeline *pipeline.Pipeline
}

func NewWebSocketHandler(p *pipeline.Pipeline) *WebSocketHandler {
	return &WebSocketHandler{pipeline: p}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type       string `json:"type"`
			Content    string `json:"content"`
			EmployeeID string `json:"employee_id"`
			Department string `json:"department"`
			Role       string `json:"role"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "query" {
			continue
		}

		err = h.streamResolution(c, pipeline.Query{
			Text:       msg.Content,
			EmployeeID: msg.EmployeeID,
			Department: msg.Department,
			Role:       msg.Role,
		})
		if err != nil {
			logger.Error("Failed to stream resolution", zap.Error(err))
			h.sendError(c, "Failed to process query")
		}
	}
}

func (h *WebSocketHandler) streamResolution(c *websocket.Conn, query pipeline.Query) error {
	h.sendFrame(c, "status", "Processing query...")

	resolution, err := h.pipeline.Resolve(context.Background(), query)
	if err != nil {
		return err
	}

	words := strings.Fields(resolution.Response)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.sendFrame(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":              "complete",
		"session_id":        resolution.SessionID,
		"category":          resolution.Category,
		"confidence":        resolution.Confidence,
		"escalated":         resolution.Verdict.Escalated,
		"escalation_reason": resolution.Verdict.Reason,
		"sources":           resolution.Sources,
		"response_time_ms":  resolution.ResponseTimeMS,
	})
}

func (h *WebSocketHandler) sendFrame(c *websocket.Conn, frameType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    frameType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
