package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/ingestion"
	"github.com/hr-assistant/backend/pkg/logger"
)

type DocumentHandler struct {
	processor *ingestion.Processor
}

func NewDocumentHandler(processor *ingestion.Processor) *DocumentHandler {
	return &DocumentHandler{
		processor: processor,
	}
}

type ingestRequest struct {
	Filename     string `json:"filename"`
	Content      string `json:"content"`
	DocumentType string `json:"document_type"`
	Category     string `json:"category"`
}

// IngestDocument accepts a policy document and indexes it. Gated to
// roles with the document-management capability.
func (h *DocumentHandler) IngestDocument(c *fiber.Ctx) error {
	var req ingestRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Filename == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Filename and content are required",
		})
	}

	if req.DocumentType == "" {
		req.DocumentType = "policy"
	}

	chunks, err := h.processor.ProcessDocument(c.Context(), req.Filename, req.Content, req.DocumentType, req.Category)
	if err != nil {
		logger.Error("Failed to process document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process document",
		})
	}

	return c.JSON(fiber.Map{
		"status":   "success",
		"filename": req.Filename,
		"chunks":   chunks,
	})
}

func (h *DocumentHandler) GetDocumentStats(c *fiber.Ctx) error {
	documents, chunks, err := h.processor.Stats(c.Context())
	if err != nil {
		logger.Error("Failed to load document stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load document stats",
		})
	}

	return c.JSON(fiber.Map{
		"documents": documents,
		"chunks":    chunks,
	})
}
