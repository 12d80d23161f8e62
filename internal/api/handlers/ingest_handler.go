package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/ingest"
	"github.com/support-agent/backend/pkg/logger"
)

type IngestHandler struct {
	ingestor *ingest.Ingestor
}

func NewIngestHandler(ingestor *ingest.Ingestor) *IngestHandler {
	return &IngestHandler{ingestor: ingestor}
}

type progressEvent struct {
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// HandleIngest runs ingestion synchronously and returns the collected
// progress events. Clients wanting live updates use the websocket
// endpoint instead; both drive the same cancellable operation.
func (h *IngestHandler) HandleIngest(c *fiber.Ctx) error {
	var req struct {
		Folder string `json:"folder"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Folder == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Folder is required",
		})
	}

	var events []progressEvent
	progress := func(current, total int, filename, status string) {
		events = append(events, progressEvent{
			Current:  current,
			Total:    total,
			Filename: filename,
			Status:   status,
		})
	}

	totalChunks, err := h.ingestor.Ingest(c.Context(), req.Folder, progress)
	if err != nil {
		logger.Error("Ingestion failed", zap.String("folder", req.Folder), zap.Error(err))

		status := fiber.StatusInternalServerError
		if errors.Is(err, ingest.ErrInvalidInput) || errors.Is(err, ingest.ErrNoSupportedFiles) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"error":  err.Error(),
			"events": events,
		})
	}

	return c.JSON(fiber.Map{
		"collection":   h.ingestor.Collection(),
		"total_chunks": totalChunks,
		"events":       events,
	})
}
