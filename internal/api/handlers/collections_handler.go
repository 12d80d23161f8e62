package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/vector"
	"github.com/support-agent/backend/pkg/logger"
)

// CollectionsHandler exposes the administrative index operations.
// Unlike the query path, connectivity errors here surface to the caller.
type CollectionsHandler struct {
	index vector.Index
}

func NewCollectionsHandler(index vector.Index) *CollectionsHandler {
	return &CollectionsHandler{index: index}
}

func (h *CollectionsHandler) List(c *fiber.Ctx) error {
	names, err := h.index.List(c.Context())
	if err != nil {
		logger.Error("Failed to list collections", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"collections": names,
	})
}

func (h *CollectionsHandler) Count(c *fiber.Ctx) error {
	name := vector.NormalizeName(c.Params("name"))

	count, err := h.index.Count(c.Context(), name)
	if err != nil {
		logger.Error("Failed to count collection", zap.String("collection", name), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"collection": name,
		"count":      count,
	})
}

func (h *CollectionsHandler) Delete(c *fiber.Ctx) error {
	name := vector.NormalizeName(c.Params("name"))

	if err := h.index.Delete(c.Context(), name); err != nil {
		logger.Error("Failed to delete collection", zap.String("collection", name), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"deleted": name,
	})
}

func (h *CollectionsHandler) GetChunk(c *fiber.Ctx) error {
	name := vector.NormalizeName(c.Params("name"))
	id := c.Params("id")

	records, err := h.index.GetByIDs(c.Context(), name, []string{id})
	if err != nil {
		logger.Error("Failed to get chunk", zap.String("chunk_id", id), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if len(records) == 0 || records[0] == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Chunk not found",
		})
	}

	rec := records[0]
	return c.JSON(fiber.Map{
		"id":       rec.ID,
		"document": rec.Text,
		"metadata": rec.Metadata,
	})
}
