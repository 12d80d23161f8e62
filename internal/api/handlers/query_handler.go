package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/agent"
	"github.com/support-agent/backend/internal/history"
	"github.com/support-agent/backend/pkg/logger"
)

type QueryHandler struct {
	agent   *agent.Agent
	history *history.Store
}

func NewQueryHandler(a *agent.Agent, store *history.Store) *QueryHandler {
	return &QueryHandler{agent: a, history: store}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

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

	answer := h.agent.Answer(c.Context(), req.Query)

	return c.JSON(answer)
}

func (h *QueryHandler) GetHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	records, err := h.history.Recent(limit)
	if err != nil {
		logger.Error("Failed to read history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
