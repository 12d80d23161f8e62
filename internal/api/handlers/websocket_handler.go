package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/ingest"
	"github.com/support-agent/backend/pkg/logger"
)

// WebSocketHandler streams ingestion progress events to the client as
// they happen. The connection closing cancels the ingestion between
// files.
type WebSocketHandler struct {
	ingestor *ingest.Ingestor
}

func NewWebSocketHandler(ingestor *ingest.Ingestor) *WebSocketHandler {
	return &WebSocketHandler{ingestor: ingestor}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type   string `json:"type"`
			Folder string `json:"folder"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Failed to read WebSocket message", zap.Error(err))
			}
			return
		}

		if msg.Type != "ingest" {
			continue
		}

		h.streamIngestion(c, msg.Folder)
	}
}

func (h *WebSocketHandler) streamIngestion(c *websocket.Conn, folder string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := func(current, total int, filename, status string) {
		err := c.WriteJSON(map[string]interface{}{
			"type":     "progress",
			"current":  current,
			"total":    total,
			"filename": filename,
			"status":   status,
		})
		if err != nil {
			// Client went away; stop at the next between-files checkpoint.
			cancel()
		}
	}

	totalChunks, err := h.ingestor.Ingest(ctx, folder, progress)
	if err != nil {
		logger.Error("WebSocket ingestion failed", zap.String("folder", folder), zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return
		}
		c.WriteJSON(map[string]interface{}{
			"type":  "error",
			"error": err.Error(),
		})
		return
	}

	c.WriteJSON(map[string]interface{}{
		"type":         "complete",
		"collection":   h.ingestor.Collection(),
		"total_chunks": totalChunks,
	})
}
