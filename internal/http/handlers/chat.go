package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"telegram_miniapp/internal/http/middleware"
	"telegram_miniapp/internal/logger"
	"telegram_miniapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type ChatRequest struct {
	Messages []service.ChatMessage `json:"messages"`
}

// Chat relays the conversation to the model upstream and streams its reply.
// Identity is resolved by middleware; an anonymous caller is allowed only
// under the advisory policy.
func (h *Handler) Chat(c *gin.Context) {
	log := logger.WithContext(c.Request.Context())

	var req ChatRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Messages array is required"})
		return
	}

	msgs, err := service.ToModelMessages(req.Messages)
	switch {
	case errors.Is(err, service.ErrNoMessages):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Messages array is required"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message", "details": err.Error()})
		return
	}

	if !h.Relay.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chat is not configured"})
		return
	}

	upstream := service.UpstreamRequest{Messages: msgs}
	if id, ok := middleware.UserID(c); ok {
		upstream.TelegramUserID = &id
		log = log.With("tg_id", id)
	}

	resp, err := h.Relay.Open(c.Request.Context(), upstream)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("chat upstream failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to process chat request"})
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Header("Content-Type", ct)
	}
	c.Header("Cache-Control", "no-cache")
	c.Status(resp.StatusCode)

	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				return
			}
			c.Writer.Flush()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && c.Request.Context().Err() == nil {
				log.Warn("chat stream interrupted", "error", err)
			}
			return
		}
	}
}
