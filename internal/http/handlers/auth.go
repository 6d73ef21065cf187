package handlers

import (
	"errors"
	"net/http"

	"telegram_miniapp/internal/logger"
	"telegram_miniapp/internal/service"
	"telegram_miniapp/internal/telegram"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"initData"`
}

type AuthResponse struct {
	Success      bool           `json:"success"`
	User         *telegram.User `json:"user"`
	SessionToken string         `json:"sessionToken"`
	AuthDate     int64          `json:"authDate"`
}

// TelegramAuth validates init data and exchanges it for a session token.
func (h *Handler) TelegramAuth(c *gin.Context) {
	log := logger.WithContext(c.Request.Context())

	var req AuthRequest
	// a missing or non-JSON body is the same as an empty initData
	_ = c.ShouldBindJSON(&req)

	raw := service.ExtractInitData(c.GetHeader(service.InitDataHeader), req.InitData)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "initData is required"})
		return
	}
	if len(raw) > h.cfg.InitDataMaxLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "initData is too long"})
		return
	}

	data, err := h.Auth.Validate(raw)
	switch {
	case errors.Is(err, telegram.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		return
	case err != nil:
		reason := telegram.Reason(err)
		h.Audit.LogRejected(c.Request.Context(), reason, c.ClientIP(), c.Request.UserAgent())
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid Telegram data",
			"details": reason,
		})
		return
	}

	if data.User == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User data not found"})
		return
	}

	token, err := h.Sessions.Issue(data.User.ID)
	if err != nil {
		service.SessionTokens.WithLabelValues("issue", "error").Inc()
		log.Error("session token issue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	service.SessionTokens.WithLabelValues("issue", "ok").Inc()

	if h.Users != nil {
		if _, err := h.Users.Upsert(c.Request.Context(), data.User); err != nil {
			// profile tracking is best effort; auth already succeeded
			log.Warn("failed to record user", "tg_id", data.User.ID, "error", err)
		}
	}

	h.Audit.LogLogin(c.Request.Context(), data.User.ID, c.ClientIP(), c.Request.UserAgent(), h.Sessions.Signed())
	log.Debug("telegram user authenticated", "tg_id", data.User.ID, "username", data.User.Username)

	c.JSON(http.StatusOK, AuthResponse{
		Success:      true,
		User:         data.User,
		SessionToken: token,
		AuthDate:     data.AuthDate,
	})
}

// TelegramAuthStatus reports whether validation is configured. Disabled in
// production.
func (h *Handler) TelegramAuthStatus(c *gin.Context) {
	if h.cfg.Production {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not available in production"})
		return
	}

	botUsername := h.cfg.BotUsername
	if botUsername == "" {
		botUsername = "Not set"
	}
	message := "Bot token is missing"
	if h.Auth.Configured() {
		message = "Bot token is configured"
	}

	c.JSON(http.StatusOK, gin.H{
		"configured":    h.Auth.Configured(),
		"botUsername":   botUsername,
		"message":       message,
		"signedSession": h.Sessions.Signed(),
	})
}
