package handlers

import (
	"errors"
	"net/http"

	"telegram_miniapp/internal/http/middleware"
	"telegram_miniapp/internal/logger"
	"telegram_miniapp/internal/repository"

	"github.com/gin-gonic/gin"
)

// Me returns the caller's identity and, when stored, their profile.
// Login history is only included for identities that cannot be forged.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	ctx := c.Request.Context()
	log := logger.WithContext(ctx)
	source := middleware.IdentitySource(c)

	resp := gin.H{
		"id":     userID,
		"source": source,
		"signed": h.Sessions.Signed(),
	}
	if tgUser, ok := middleware.TelegramUser(c); ok {
		resp["user"] = tgUser
	}

	if h.Users != nil {
		if source == middleware.SourceSession {
			if err := h.Users.Touch(ctx, userID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
				log.Warn("failed to update last seen", "tg_id", userID, "error", err)
			}
		}

		user, err := h.Users.GetByTgID(ctx, userID)
		switch {
		case err == nil:
			resp["profile"] = user
		case errors.Is(err, repository.ErrUserNotFound):
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
			return
		}
	}

	trusted := source == middleware.SourceInitData || h.Sessions.Signed()
	if !trusted {
		c.JSON(http.StatusOK, resp)
		return
	}
	if logins, err := h.Audit.RecentLogins(ctx, userID, 5); err != nil {
		log.Warn("failed to load login history", "tg_id", userID, "error", err)
	} else if len(logins) > 0 {
		resp["recentLogins"] = logins
	}

	c.JSON(http.StatusOK, resp)
}
