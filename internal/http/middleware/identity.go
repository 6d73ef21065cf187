package middleware

import (
	"errors"
	"net/http"
	"strings"

	"telegram_miniapp/internal/config"
	"telegram_miniapp/internal/logger"
	"telegram_miniapp/internal/service"
	"telegram_miniapp/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Context keys set by Identity.
const (
	ctxUserID       = "user_id"
	ctxTelegramUser = "telegram_user"
	ctxSource       = "identity_source"
)

// Identity sources.
const (
	SourceSession  = "session"
	SourceInitData = "init_data"
)

// SessionHeader is the alternative to "Authorization: Bearer" for session tokens.
const SessionHeader = "X-Session-Token"

type IdentityOptions struct {
	// Auth validates init data. Nil means only session tokens are accepted.
	Auth     *service.TelegramAuthService
	Sessions service.SessionCodec
	Policy   config.AuthPolicy
	// BodyField names a JSON body field that may carry init data when the
	// header is absent. The body is cached so handlers can bind it again with
	// ShouldBindBodyWith.
	BodyField string
	MaxLength int
}

// Identity resolves who is calling: a session token first, then init data
// from the header or body. Under AuthAdvisory failures are logged and the
// request continues anonymously; under AuthRequired they end it with 401.
// An unsigned session token never satisfies AuthRequired.
func Identity(opts IdentityOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithContext(c.Request.Context())

		if token := sessionToken(c.Request); token != "" && opts.Sessions != nil {
			claims, err := opts.Sessions.Parse(token)
			switch {
			case err == nil && !opts.Sessions.Signed() && opts.Policy == config.AuthRequired:
				// Unsigned tokens can be forged from a user id alone.
				IdentityResolutions.WithLabelValues(SourceSession, "unsigned").Inc()
				service.SessionTokens.WithLabelValues("parse", "unsigned").Inc()
				log.Debug("unsigned session token ignored under required policy")
			case err == nil:
				IdentityResolutions.WithLabelValues(SourceSession, "ok").Inc()
				service.SessionTokens.WithLabelValues("parse", "ok").Inc()
				c.Set(ctxUserID, claims.UserID)
				c.Set(ctxSource, SourceSession)
				c.Next()
				return
			default:
				result := "invalid"
				if errors.Is(err, service.ErrSessionExpired) {
					result = "expired"
				}
				service.SessionTokens.WithLabelValues("parse", result).Inc()
				log.Debug("session token rejected", "error", err)
			}
		}

		raw := ""
		if opts.Auth != nil {
			raw = service.ExtractInitData(c.GetHeader(service.InitDataHeader), bodyInitData(c, opts.BodyField))
		}

		if raw == "" {
			IdentityResolutions.WithLabelValues("none", "missing").Inc()
			if opts.Policy == config.AuthRequired {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Telegram authentication required"})
				return
			}
			log.Warn("request without telegram identity", "path", c.FullPath())
			c.Next()
			return
		}

		if opts.MaxLength > 0 && len(raw) > opts.MaxLength {
			IdentityResolutions.WithLabelValues(SourceInitData, "too_long").Inc()
			if opts.Policy == config.AuthRequired {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "initData is too long"})
				return
			}
			log.Warn("init data too long, ignoring", "length", len(raw))
			c.Next()
			return
		}

		data, err := opts.Auth.Validate(raw)
		if err != nil {
			reason := telegram.Reason(err)
			IdentityResolutions.WithLabelValues(SourceInitData, reason).Inc()
			if opts.Policy == config.AuthRequired {
				status := http.StatusUnauthorized
				if errors.Is(err, telegram.ErrNotConfigured) {
					status = http.StatusInternalServerError
				}
				c.AbortWithStatusJSON(status, gin.H{"error": "Invalid Telegram data", "details": reason})
				return
			}
			log.Warn("invalid telegram init data, continuing anonymously", "reason", reason)
			c.Next()
			return
		}

		IdentityResolutions.WithLabelValues(SourceInitData, "ok").Inc()
		c.Set(ctxSource, SourceInitData)
		if data.User != nil {
			c.Set(ctxUserID, data.User.ID)
			c.Set(ctxTelegramUser, data.User)
		}
		c.Next()
	}
}

func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

func bodyInitData(c *gin.Context, field string) string {
	if field == "" || c.Request.Body == nil || c.Request.Method == http.MethodGet {
		return ""
	}
	var body map[string]any
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return ""
	}
	s, _ := body[field].(string)
	return s
}

// UserID returns the caller's Telegram user id if Identity resolved one.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// TelegramUser returns the verified user when identity came from init data.
func TelegramUser(c *gin.Context) (*telegram.User, bool) {
	v, ok := c.Get(ctxTelegramUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*telegram.User)
	return u, ok && u != nil
}

// IdentitySource reports how the caller was identified, or "" if not.
func IdentitySource(c *gin.Context) string {
	return c.GetString(ctxSource)
}
