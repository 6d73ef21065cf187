package handlers

import (
	"context"

	"telegram_miniapp/internal/domain"
	"telegram_miniapp/internal/service"
	"telegram_miniapp/internal/telegram"
)

// UserStore persists the last-seen profile of authenticated users.
type UserStore interface {
	Upsert(ctx context.Context, u *telegram.User) (*domain.User, error)
	GetByTgID(ctx context.Context, tgID int64) (*domain.User, error)
	Touch(ctx context.Context, tgID int64) error
}

// HandlerConfig holds the request limits and environment flags handlers need.
type HandlerConfig struct {
	BotUsername       string
	Production        bool
	InitDataMaxLength int
}

type Handler struct {
	Auth     *service.TelegramAuthService
	Sessions service.SessionCodec
	Relay    *service.ChatRelay
	// Users and Audit are nil when no database is configured.
	Users UserStore
	Audit *service.AuditService
	cfg   HandlerConfig
}

func NewHandler(auth *service.TelegramAuthService, sessions service.SessionCodec, chat *service.ChatRelay, users UserStore, cfg HandlerConfig) *Handler {
	if cfg.InitDataMaxLength <= 0 {
		cfg.InitDataMaxLength = 4096
	}
	return &Handler{
		Auth:     auth,
		Sessions: sessions,
		Relay:    chat,
		Users:    users,
		cfg:      cfg,
	}
}
