package service

import (
	"errors"
	"strings"
	"time"

	"telegram_miniapp/internal/logger"
	"telegram_miniapp/internal/telegram"
)

// InitDataHeader carries the raw launch payload on API requests.
const InitDataHeader = "X-Telegram-Init-Data"

// TelegramAuthService verifies launch payloads and decodes them into trusted
// records. It holds no mutable state and is safe for concurrent use.
type TelegramAuthService struct {
	botToken  string
	expiresIn time.Duration
	now       func() time.Time
}

func NewTelegramAuthService(botToken string, expiresIn time.Duration) *TelegramAuthService {
	return &TelegramAuthService{
		botToken:  botToken,
		expiresIn: expiresIn,
		now:       time.Now,
	}
}

// Configured reports whether a bot token is available for verification.
func (s *TelegramAuthService) Configured() bool {
	return s.botToken != ""
}

// Validate verifies raw and, only when the signature and freshness checks
// pass, parses it. The returned error is one of the telegram.Err* reasons.
func (s *TelegramAuthService) Validate(raw string) (*telegram.InitData, error) {
	data, err := s.validate(raw)
	outcome := telegram.Reason(err)
	InitDataValidations.WithLabelValues(outcome).Inc()

	switch {
	case err == nil:
	case errors.Is(err, telegram.ErrNotConfigured):
		// server misconfiguration, not a forgery signal
		logger.Error("init data validation is not configured", "outcome", outcome)
	default:
		logger.Debug("init data rejected", "outcome", outcome, "error", err)
	}
	return data, err
}

func (s *TelegramAuthService) validate(raw string) (*telegram.InitData, error) {
	if err := telegram.Verify(raw, s.botToken, s.expiresIn, s.now()); err != nil {
		return nil, err
	}
	return telegram.Parse(raw)
}

// ExtractInitData picks the payload source for a request. The header wins
// over the body field when both are present.
func ExtractInitData(header, body string) string {
	if h := strings.TrimSpace(header); h != "" {
		return h
	}
	return strings.TrimSpace(body)
}
