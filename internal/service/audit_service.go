package service

import (
	"context"

	"telegram_miniapp/internal/domain"
	"telegram_miniapp/internal/logger"
)

// AuditStore is the persistence AuditService writes through.
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error)
}

// AuditService records authentication events. Write failures are logged and
// never fail the request. A nil *AuditService discards everything.
type AuditService struct {
	repo AuditStore
}

func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, entry *domain.AuditLog) {
	if s == nil || s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", entry.Action, "user_id", entry.UserID)
	}
}

// LogLogin records a successful init data exchange.
func (s *AuditService) LogLogin(ctx context.Context, userID int64, ip, userAgent string, signedSession bool) {
	s.Log(ctx, &domain.AuditLog{
		UserID:    userID,
		Action:    domain.AuditActionLogin,
		Category:  domain.AuditCategoryAuth,
		Details:   map[string]any{"signed_session": signedSession},
		IP:        ip,
		UserAgent: userAgent,
	})
}

// LogRejected records init data that failed validation. reason is the short
// label from telegram.Reason, never the payload itself.
func (s *AuditService) LogRejected(ctx context.Context, reason, ip, userAgent string) {
	s.Log(ctx, &domain.AuditLog{
		Action:    domain.AuditActionRejected,
		Category:  domain.AuditCategoryAuth,
		Details:   map[string]any{"reason": reason},
		IP:        ip,
		UserAgent: userAgent,
	})
}

// RecentLogins returns the caller's latest audit entries.
func (s *AuditService) RecentLogins(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetByUserID(ctx, userID, limit)
}
