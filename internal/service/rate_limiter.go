package service

import (
	"context"
	"fmt"
	"time"

	"prima-facie-go/internal/config"
	"prima-facie-go/internal/repository"
)

// RateDecision is the limiter's verdict for one request.
type RateDecision struct {
	Allowed bool
	Count   int64
	Limit   int
	Message string
}

// RateLimiter counts a user's messages in the trailing window. The message
// log is the only state, so the quota resets as messages age out.
type RateLimiter interface {
	Check(ctx context.Context, lawFirmID, userID string) (RateDecision, error)
}

type rateLimiter struct {
	repo repository.ConversationRepository
	cfg  config.RateLimitConfig
	now  func() time.Time
}

// NewRateLimiter 创建一个新的 RateLimiter 实例。
func NewRateLimiter(repo repository.ConversationRepository, cfg config.RateLimitConfig) RateLimiter {
	return &rateLimiter{repo: repo, cfg: cfg, now: time.Now}
}

func (l *rateLimiter) Check(ctx context.Context, lawFirmID, userID string) (RateDecision, error) {
	since := l.now().Add(-l.cfg.Window())
	n, err := l.repo.CountUserMessagesSince(ctx, lawFirmID, userID, since)
	if err != nil {
		return RateDecision{}, fmt.Errorf("count recent messages: %w", err)
	}
	d := RateDecision{Allowed: n < int64(l.cfg.MaxMessages), Count: n, Limit: l.cfg.MaxMessages}
	if !d.Allowed {
		d.Message = fmt.Sprintf("Você atingiu o limite de %d mensagens em %s. Tente novamente mais tarde.",
			l.cfg.MaxMessages, windowLabel(l.cfg.Window()))
	}
	return d, nil
}

func windowLabel(d time.Duration) string {
	switch {
	case d%time.Hour == 0 && d >= time.Hour:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hora"
		}
		return fmt.Sprintf("%d horas", h)
	default:
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minuto"
		}
		return fmt.Sprintf("%d minutos", m)
	}
}
