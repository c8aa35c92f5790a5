package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prima-facie-go/internal/config"
	"prima-facie-go/internal/model"
)

func TestRateLimiterCountsTrailingWindow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	conv := &model.AIConversation{LawFirmID: h.f.Firm.ID, UserID: &h.f.Lawyer.ID, Title: "t"}
	require.NoError(t, h.convs.CreateConversation(ctx, conv))

	userID := h.f.Lawyer.ID
	now := time.Now()
	for _, at := range []time.Time{now.Add(-2 * time.Hour), now.Add(-20 * time.Minute), now.Add(-time.Minute)} {
		require.NoError(t, h.convs.CreateMessage(ctx, &model.AIMessage{
			ConversationID: conv.ID, LawFirmID: h.f.Firm.ID, AuthorID: &userID,
			Role: model.RoleUser, Content: "oi", CreatedAt: at,
		}))
	}
	// assistant messages do not count
	require.NoError(t, h.convs.CreateMessage(ctx, &model.AIMessage{
		ConversationID: conv.ID, LawFirmID: h.f.Firm.ID, AuthorID: &userID,
		Role: model.RoleAssistant, Content: "olá", CreatedAt: now,
	}))

	limiter := NewRateLimiter(h.convs, config.RateLimitConfig{MaxMessages: 2, WindowMinutes: 60})
	d, err := limiter.Check(ctx, h.f.Firm.ID, userID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(2), d.Count)
	assert.Equal(t, "Você atingiu o limite de 2 mensagens em 1 hora. Tente novamente mais tarde.", d.Message)

	limiter = NewRateLimiter(h.convs, config.RateLimitConfig{MaxMessages: 2, WindowMinutes: 10})
	d, err = limiter.Check(ctx, h.f.Firm.ID, userID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Message)

	// tenant scoped
	limiter = NewRateLimiter(h.convs, config.RateLimitConfig{MaxMessages: 1, WindowMinutes: 600})
	d, err = limiter.Check(ctx, h.f.Other.ID, userID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestWindowLabel(t *testing.T) {
	assert.Equal(t, "1 hora", windowLabel(time.Hour))
	assert.Equal(t, "3 horas", windowLabel(3*time.Hour))
	assert.Equal(t, "1 minuto", windowLabel(time.Minute))
	assert.Equal(t, "90 minutos", windowLabel(90*time.Minute))
}
