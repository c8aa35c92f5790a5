package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prima-facie-go/internal/config"
	"prima-facie-go/internal/model"
	"prima-facie-go/pkg/llm"
	"prima-facie-go/pkg/llm/llmtest"
)

func TestConversationServiceIsOwnerScoped(t *testing.T) {
	h := newHarness(t, nil)
	h.llm.Responses = []*llm.Response{llmtest.Text("um", 1, 1), llmtest.Text("dois", 1, 1)}
	chat := h.chatService(config.AIConfig{})
	ctx := context.Background()

	mine, err := chat.Chat(ctx, h.lawyer(), ChatRequest{Message: "primeira"})
	require.NoError(t, err)
	_, err = chat.Chat(ctx, h.admin(), ChatRequest{Message: "do admin"})
	require.NoError(t, err)

	svc := NewConversationService(h.convs)

	list, err := svc.List(ctx, h.lawyer(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ConversationID, list[0].ID)

	msgs, err := svc.Messages(ctx, h.lawyer(), mine.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "primeira", msgs[0].Content)

	_, err = svc.Messages(ctx, h.admin(), mine.ConversationID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.ErrorIs(t, svc.Archive(ctx, h.admin(), mine.ConversationID), ErrConversationNotFound)

	require.NoError(t, svc.Archive(ctx, h.lawyer(), mine.ConversationID))
	require.NoError(t, svc.Archive(ctx, h.lawyer(), mine.ConversationID))
	conv, err := h.convs.FindConversation(ctx, h.f.Firm.ID, mine.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationStatusArchived, conv.Status)
}

func TestConversationServiceHidesProactiveLog(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	logConv := &model.AIConversation{
		LawFirmID: h.f.Firm.ID, UserID: &h.f.Lawyer.ID, Title: "log",
		ConversationType: model.ConversationTypeProactiveLog, Status: model.ConversationStatusActive,
	}
	require.NoError(t, h.convs.CreateConversation(ctx, logConv))

	svc := NewConversationService(h.convs)
	list, err := svc.List(ctx, h.lawyer(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = svc.Messages(ctx, h.lawyer(), logConv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
