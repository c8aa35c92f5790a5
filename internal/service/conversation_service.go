package service

import (
	"context"
	"fmt"

	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
)

const defaultConversationListLimit = 50

// ConversationService 定义了对话业务逻辑的接口。
type ConversationService interface {
	List(ctx context.Context, caller tools.Caller, limit int) ([]model.AIConversation, error)
	Messages(ctx context.Context, caller tools.Caller, conversationID string) ([]model.AIMessage, error)
	Archive(ctx context.Context, caller tools.Caller, conversationID string) error
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

// List returns the caller's chat threads, most recently updated first.
func (s *conversationService) List(ctx context.Context, caller tools.Caller, limit int) ([]model.AIConversation, error) {
	if limit <= 0 || limit > defaultConversationListLimit {
		limit = defaultConversationListLimit
	}
	return s.repo.ListConversations(ctx, caller.TenantID(), caller.ActorID(), limit)
}

// Messages 获取会话的完整消息历史，按时间顺序。
func (s *conversationService) Messages(ctx context.Context, caller tools.Caller, conversationID string) ([]model.AIMessage, error) {
	conv, err := s.owned(ctx, caller, conversationID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, caller.TenantID(), conv.ID)
}

// Archive is a soft status change; archiving twice is a no-op.
func (s *conversationService) Archive(ctx context.Context, caller tools.Caller, conversationID string) error {
	conv, err := s.owned(ctx, caller, conversationID)
	if err != nil {
		return err
	}
	if conv.Status == model.ConversationStatusArchived {
		return nil
	}
	return s.repo.Archive(ctx, caller.TenantID(), conv.ID)
}

func (s *conversationService) owned(ctx context.Context, caller tools.Caller, id string) (*model.AIConversation, error) {
	conv, err := s.repo.FindConversation(ctx, caller.TenantID(), id)
	if repository.IsNotFound(err) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if conv.UserID == nil || *conv.UserID != caller.ActorID() || conv.ConversationType != model.ConversationTypeChat {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}
