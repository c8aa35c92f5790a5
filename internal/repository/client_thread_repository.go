package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"prima-facie-go/internal/model"
)

// ClientThreadRepository persists the firm ↔ contact message threads.
type ClientThreadRepository interface {
	FindActiveByContact(ctx context.Context, lawFirmID, contactID string) (*model.ClientConversation, error)
	Create(ctx context.Context, conv *model.ClientConversation) error
	AddMessage(ctx context.Context, msg *model.ClientMessage) error
	CountMessages(ctx context.Context, lawFirmID, conversationID string) (int64, error)
}

type clientThreadRepository struct {
	db *gorm.DB
}

// NewClientThreadRepository 创建一个新的 ClientThreadRepository 实例。
func NewClientThreadRepository(db *gorm.DB) ClientThreadRepository {
	return &clientThreadRepository{db: db}
}

// FindActiveByContact returns the most recently updated active thread, or nil.
func (r *clientThreadRepository) FindActiveByContact(ctx context.Context, lawFirmID, contactID string) (*model.ClientConversation, error) {
	var convs []model.ClientConversation
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND contact_id = ? AND status = ?", lawFirmID, contactID, model.ConversationStatusActive).
		Order("updated_at DESC").
		Limit(1).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, nil
	}
	return &convs[0], nil
}

func (r *clientThreadRepository) Create(ctx context.Context, conv *model.ClientConversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

// AddMessage inserts the message and bumps the thread so it stays the most recent.
func (r *clientThreadRepository) AddMessage(ctx context.Context, msg *model.ClientMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.ClientConversation{}).
			Where("law_firm_id = ? AND id = ?", msg.LawFirmID, msg.ConversationID).
			Update("updated_at", time.Now()).Error
	})
}

func (r *clientThreadRepository) CountMessages(ctx context.Context, lawFirmID, conversationID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ClientMessage{}).
		Where("law_firm_id = ? AND conversation_id = ?", lawFirmID, conversationID).
		Count(&n).Error
	return n, err
}
