// Package repository 提供了数据访问层的实现。Every query is filtered by law_firm_id.
package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"prima-facie-go/internal/model"
)

// ConversationRepository persists EVA threads, their messages and tool audit rows.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conv *model.AIConversation) error
	FindConversation(ctx context.Context, lawFirmID, id string) (*model.AIConversation, error)
	ListConversations(ctx context.Context, lawFirmID, userID string, limit int) ([]model.AIConversation, error)
	FindProactiveLog(ctx context.Context, lawFirmID, userID string) (*model.AIConversation, error)
	Archive(ctx context.Context, lawFirmID, id string) error
	AddTokens(ctx context.Context, lawFirmID, id string, delta int64) error

	CreateMessage(ctx context.Context, msg *model.AIMessage) error
	RecentMessages(ctx context.Context, lawFirmID, conversationID string, limit int) ([]model.AIMessage, error)
	ListMessages(ctx context.Context, lawFirmID, conversationID string) ([]model.AIMessage, error)
	CountUserMessagesSince(ctx context.Context, lawFirmID, authorID string, since time.Time) (int64, error)
	SaveAssistantTurn(ctx context.Context, msg *model.AIMessage, executions []model.ToolExecution) error

	FindToolExecution(ctx context.Context, lawFirmID, id string) (*model.ToolExecution, error)
	MarkToolExecuted(ctx context.Context, lawFirmID, id string, output datatypes.JSON, at time.Time) (bool, error)
	SetToolOutput(ctx context.Context, lawFirmID, id string, output datatypes.JSON) error
}

type gormConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &gormConversationRepository{db: db}
}

func (r *gormConversationRepository) CreateConversation(ctx context.Context, conv *model.AIConversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *gormConversationRepository) FindConversation(ctx context.Context, lawFirmID, id string) (*model.AIConversation, error) {
	var conv model.AIConversation
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND id = ?", lawFirmID, id).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns the user's chat threads, most recently updated first.
func (r *gormConversationRepository) ListConversations(ctx context.Context, lawFirmID, userID string, limit int) ([]model.AIConversation, error) {
	var convs []model.AIConversation
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND user_id = ? AND conversation_type = ?", lawFirmID, userID, model.ConversationTypeChat).
		Order("updated_at DESC").
		Limit(limit).
		Find(&convs).Error
	return convs, err
}

// FindProactiveLog returns the staff member's proactive-notification thread, or nil.
func (r *gormConversationRepository) FindProactiveLog(ctx context.Context, lawFirmID, userID string) (*model.AIConversation, error) {
	var convs []model.AIConversation
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND user_id = ? AND conversation_type = ? AND status = ?",
			lawFirmID, userID, model.ConversationTypeProactiveLog, model.ConversationStatusActive).
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

func (r *gormConversationRepository) Archive(ctx context.Context, lawFirmID, id string) error {
	return r.db.WithContext(ctx).Model(&model.AIConversation{}).
		Where("law_firm_id = ? AND id = ?", lawFirmID, id).
		Update("status", model.ConversationStatusArchived).Error
}

// AddTokens increments the running counter in a single-row update.
func (r *gormConversationRepository) AddTokens(ctx context.Context, lawFirmID, id string, delta int64) error {
	if delta < 0 {
		return fmt.Errorf("token delta must be non-negative, got %d", delta)
	}
	return r.db.WithContext(ctx).Model(&model.AIConversation{}).
		Where("law_firm_id = ? AND id = ?", lawFirmID, id).
		Updates(map[string]interface{}{
			"total_tokens": gorm.Expr("total_tokens + ?", delta),
			"updated_at":   time.Now(),
		}).Error
}

func (r *gormConversationRepository) CreateMessage(ctx context.Context, msg *model.AIMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// RecentMessages returns at most limit user/assistant messages, oldest first.
func (r *gormConversationRepository) RecentMessages(ctx context.Context, lawFirmID, conversationID string, limit int) ([]model.AIMessage, error) {
	var msgs []model.AIMessage
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND conversation_id = ? AND role IN ?",
			lawFirmID, conversationID, []string{model.RoleUser, model.RoleAssistant}).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *gormConversationRepository) ListMessages(ctx context.Context, lawFirmID, conversationID string) ([]model.AIMessage, error) {
	var msgs []model.AIMessage
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND conversation_id = ?", lawFirmID, conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

// CountUserMessagesSince counts messages the author sent at or after since.
func (r *gormConversationRepository) CountUserMessagesSince(ctx context.Context, lawFirmID, authorID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.AIMessage{}).
		Where("law_firm_id = ? AND author_id = ? AND role = ? AND created_at >= ?",
			lawFirmID, authorID, model.RoleUser, since).
		Count(&n).Error
	return n, err
}

// SaveAssistantTurn writes the tool audit rows and the assistant message atomically.
func (r *gormConversationRepository) SaveAssistantTurn(ctx context.Context, msg *model.AIMessage, executions []model.ToolExecution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if msg.ID == "" {
			return fmt.Errorf("assistant message id must be assigned before saving the turn")
		}
		if len(executions) > 0 {
			if err := tx.Create(&executions).Error; err != nil {
				return fmt.Errorf("insert tool executions: %w", err)
			}
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("insert assistant message: %w", err)
		}
		return nil
	})
}

func (r *gormConversationRepository) FindToolExecution(ctx context.Context, lawFirmID, id string) (*model.ToolExecution, error) {
	var exec model.ToolExecution
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND id = ?", lawFirmID, id).
		First(&exec).Error
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

// MarkToolExecuted flips a pending execution to executed. It reports false when
// the row was not pending anymore.
func (r *gormConversationRepository) MarkToolExecuted(ctx context.Context, lawFirmID, id string, output datatypes.JSON, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ToolExecution{}).
		Where("law_firm_id = ? AND id = ? AND status = ?", lawFirmID, id, model.ToolStatusPending).
		Updates(map[string]interface{}{
			"status":      model.ToolStatusExecuted,
			"executed_at": at,
			"output":      output,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetToolOutput records the result of an execution that was already claimed.
func (r *gormConversationRepository) SetToolOutput(ctx context.Context, lawFirmID, id string, output datatypes.JSON) error {
	return r.db.WithContext(ctx).Model(&model.ToolExecution{}).
		Where("law_firm_id = ? AND id = ? AND status = ?", lawFirmID, id, model.ToolStatusExecuted).
		Update("output", output).Error
}
