package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tool execution statuses. pending → executed is the only transition.
const (
	ToolStatusPending  = "pending"
	ToolStatusExecuted = "executed"
)

// ToolExecution is the audit row of one tool invocation inside an assistant turn.
type ToolExecution struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	LawFirmID      string         `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	ConversationID string         `gorm:"type:varchar(36);index;not null" json:"conversationId"`
	MessageID      string         `gorm:"type:varchar(36);index" json:"messageId"`
	UserID         string         `gorm:"type:varchar(36);index" json:"userId"`
	ToolName       string         `gorm:"type:varchar(100);not null" json:"toolName"`
	Input          datatypes.JSON `json:"input"`
	Output         datatypes.JSON `json:"output"`
	Status         string         `gorm:"type:varchar(20);not null;index" json:"status"`
	ExecutedAt     *time.Time     `json:"executedAt,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

func (ToolExecution) TableName() string { return "ai_tool_executions" }

func (e *ToolExecution) BeforeCreate(*gorm.DB) error {
	newID(&e.ID)
	return nil
}
