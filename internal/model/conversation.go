package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Conversation statuses. Conversations are archived, never deleted.
const (
	ConversationStatusActive   = "active"
	ConversationStatusArchived = "archived"
)

// Conversation types: an interactive assistant thread or the internal log of
// proactive notifications generated on behalf of a staff member.
const (
	ConversationTypeChat         = "chat"
	ConversationTypeProactiveLog = "proactive_log"
)

// Message roles of the assistant thread.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message source types.
const (
	SourceTypeChat      = "chat"
	SourceTypeProactive = "proactive"
)

// AIConversation 代表一个 EVA 对话线程。
type AIConversation struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	LawFirmID        string    `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	UserID           *string   `gorm:"type:varchar(36);index" json:"userId,omitempty"`
	ContactID        *string   `gorm:"type:varchar(36);index" json:"contactId,omitempty"`
	Title            string    `gorm:"type:varchar(255)" json:"title"`
	Status           string    `gorm:"type:varchar(20);not null;default:active;index" json:"status"`
	ConversationType string    `gorm:"type:varchar(30);not null;default:chat" json:"conversationType"`
	Provider         string    `gorm:"type:varchar(50)" json:"provider"`
	Model            string    `gorm:"type:varchar(100)" json:"model"`
	TotalTokens      int64     `gorm:"not null;default:0" json:"totalTokens"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (AIConversation) TableName() string { return "ai_conversations" }

func (c *AIConversation) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}

// AIMessage 代表 EVA 线程中的单条消息。Immutable once created.
type AIMessage struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID string         `gorm:"type:varchar(36);index;not null" json:"conversationId"`
	LawFirmID      string         `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	AuthorID       *string        `gorm:"type:varchar(36);index" json:"authorId,omitempty"`
	Role           string         `gorm:"type:varchar(20);not null" json:"role"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	ToolCalls      datatypes.JSON `json:"toolCalls,omitempty"`
	ToolResults    datatypes.JSON `json:"toolResults,omitempty"`
	TokensInput    int            `gorm:"not null;default:0" json:"tokensInput"`
	TokensOutput   int            `gorm:"not null;default:0" json:"tokensOutput"`
	SourceType     string         `gorm:"type:varchar(20);not null;default:chat" json:"sourceType"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (AIMessage) TableName() string { return "ai_messages" }

func (m *AIMessage) BeforeCreate(*gorm.DB) error {
	newID(&m.ID)
	return nil
}
