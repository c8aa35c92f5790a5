package model

import (
	"time"

	"gorm.io/gorm"
)

// Sender types of a client-facing message.
const (
	SenderTypeUser    = "user"
	SenderTypeContact = "contact"
)

// ClientConversation is a message thread between the firm and one contact.
type ClientConversation struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	LawFirmID string    `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	ContactID string    `gorm:"type:varchar(36);index;not null" json:"contactId"`
	MatterID  *string   `gorm:"type:varchar(36)" json:"matterId,omitempty"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	Status    string    `gorm:"type:varchar(20);not null;default:active;index" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updatedAt"`
}

func (ClientConversation) TableName() string { return "conversations" }

func (c *ClientConversation) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}

// ClientMessage is what the contact sees in the portal.
type ClientMessage struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);index;not null" json:"conversationId"`
	LawFirmID      string    `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	SenderType     string    `gorm:"type:varchar(20);not null" json:"senderType"`
	SenderID       string    `gorm:"type:varchar(36);not null" json:"senderId"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ClientMessage) TableName() string { return "messages" }

func (m *ClientMessage) BeforeCreate(*gorm.DB) error {
	newID(&m.ID)
	return nil
}
