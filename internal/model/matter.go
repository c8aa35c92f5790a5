package model

import (
	"time"

	"gorm.io/gorm"
)

// Contact is an external client of the firm.
type Contact struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	LawFirmID string    `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"fullName"`
	Email     string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Contact) TableName() string { return "contacts" }

func (c *Contact) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}

// Matter statuses used by the firm UI.
const (
	MatterStatusActive    = "active"
	MatterStatusOnHold    = "on_hold"
	MatterStatusClosed    = "closed"
	MatterStatusSettled   = "settled"
	MatterStatusDismissed = "dismissed"
)

// MatterStatuses is the closed set accepted by update_matter_status.
var MatterStatuses = []string{MatterStatusActive, MatterStatusOnHold, MatterStatusClosed, MatterStatusSettled, MatterStatusDismissed}

// Matter is a legal case.
type Matter struct {
	ID                  string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	LawFirmID           string     `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	MatterNumber        string     `gorm:"type:varchar(50)" json:"matterNumber"`
	Title               string     `gorm:"type:varchar(255);not null" json:"title"`
	Status              string     `gorm:"type:varchar(30);index;not null;default:active" json:"status"`
	Area                string     `gorm:"type:varchar(100)" json:"area,omitempty"`
	ResponsibleLawyerID *string    `gorm:"type:varchar(36)" json:"responsibleLawyerId,omitempty"`
	NextDeadline        *time.Time `gorm:"index" json:"nextDeadline,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Matter) TableName() string { return "matters" }

func (m *Matter) BeforeCreate(*gorm.DB) error {
	newID(&m.ID)
	return nil
}

// MatterContact links a contact to a matter. It is the only path from a
// client identity to firm data.
type MatterContact struct {
	MatterID  string `gorm:"type:varchar(36);primaryKey" json:"matterId"`
	ContactID string `gorm:"type:varchar(36);primaryKey;index" json:"contactId"`
	LawFirmID string `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
}

func (MatterContact) TableName() string { return "matter_contacts" }

// Task is a to-do attached to a matter.
type Task struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	LawFirmID   string     `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	MatterID    *string    `gorm:"type:varchar(36);index" json:"matterId,omitempty"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Status      string     `gorm:"type:varchar(30);not null;default:pending" json:"status"`
	Priority    string     `gorm:"type:varchar(20);default:medium" json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssignedTo  *string    `gorm:"type:varchar(36)" json:"assignedTo,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Task) TableName() string { return "tasks" }

func (t *Task) BeforeCreate(*gorm.DB) error {
	newID(&t.ID)
	return nil
}

// Invoice is a bill issued to a contact for a matter.
type Invoice struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	LawFirmID     string     `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	MatterID      *string    `gorm:"type:varchar(36);index" json:"matterId,omitempty"`
	ContactID     *string    `gorm:"type:varchar(36);index" json:"contactId,omitempty"`
	InvoiceNumber string     `gorm:"type:varchar(50)" json:"invoiceNumber"`
	Status        string     `gorm:"type:varchar(30);not null;default:draft" json:"status"`
	TotalAmount   float64    `gorm:"not null;default:0" json:"totalAmount"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	IssuedAt      *time.Time `json:"issuedAt,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Invoice) TableName() string { return "invoices" }

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	newID(&i.ID)
	return nil
}

// Document is a file stored in object storage under StoragePath.
type Document struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	LawFirmID   string    `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	MatterID    *string   `gorm:"type:varchar(36);index" json:"matterId,omitempty"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	StoragePath string    `gorm:"type:varchar(512)" json:"-"`
	MimeType    string    `gorm:"type:varchar(100)" json:"mimeType,omitempty"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Document) TableName() string { return "documents" }

func (d *Document) BeforeCreate(*gorm.DB) error {
	newID(&d.ID)
	return nil
}
