package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LawFirm is one tenant. Settings holds a serialized FirmSettings document.
type LawFirm struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Settings  datatypes.JSON `json:"settings"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (LawFirm) TableName() string { return "law_firms" }

func (f *LawFirm) BeforeCreate(*gorm.DB) error {
	newID(&f.ID)
	return nil
}

// UserType is the profile kind stored by the hosted auth.
type UserType string

const (
	UserTypeAdmin  UserType = "admin"
	UserTypeLawyer UserType = "lawyer"
	UserTypeStaff  UserType = "staff"
	UserTypeClient UserType = "client"
)

// Profile is an authenticated user of a firm. Client profiles point at a Contact.
type Profile struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	LawFirmID string    `gorm:"type:varchar(36);index;not null" json:"lawFirmId"`
	FullName  string    `gorm:"type:varchar(255)" json:"fullName"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	UserType  UserType  `gorm:"type:varchar(20);not null" json:"userType"`
	ContactID *string   `gorm:"type:varchar(36);index" json:"contactId,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) BeforeCreate(*gorm.DB) error {
	newID(&p.ID)
	return nil
}
