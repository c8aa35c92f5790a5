// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newID assigns a UUID primary key when the caller did not set one.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// AllModels lists every table managed by `prima migrate`.
func AllModels() []interface{} {
	return []interface{}{
		&LawFirm{},
		&Profile{},
		&Contact{},
		&Matter{},
		&MatterContact{},
		&Task{},
		&Invoice{},
		&Document{},
		&AIConversation{},
		&AIMessage{},
		&ToolExecution{},
		&ClientConversation{},
		&ClientMessage{},
	}
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
