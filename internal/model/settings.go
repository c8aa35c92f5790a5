package model

import (
	"encoding/json"
	"fmt"

	"prima-facie-go/pkg/tasks"
)

// CurrentSettingsVersion is written back whenever settings are saved.
const CurrentSettingsVersion = 1

// FirmSettings is the typed form of law_firms.settings. It is parsed once at
// the repository boundary; unknown keys are ignored.
type FirmSettings struct {
	Version          int                 `json:"version"`
	Assistant        AssistantSettings   `json:"assistant"`
	EvaNotifications NotificationToggles `json:"eva_notifications"`
}

// AssistantSettings controls how EVA writes for this firm.
type AssistantSettings struct {
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	Tone     string `json:"tone,omitempty"`
}

// NotificationToggles enables proactive notifications per event type.
// A nil toggle means enabled; Enabled=false switches all of them off.
type NotificationToggles struct {
	Enabled             *bool `json:"enabled,omitempty"`
	MatterStatusChange  *bool `json:"matter_status_change,omitempty"`
	NewDocument         *bool `json:"new_document,omitempty"`
	DeadlineApproaching *bool `json:"deadline_approaching,omitempty"`
	InvoiceCreated      *bool `json:"invoice_created,omitempty"`
	TaskCompleted       *bool `json:"task_completed,omitempty"`
}

// Default assistant language and tone.
const (
	DefaultLanguage = "pt-BR"
	DefaultTone     = "profissional, cordial e objetivo"
)

// ParseFirmSettings decodes the raw column. Empty input yields defaults.
func ParseFirmSettings(raw []byte) (FirmSettings, error) {
	var s FirmSettings
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &s); err != nil {
			return FirmSettings{}, fmt.Errorf("parse firm settings: %w", err)
		}
	}
	return s.withDefaults(), nil
}

func (s FirmSettings) withDefaults() FirmSettings {
	if s.Version == 0 {
		s.Version = CurrentSettingsVersion
	}
	if s.Assistant.Language == "" {
		s.Assistant.Language = DefaultLanguage
	}
	if s.Assistant.Tone == "" {
		s.Assistant.Tone = DefaultTone
	}
	return s
}

// NotificationEnabled reports whether eventType may produce a proactive message.
// Unknown event types follow the master switch.
func (s FirmSettings) NotificationEnabled(eventType tasks.EventType) bool {
	t := s.EvaNotifications
	if t.Enabled != nil && !*t.Enabled {
		return false
	}
	var toggle *bool
	switch eventType {
	case tasks.EventMatterStatusChange:
		toggle = t.MatterStatusChange
	case tasks.EventNewDocument:
		toggle = t.NewDocument
	case tasks.EventDeadlineApproaching:
		toggle = t.DeadlineApproaching
	case tasks.EventInvoiceCreated:
		toggle = t.InvoiceCreated
	case tasks.EventTaskCompleted:
		toggle = t.TaskCompleted
	}
	return toggle == nil || *toggle
}
