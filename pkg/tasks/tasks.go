// Package tasks defines the domain events carried on the notification topic.
package tasks

// EventType identifies the domain event behind a proactive notification.
type EventType string

const (
	EventMatterStatusChange  EventType = "matter_status_change"
	EventNewDocument         EventType = "new_document"
	EventDeadlineApproaching EventType = "deadline_approaching"
	EventInvoiceCreated      EventType = "invoice_created"
	EventTaskCompleted       EventType = "task_completed"
)

// KnownEventTypes lists the event types with a dedicated instruction.
var KnownEventTypes = []EventType{
	EventMatterStatusChange,
	EventNewDocument,
	EventDeadlineApproaching,
	EventInvoiceCreated,
	EventTaskCompleted,
}

// NotificationEvent is consumed once by the notification engine and never stored.
type NotificationEvent struct {
	EventType EventType      `json:"eventType"`
	LawFirmID string         `json:"lawFirmId"`
	MatterID  string         `json:"matterId,omitempty"`
	ContactID string         `json:"contactId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
