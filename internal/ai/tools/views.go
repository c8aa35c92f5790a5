package tools

import (
	"prima-facie-go/internal/model"
)

// Status labels are what the model should repeat to users.
var matterStatusLabels = map[string]string{
	model.MatterStatusActive:    "ativo",
	model.MatterStatusOnHold:    "suspenso",
	model.MatterStatusClosed:    "encerrado",
	model.MatterStatusSettled:   "acordo homologado",
	model.MatterStatusDismissed: "arquivado",
}

// MatterStatusLabel returns the pt-BR label of status, or status itself.
func MatterStatusLabel(status string) string {
	if l, ok := matterStatusLabels[status]; ok {
		return l
	}
	return status
}

type matterView struct {
	ID           string           `json:"id"`
	Number       string           `json:"matterNumber,omitempty"`
	Title        string           `json:"title"`
	Status       string           `json:"status"`
	StatusLabel  string           `json:"statusLabel"`
	Area         string           `json:"area,omitempty"`
	NextDeadline *model.LocalDate `json:"nextDeadline,omitempty"`
}

func viewMatter(m model.Matter) matterView {
	return matterView{
		ID:           m.ID,
		Number:       m.MatterNumber,
		Title:        m.Title,
		Status:       m.Status,
		StatusLabel:  MatterStatusLabel(m.Status),
		Area:         m.Area,
		NextDeadline: model.DatePtr(m.NextDeadline),
	}
}

func viewMatters(ms []model.Matter) []matterView {
	out := make([]matterView, 0, len(ms))
	for _, m := range ms {
		out = append(out, viewMatter(m))
	}
	return out
}

type contactView struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func viewContacts(cs []model.Contact) []contactView {
	out := make([]contactView, 0, len(cs))
	for _, c := range cs {
		out = append(out, contactView{ID: c.ID, FullName: c.FullName, Email: c.Email, Phone: c.Phone})
	}
	return out
}

type taskView struct {
	ID          string           `json:"id"`
	MatterID    string           `json:"matterId,omitempty"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority,omitempty"`
	DueDate     *model.LocalDate `json:"dueDate,omitempty"`
}

func viewTask(t model.Task) taskView {
	return taskView{
		ID:          t.ID,
		MatterID:    deref(t.MatterID),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     model.DatePtr(t.DueDate),
	}
}

func viewTasks(ts []model.Task) []taskView {
	out := make([]taskView, 0, len(ts))
	for _, t := range ts {
		out = append(out, viewTask(t))
	}
	return out
}

type invoiceView struct {
	ID            string           `json:"id"`
	MatterID      string           `json:"matterId,omitempty"`
	InvoiceNumber string           `json:"invoiceNumber"`
	Status        string           `json:"status"`
	TotalAmount   float64          `json:"totalAmount"`
	Description   string           `json:"description,omitempty"`
	DueDate       *model.LocalDate `json:"dueDate,omitempty"`
}

func viewInvoice(i model.Invoice) invoiceView {
	return invoiceView{
		ID:            i.ID,
		MatterID:      deref(i.MatterID),
		InvoiceNumber: i.InvoiceNumber,
		Status:        i.Status,
		TotalAmount:   i.TotalAmount,
		Description:   i.Description,
		DueDate:       model.DatePtr(i.DueDate),
	}
}

func viewInvoices(is []model.Invoice) []invoiceView {
	out := make([]invoiceView, 0, len(is))
	for _, i := range is {
		out = append(out, viewInvoice(i))
	}
	return out
}

type documentView struct {
	ID          string `json:"id"`
	MatterID    string `json:"matterId,omitempty"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType,omitempty"`
	SizeBytes   int64  `json:"sizeBytes"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
