package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/tasks"
)

var (
	allStaff    = []model.UserType{model.UserTypeAdmin, model.UserTypeLawyer, model.UserTypeStaff}
	adminLawyer = []model.UserType{model.UserTypeAdmin, model.UserTypeLawyer}
	adminOnly   = []model.UserType{model.UserTypeAdmin}
)

// staffPolicy gates each staff tool by role.
var staffPolicy = map[string][]model.UserType{
	"query_matters":        allStaff,
	"query_contacts":       allStaff,
	"query_tasks":          allStaff,
	"query_invoices":       adminLawyer,
	"search_documents":     allStaff,
	"create_task":          allStaff,
	"update_matter_status": adminLawyer,
	"create_invoice_draft": adminOnly,
}

func allowed(role model.UserType, name string) bool {
	for _, r := range staffPolicy[name] {
		if r == role {
			return true
		}
	}
	return false
}

const dateLayout = "2006-01-02"

type queryMattersArgs struct {
	Status string `json:"status" validate:"omitempty,oneof=active on_hold closed settled dismissed"`
	Search string `json:"search" validate:"max=100"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

type queryContactsArgs struct {
	Search string `json:"search" validate:"max=100"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

type queryTasksArgs struct {
	MatterID     string `json:"matterId" validate:"max=36"`
	Status       string `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	AssignedToMe bool   `json:"assignedToMe"`
	Limit        int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

type queryInvoicesArgs struct {
	MatterID string `json:"matterId" validate:"max=36"`
	Status   string `json:"status" validate:"omitempty,oneof=draft sent paid overdue cancelled"`
	Limit    int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

type searchDocumentsArgs struct {
	Query string `json:"query" validate:"required,min=2,max=200"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=20"`
}

type createTaskArgs struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	MatterID    string `json:"matterId" validate:"max=36"`
	DueDate     string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

type updateMatterStatusArgs struct {
	MatterID string `json:"matterId" validate:"required,max=36"`
	Status   string `json:"status" validate:"required,oneof=active on_hold closed settled dismissed"`
	Reason   string `json:"reason" validate:"max=500"`
}

type createInvoiceDraftArgs struct {
	MatterID    string  `json:"matterId" validate:"required,max=36"`
	ContactID   string  `json:"contactId" validate:"max=36"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"max=1000"`
	DueDate     string  `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

func staffTools(c StaffCaller, d Deps) []*tool {
	s := &staffSet{caller: c, deps: d}
	v := d.Validate
	candidates := []*tool{
		define(v, "query_matters",
			"Lista processos do escritório. Filtra por status ou texto no título/número.",
			object(map[string]any{
				"status": enum("Status do processo", model.MatterStatuses...),
				"search": str("Texto a procurar no título ou número do processo"),
				"limit":  integer("Máximo de resultados", 1, 50),
			}),
			s.queryMatters),
		define(v, "query_contacts",
			"Procura clientes (contatos) do escritório por nome ou e-mail.",
			object(map[string]any{
				"search": str("Nome ou e-mail"),
				"limit":  integer("Máximo de resultados", 1, 50),
			}),
			s.queryContacts),
		define(v, "query_tasks",
			"Lista tarefas do escritório, opcionalmente de um processo ou atribuídas ao usuário atual.",
			object(map[string]any{
				"matterId":     str("ID do processo"),
				"status":       enum("Status da tarefa", "pending", "in_progress", "completed", "cancelled"),
				"assignedToMe": boolean("Somente tarefas atribuídas ao usuário atual"),
				"limit":        integer("Máximo de resultados", 1, 50),
			}),
			s.queryTasks),
		define(v, "query_invoices",
			"Lista faturas do escritório, opcionalmente de um processo ou por status.",
			object(map[string]any{
				"matterId": str("ID do processo"),
				"status":   enum("Status da fatura", "draft", "sent", "paid", "overdue", "cancelled"),
				"limit":    integer("Máximo de resultados", 1, 50),
			}),
			s.queryInvoices),
		define(v, "create_task",
			"Cria uma tarefa atribuída ao usuário atual, opcionalmente vinculada a um processo.",
			object(map[string]any{
				"title":       str("Título da tarefa"),
				"description": str("Descrição"),
				"matterId":    str("ID do processo"),
				"dueDate":     date("Prazo no formato AAAA-MM-DD"),
				"priority":    enum("Prioridade", "low", "medium", "high"),
			}, "title"),
			s.createTask),
		defineConfirmed(v, "update_matter_status",
			"Altera o status de um processo. A alteração só é aplicada depois que o usuário confirmar.",
			object(map[string]any{
				"matterId": str("ID do processo"),
				"status":   enum("Novo status", model.MatterStatuses...),
				"reason":   str("Motivo da alteração"),
			}, "matterId", "status"),
			s.previewMatterStatus, s.applyMatterStatus),
		defineConfirmed(v, "create_invoice_draft",
			"Prepara um rascunho de fatura para um processo. O rascunho só é criado depois que o usuário confirmar.",
			object(map[string]any{
				"matterId":    str("ID do processo"),
				"contactId":   str("ID do cliente; se omitido, usa o primeiro cliente do processo"),
				"amount":      number("Valor total em reais"),
				"description": str("Descrição dos serviços"),
				"dueDate":     date("Vencimento no formato AAAA-MM-DD"),
			}, "matterId", "amount"),
			s.previewInvoice, s.applyInvoice),
	}
	if d.Search != nil {
		candidates = append(candidates, define(v, "search_documents",
			"Busca textual nos documentos do escritório.",
			object(map[string]any{
				"query": str("Termos de busca"),
				"limit": integer("Máximo de resultados", 1, 20),
			}, "query"),
			s.searchDocuments))
	}

	out := make([]*tool, 0, len(candidates))
	for _, t := range candidates {
		if allowed(c.Role, t.name) {
			out = append(out, t)
		}
	}
	return out
}

type staffSet struct {
	caller StaffCaller
	deps   Deps
}

func (s *staffSet) tenant() string { return s.caller.LawFirmID }

func (s *staffSet) queryMatters(ctx context.Context, a queryMattersArgs) (any, error) {
	ms, err := s.deps.Matters.ListMatters(ctx, s.tenant(), repository.MatterFilter{
		Status: a.Status, Search: a.Search, Limit: a.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar processos: %w", err)
	}
	return map[string]any{"matters": viewMatters(ms), "count": len(ms)}, nil
}

func (s *staffSet) queryContacts(ctx context.Context, a queryContactsArgs) (any, error) {
	cs, err := s.deps.Matters.ListContacts(ctx, s.tenant(), a.Search, a.Limit)
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar contatos: %w", err)
	}
	return map[string]any{"contacts": viewContacts(cs), "count": len(cs)}, nil
}

func (s *staffSet) queryTasks(ctx context.Context, a queryTasksArgs) (any, error) {
	f := repository.TaskFilter{MatterID: a.MatterID, Status: a.Status, Limit: a.Limit}
	if a.AssignedToMe {
		f.AssignedTo = s.caller.UserID
	}
	ts, err := s.deps.Matters.ListTasks(ctx, s.tenant(), f)
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar tarefas: %w", err)
	}
	return map[string]any{"tasks": viewTasks(ts), "count": len(ts)}, nil
}

func (s *staffSet) queryInvoices(ctx context.Context, a queryInvoicesArgs) (any, error) {
	is, err := s.deps.Matters.ListInvoices(ctx, s.tenant(), repository.InvoiceFilter{
		MatterID: a.MatterID, Status: a.Status, Limit: a.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar faturas: %w", err)
	}
	return map[string]any{"invoices": viewInvoices(is), "count": len(is)}, nil
}

func (s *staffSet) searchDocuments(ctx context.Context, a searchDocumentsArgs) (any, error) {
	limit := a.Limit
	if limit == 0 {
		limit = 10
	}
	hits, err := s.deps.Search.SearchDocuments(ctx, s.tenant(), a.Query, limit)
	if err != nil {
		return nil, fmt.Errorf("falha na busca de documentos: %w", err)
	}
	return map[string]any{"results": hits, "count": len(hits)}, nil
}

func (s *staffSet) createTask(ctx context.Context, a createTaskArgs) (any, error) {
	task := &model.Task{
		LawFirmID:   s.tenant(),
		Title:       strings.TrimSpace(a.Title),
		Description: a.Description,
		Status:      "pending",
		Priority:    a.Priority,
		AssignedTo:  ptr(s.caller.UserID),
	}
	if task.Priority == "" {
		task.Priority = "medium"
	}
	if a.MatterID != "" {
		if _, err := s.matter(ctx, a.MatterID); err != nil {
			return nil, err
		}
		task.MatterID = ptr(a.MatterID)
	}
	if a.DueDate != "" {
		due, _ := time.Parse(dateLayout, a.DueDate)
		task.DueDate = &due
	}
	if err := s.deps.Matters.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("falha ao criar tarefa: %w", err)
	}
	return map[string]any{"created": true, "task": viewTask(*task)}, nil
}

func (s *staffSet) matter(ctx context.Context, id string) (*model.Matter, error) {
	m, err := s.deps.Matters.GetMatter(ctx, s.tenant(), id)
	if repository.IsNotFound(err) {
		return nil, fmt.Errorf("processo %s não encontrado", id)
	}
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar processo: %w", err)
	}
	return m, nil
}

func (s *staffSet) previewMatterStatus(ctx context.Context, a updateMatterStatusArgs) (any, error) {
	m, err := s.matter(ctx, a.MatterID)
	if err != nil {
		return nil, err
	}
	if m.Status == a.Status {
		return nil, fmt.Errorf("o processo já está com status %s", MatterStatusLabel(a.Status))
	}
	return map[string]any{
		"requiresConfirmation": true,
		"action":               "update_matter_status",
		"matter":               viewMatter(*m),
		"newStatus":            a.Status,
		"newStatusLabel":       MatterStatusLabel(a.Status),
		"reason":               a.Reason,
		"message":              "Alteração aguardando confirmação do usuário.",
	}, nil
}

func (s *staffSet) applyMatterStatus(ctx context.Context, a updateMatterStatusArgs) (any, *tasks.NotificationEvent, error) {
	m, err := s.matter(ctx, a.MatterID)
	if err != nil {
		return nil, nil, err
	}
	previous, err := s.deps.Matters.UpdateMatterStatus(ctx, s.tenant(), a.MatterID, a.Status)
	if err != nil {
		return nil, nil, fmt.Errorf("falha ao atualizar status: %w", err)
	}
	ev := &tasks.NotificationEvent{
		EventType: tasks.EventMatterStatusChange,
		LawFirmID: s.tenant(),
		MatterID:  m.ID,
		Metadata: map[string]any{
			"matter_title": m.Title,
			"old_status":   MatterStatusLabel(previous),
			"new_status":   MatterStatusLabel(a.Status),
		},
	}
	if a.Reason != "" {
		ev.Metadata["reason"] = a.Reason
	}
	return map[string]any{
		"updated":        true,
		"matterId":       m.ID,
		"previousStatus": previous,
		"status":         a.Status,
	}, ev, nil
}

func (s *staffSet) invoiceContact(ctx context.Context, a createInvoiceDraftArgs) (string, error) {
	if a.ContactID != "" {
		if _, err := s.deps.Matters.GetContact(ctx, s.tenant(), a.ContactID); err != nil {
			if repository.IsNotFound(err) {
				return "", fmt.Errorf("cliente %s não encontrado", a.ContactID)
			}
			return "", fmt.Errorf("falha ao consultar cliente: %w", err)
		}
		return a.ContactID, nil
	}
	id, err := s.deps.Matters.FirstContactForMatter(ctx, s.tenant(), a.MatterID)
	if err != nil {
		return "", fmt.Errorf("falha ao consultar clientes do processo: %w", err)
	}
	if id == "" {
		return "", errors.New("o processo não tem cliente vinculado; informe contactId")
	}
	return id, nil
}

func (s *staffSet) previewInvoice(ctx context.Context, a createInvoiceDraftArgs) (any, error) {
	m, err := s.matter(ctx, a.MatterID)
	if err != nil {
		return nil, err
	}
	contactID, err := s.invoiceContact(ctx, a)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"requiresConfirmation": true,
		"action":               "create_invoice_draft",
		"matter":               viewMatter(*m),
		"contactId":            contactID,
		"amount":               a.Amount,
		"description":          a.Description,
		"dueDate":              a.DueDate,
		"message":              "Rascunho de fatura aguardando confirmação do usuário.",
	}, nil
}

func (s *staffSet) applyInvoice(ctx context.Context, a createInvoiceDraftArgs) (any, *tasks.NotificationEvent, error) {
	m, err := s.matter(ctx, a.MatterID)
	if err != nil {
		return nil, nil, err
	}
	contactID, err := s.invoiceContact(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	inv := &model.Invoice{
		LawFirmID:     s.tenant(),
		MatterID:      ptr(m.ID),
		ContactID:     ptr(contactID),
		InvoiceNumber: draftNumber(time.Now()),
		Status:        "draft",
		TotalAmount:   a.Amount,
		Description:   a.Description,
	}
	if a.DueDate != "" {
		due, _ := time.Parse(dateLayout, a.DueDate)
		inv.DueDate = &due
	}
	if err := s.deps.Matters.CreateInvoice(ctx, inv); err != nil {
		return nil, nil, fmt.Errorf("falha ao criar fatura: %w", err)
	}
	meta := map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"amount":         fmt.Sprintf("R$ %.2f", inv.TotalAmount),
		"matter_title":   m.Title,
	}
	if inv.DueDate != nil {
		meta["due_date"] = inv.DueDate.Format(dateLayout)
	}
	ev := &tasks.NotificationEvent{
		EventType: tasks.EventInvoiceCreated,
		LawFirmID: s.tenant(),
		MatterID:  m.ID,
		ContactID: contactID,
		Metadata:  meta,
	}
	return map[string]any{"created": true, "invoice": viewInvoice(*inv)}, ev, nil
}

// draftNumber 形如 RASC-20260101-3F2A9C1B，后缀取自随机 uuid
func draftNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("RASC-%s-%s", now.Format("20060102"), suffix)
}
