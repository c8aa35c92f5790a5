// Package prompt assembles the text sent to the model: the page context
// summary, the chat system prompt and the proactive notification prompts.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/log"
)

// PageContext says where the user is in the app.
type PageContext struct {
	Route      string `json:"route,omitempty"`
	EntityType string `json:"entityType,omitempty"`
	EntityID   string `json:"entityId,omitempty"`
}

// Empty reports whether no page information was sent.
func (p *PageContext) Empty() bool {
	return p == nil || (p.Route == "" && p.EntityType == "" && p.EntityID == "")
}

const maxContextTasks = 5

// ContextBuilder summarizes the current entity, scoped like the caller's tools.
type ContextBuilder struct {
	matters  repository.MatterRepository
	maxChars int
}

// NewContextBuilder returns a builder capping summaries at maxChars.
func NewContextBuilder(matters repository.MatterRepository, maxChars int) *ContextBuilder {
	return &ContextBuilder{matters: matters, maxChars: maxChars}
}

// Build returns "" when there is nothing the caller may see. Lookup failures
// are logged and yield a partial summary.
func (b *ContextBuilder) Build(ctx context.Context, caller tools.Caller, page *PageContext) string {
	if page.Empty() {
		return ""
	}
	var lines []string
	if page.Route != "" {
		lines = append(lines, "Página atual: "+truncate(singleLine(page.Route), 200))
	}
	if page.EntityID != "" {
		entity, err := b.entity(ctx, caller, strings.ToLower(page.EntityType), page.EntityID)
		if err != nil {
			log.Warnw("构建页面上下文失败", "entityType", page.EntityType, "entityId", page.EntityID, "error", err)
		}
		lines = append(lines, entity...)
	}
	return truncate(strings.Join(lines, "\n"), b.maxChars)
}

func (b *ContextBuilder) entity(ctx context.Context, caller tools.Caller, kind, id string) ([]string, error) {
	firm := caller.TenantID()
	var scope repository.MatterScope
	if c, ok := caller.(tools.ClientCaller); ok {
		ids, err := b.matters.MatterIDsForContact(ctx, firm, c.ContactID)
		if err != nil {
			return nil, err
		}
		scope = repository.Restrict(ids)
	}

	switch kind {
	case "matter":
		if !inScope(scope, id) {
			return nil, nil
		}
		m, err := b.matters.GetMatter(ctx, firm, id)
		if err != nil {
			return nil, ignoreMissing(err)
		}
		return b.matterLines(ctx, firm, *m, scope)
	case "contact":
		if _, ok := caller.(tools.StaffCaller); !ok {
			return nil, nil
		}
		c, err := b.matters.GetContact(ctx, firm, id)
		if err != nil {
			return nil, ignoreMissing(err)
		}
		lines := []string{"Cliente em foco: " + c.FullName}
		if c.Email != "" {
			lines = append(lines, "E-mail: "+c.Email)
		}
		ids, err := b.matters.MatterIDsForContact(ctx, firm, c.ID)
		if err != nil {
			return lines, err
		}
		ms, err := b.matters.ListMatters(ctx, firm, repository.MatterFilter{Scope: repository.Restrict(ids)})
		if err != nil {
			return lines, err
		}
		for _, m := range ms {
			lines = append(lines, fmt.Sprintf("Processo: %s (%s)", m.Title, tools.MatterStatusLabel(m.Status)))
		}
		return lines, nil
	case "task":
		t, err := b.matters.GetTask(ctx, firm, id)
		if err != nil {
			return nil, ignoreMissing(err)
		}
		if t.MatterID == nil && scope.Restricted {
			return nil, nil
		}
		if t.MatterID != nil && !inScope(scope, *t.MatterID) {
			return nil, nil
		}
		lines := []string{"Tarefa em foco: " + t.Title, "Status: " + t.Status}
		if t.DueDate != nil {
			lines = append(lines, "Prazo: "+model.LocalDate(*t.DueDate).String())
		}
		return lines, nil
	case "invoice":
		inv, err := b.matters.GetInvoice(ctx, firm, id)
		if err != nil {
			return nil, ignoreMissing(err)
		}
		if c, ok := caller.(tools.ClientCaller); ok && (inv.ContactID == nil || *inv.ContactID != c.ContactID) {
			return nil, nil
		}
		lines := []string{
			"Fatura em foco: " + inv.InvoiceNumber,
			"Status: " + inv.Status,
			fmt.Sprintf("Valor: R$ %.2f", inv.TotalAmount),
		}
		if inv.DueDate != nil {
			lines = append(lines, "Vencimento: "+model.LocalDate(*inv.DueDate).String())
		}
		return lines, nil
	}
	return nil, nil
}

func (b *ContextBuilder) matterLines(ctx context.Context, firm string, m model.Matter, scope repository.MatterScope) ([]string, error) {
	lines := []string{fmt.Sprintf("Processo em foco: %s", m.Title)}
	if m.MatterNumber != "" {
		lines = append(lines, "Número: "+m.MatterNumber)
	}
	lines = append(lines, "Status: "+tools.MatterStatusLabel(m.Status))
	if m.Area != "" {
		lines = append(lines, "Área: "+m.Area)
	}
	if m.NextDeadline != nil {
		lines = append(lines, "Próximo prazo: "+model.LocalDate(*m.NextDeadline).String())
	}
	ts, err := b.matters.ListTasks(ctx, firm, repository.TaskFilter{Scope: scope, MatterID: m.ID, Status: "pending", Limit: maxContextTasks})
	if err != nil {
		return lines, err
	}
	for _, t := range ts {
		lines = append(lines, "Tarefa pendente: "+t.Title)
	}
	return lines, nil
}

func inScope(scope repository.MatterScope, id string) bool {
	if !scope.Restricted {
		return true
	}
	for _, s := range scope.IDs {
		if s == id {
			return true
		}
	}
	return false
}

func ignoreMissing(err error) error {
	if repository.IsNotFound(err) {
		return nil
	}
	return err
}
