package tools

import (
	"context"
	"fmt"
	"sync"

	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/log"
)

// matterScopeCache memoizes the contact → matters lookup for one request.
type matterScopeCache struct {
	mu     sync.Mutex
	loaded bool
	ids    []string
	lookup func(ctx context.Context) ([]string, error)
}

func (c *matterScopeCache) scope(ctx context.Context) (repository.MatterScope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		ids, err := c.lookup(ctx)
		if err != nil {
			return repository.MatterScope{}, err
		}
		c.ids = ids
		c.loaded = true
	}
	return repository.Restrict(c.ids), nil
}

type myMattersArgs struct {
	Status string `json:"status" validate:"omitempty,oneof=active on_hold closed settled dismissed"`
}

type myTasksArgs struct {
	MatterID string `json:"matterId" validate:"max=36"`
	Status   string `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
}

type myInvoicesArgs struct {
	Status string `json:"status" validate:"omitempty,oneof=draft sent paid overdue cancelled"`
}

type myDocumentsArgs struct {
	MatterID string `json:"matterId" validate:"max=36"`
}

type clientSet struct {
	caller ClientCaller
	deps   Deps
	cache  *matterScopeCache
}

func clientTools(c ClientCaller, d Deps) []*tool {
	s := &clientSet{caller: c, deps: d}
	s.cache = &matterScopeCache{lookup: func(ctx context.Context) ([]string, error) {
		return d.Matters.MatterIDsForContact(ctx, c.LawFirmID, c.ContactID)
	}}
	v := d.Validate
	return []*tool{
		define(v, "query_my_matters",
			"Lista os processos do cliente com status e próximo prazo.",
			object(map[string]any{
				"status": enum("Status do processo", "active", "on_hold", "closed", "settled", "dismissed"),
			}),
			s.queryMyMatters),
		define(v, "query_my_tasks",
			"Lista as tarefas em andamento nos processos do cliente.",
			object(map[string]any{
				"matterId": str("ID de um dos processos do cliente"),
				"status":   enum("Status da tarefa", "pending", "in_progress", "completed", "cancelled"),
			}),
			s.queryMyTasks),
		define(v, "query_my_invoices",
			"Lista as faturas emitidas para o cliente.",
			object(map[string]any{
				"status": enum("Status da fatura", "draft", "sent", "paid", "overdue", "cancelled"),
			}),
			s.queryMyInvoices),
		define(v, "query_my_documents",
			"Lista os documentos dos processos do cliente.",
			object(map[string]any{
				"matterId": str("ID de um dos processos do cliente"),
			}),
			s.queryMyDocuments),
	}
}

func (s *clientSet) tenant() string { return s.caller.LawFirmID }

func (s *clientSet) scope(ctx context.Context) (repository.MatterScope, error) {
	sc, err := s.cache.scope(ctx)
	if err != nil {
		return sc, fmt.Errorf("falha ao consultar processos do cliente: %w", err)
	}
	return sc, nil
}

func (s *clientSet) queryMyMatters(ctx context.Context, a myMattersArgs) (any, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	ms, err := s.deps.Matters.ListMatters(ctx, s.tenant(), repository.MatterFilter{Scope: sc, Status: a.Status})
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar processos: %w", err)
	}
	return map[string]any{"matters": viewMatters(ms), "count": len(ms)}, nil
}

func (s *clientSet) queryMyTasks(ctx context.Context, a myTasksArgs) (any, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	ts, err := s.deps.Matters.ListTasks(ctx, s.tenant(), repository.TaskFilter{Scope: sc, MatterID: a.MatterID, Status: a.Status})
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar tarefas: %w", err)
	}
	return map[string]any{"tasks": viewTasks(ts), "count": len(ts)}, nil
}

func (s *clientSet) queryMyInvoices(ctx context.Context, a myInvoicesArgs) (any, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	is, err := s.deps.Matters.ListInvoices(ctx, s.tenant(), repository.InvoiceFilter{
		Scope: sc, ContactID: s.caller.ContactID, Status: a.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar faturas: %w", err)
	}
	return map[string]any{"invoices": viewInvoices(is), "count": len(is)}, nil
}

func (s *clientSet) queryMyDocuments(ctx context.Context, a myDocumentsArgs) (any, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.deps.Matters.ListDocuments(ctx, s.tenant(), repository.DocumentFilter{Scope: sc, MatterID: a.MatterID})
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar documentos: %w", err)
	}
	out := make([]documentView, 0, len(docs))
	for _, d := range docs {
		dv := documentView{ID: d.ID, MatterID: deref(d.MatterID), Name: d.Name, MimeType: d.MimeType, SizeBytes: d.SizeBytes}
		if s.deps.Links != nil && d.StoragePath != "" {
			url, err := s.deps.Links.PresignedURL(ctx, d.StoragePath)
			if err != nil {
				log.Warnw("生成文档下载链接失败", "documentId", d.ID, "error", err)
			} else {
				dv.DownloadURL = url
			}
		}
		out = append(out, dv)
	}
	return map[string]any{"documents": out, "count": len(out)}, nil
}
