package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/config"
	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/internal/testfixture"
	"prima-facie-go/pkg/llm/llmtest"
	"prima-facie-go/pkg/tasks"
)

type harness struct {
	db       *gorm.DB
	f        *testfixture.Firm
	convs    repository.ConversationRepository
	threads  repository.ClientThreadRepository
	firms    repository.FirmRepository
	profiles repository.ProfileRepository
	matters  repository.MatterRepository
	llm      *llmtest.MockClient
}

func newHarness(t *testing.T, settings []byte) *harness {
	t.Helper()
	db := testfixture.OpenDB(t)
	return &harness{
		db:       db,
		f:        testfixture.Seed(t, db, settings),
		convs:    repository.NewConversationRepository(db),
		threads:  repository.NewClientThreadRepository(db),
		firms:    repository.NewFirmRepository(db, nil, 0),
		profiles: repository.NewProfileRepository(db),
		matters:  repository.NewMatterRepository(db),
		llm:      &llmtest.MockClient{},
	}
}

func (h *harness) chatService(cfg config.AIConfig) ChatService {
	cfg = cfg.WithDefaults()
	return NewChatService(ChatDeps{
		Conversations: h.convs,
		Firms:         h.firms,
		Profiles:      h.profiles,
		Tools:         tools.Deps{Matters: h.matters},
		LLM:           h.llm,
		Limiter:       NewRateLimiter(h.convs, cfg.RateLimit),
		Config:        cfg,
	})
}

func (h *harness) notificationService() NotificationService {
	return NewNotificationService(NotificationDeps{
		Conversations: h.convs,
		Threads:       h.threads,
		Firms:         h.firms,
		Profiles:      h.profiles,
		Matters:       h.matters,
		LLM:           h.llm,
	})
}

func (h *harness) lawyer() tools.StaffCaller {
	return tools.StaffCaller{LawFirmID: h.f.Firm.ID, UserID: h.f.Lawyer.ID, Role: model.UserTypeLawyer}
}

func (h *harness) admin() tools.StaffCaller {
	return tools.StaffCaller{LawFirmID: h.f.Firm.ID, UserID: h.f.Admin.ID, Role: model.UserTypeAdmin}
}

func (h *harness) ana() tools.ClientCaller {
	return tools.ClientCaller{LawFirmID: h.f.Firm.ID, UserID: h.f.AnaProfile.ID, ContactID: h.f.Ana.ID}
}

func (h *harness) count(t *testing.T, m interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := h.db.Model(m)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []tasks.NotificationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev tasks.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []tasks.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]tasks.NotificationEvent(nil), p.events...)
}
