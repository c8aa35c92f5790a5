package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"prima-facie-go/internal/ai/prompt"
	"prima-facie-go/internal/config"
	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/llm"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/metrics"
	"prima-facie-go/pkg/tasks"
)

// OutcomeKind classifies what the engine did with an event.
type OutcomeKind string

const (
	OutcomeSent                   OutcomeKind = "sent"
	OutcomeSkippedDisabled        OutcomeKind = "skipped_disabled"
	OutcomeSkippedNoContact       OutcomeKind = "skipped_no_contact"
	OutcomeSkippedNoSender        OutcomeKind = "skipped_no_sender"
	OutcomeSkippedEmptyGeneration OutcomeKind = "skipped_empty_generation"
	OutcomeFailed                 OutcomeKind = "failed"
)

// Outcome is the result of one Notify call. Reason is set for OutcomeFailed.
type Outcome struct {
	Kind           OutcomeKind `json:"kind"`
	Reason         string      `json:"reason,omitempty"`
	ConversationID string      `json:"conversationId,omitempty"`
	MessageID      string      `json:"messageId,omitempty"`
}

func failed(format string, args ...any) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: fmt.Sprintf(format, args...)}
}

const (
	clientThreadTitle = "Atualizações do escritório"
	proactiveLogTitle = "Notificações proativas da EVA"
)

var senderFallbackTypes = []model.UserType{model.UserTypeAdmin, model.UserTypeLawyer}

// NotificationService turns domain events into staff-attributed client messages.
type NotificationService interface {
	// Notify processes one event and reports what happened. It never panics.
	Notify(ctx context.Context, ev tasks.NotificationEvent) Outcome
}

// NotificationDeps are the collaborators of the notification engine.
type NotificationDeps struct {
	Conversations repository.ConversationRepository
	Threads       repository.ClientThreadRepository
	Firms         repository.FirmRepository
	Profiles      repository.ProfileRepository
	Matters       repository.MatterRepository
	LLM           llm.Client
	Metrics       *metrics.Metrics
	Config        config.AIConfig
}

type notificationService struct {
	NotificationDeps
}

// NewNotificationService 创建一个新的 NotificationService 实例。
func NewNotificationService(deps NotificationDeps) NotificationService {
	deps.Config = deps.Config.WithDefaults()
	return &notificationService{NotificationDeps: deps}
}

func (s *notificationService) Notify(ctx context.Context, ev tasks.NotificationEvent) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = failed("panic: %v", p)
		}
		s.Metrics.Notification(string(ev.EventType), string(out.Kind))
		l := eventLogger(ev)
		switch out.Kind {
		case OutcomeFailed:
			l.Errorw("主动通知失败", "reason", out.Reason)
		case OutcomeSent:
			l.Infow("主动通知已发送", "conversationId", out.ConversationID)
		default:
			l.Infow("主动通知已跳过", "outcome", out.Kind)
		}
	}()

	timeout := time.Duration(s.Config.Notification.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.notify(ctx, ev)
}

func eventLogger(ev tasks.NotificationEvent) *zap.SugaredLogger {
	return log.With("eventType", ev.EventType, "lawFirmId", ev.LawFirmID, "matterId", ev.MatterID)
}

func (s *notificationService) notify(ctx context.Context, ev tasks.NotificationEvent) Outcome {
	if ev.LawFirmID == "" || ev.EventType == "" {
		return failed("event without tenant or type")
	}
	firmID := ev.LawFirmID

	// 1. 租户开关
	settings, err := s.Firms.Settings(ctx, firmID)
	if err != nil {
		return failed("load firm settings: %v", err)
	}
	if !settings.NotificationEnabled(ev.EventType) {
		return Outcome{Kind: OutcomeSkippedDisabled}
	}
	firm, err := s.Firms.Find(ctx, firmID)
	if err != nil {
		return failed("load firm: %v", err)
	}

	var matter *model.Matter
	if ev.MatterID != "" {
		matter, err = s.Matters.GetMatter(ctx, firmID, ev.MatterID)
		if err != nil && !repository.IsNotFound(err) {
			return failed("load matter: %v", err)
		}
	}

	// 2. 目标联系人
	contact, err := s.resolveContact(ctx, ev)
	if err != nil {
		return failed("resolve contact: %v", err)
	}
	if contact == nil {
		return Outcome{Kind: OutcomeSkippedNoContact}
	}

	// 3. 署名的员工
	sender, err := s.resolveSender(ctx, firmID, matter)
	if err != nil {
		return failed("resolve sender: %v", err)
	}
	if sender == nil {
		return Outcome{Kind: OutcomeSkippedNoSender}
	}

	// 5-7. 提示词与单次生成
	in := prompt.NotificationInput{
		FirmName:    firm.Name,
		SenderName:  sender.FullName,
		ContactName: contact.FullName,
		Settings:    settings.Assistant,
		EventType:   ev.EventType,
		Metadata:    ev.Metadata,
	}
	if matter != nil {
		in.MatterTitle = matter.Title
	}
	resp, err := s.LLM.Complete(ctx, llm.Request{
		Model:       s.Config.Model,
		System:      prompt.NotificationSystemPrompt(in),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt.NotificationUserPrompt(in)}},
		MaxTokens:   s.Config.Notification.MaxOutputTokens,
		Temperature: s.Config.Notification.Temperature,
	})
	if err != nil {
		return failed("model invocation: %v", err)
	}
	s.Metrics.Tokens(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	// 8. 空文本不发送
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return Outcome{Kind: OutcomeSkippedEmptyGeneration}
	}

	// 4. 复用或创建客户会话
	thread, err := s.resolveThread(ctx, firmID, contact.ID, ev.MatterID)
	if err != nil {
		return failed("resolve client conversation: %v", err)
	}

	// 9. 以员工身份发送
	msg := &model.ClientMessage{
		ConversationID: thread.ID,
		LawFirmID:      firmID,
		SenderType:     model.SenderTypeUser,
		SenderID:       sender.ID,
		Content:        text,
	}
	if err := s.Threads.AddMessage(ctx, msg); err != nil {
		return failed("insert client message: %v", err)
	}
	out := Outcome{Kind: OutcomeSent, ConversationID: thread.ID, MessageID: msg.ID}

	// 10. 内部审计；失败不影响已发送的消息
	if err := s.audit(ctx, ev, sender.ID, thread.ID, text, resp.Usage); err != nil {
		eventLogger(ev).Warnw("主动通知审计记录失败", "error", err)
	}
	return out
}

func (s *notificationService) resolveContact(ctx context.Context, ev tasks.NotificationEvent) (*model.Contact, error) {
	id := ev.ContactID
	if id == "" && ev.MatterID != "" {
		var err error
		if id, err = s.Matters.FirstContactForMatter(ctx, ev.LawFirmID, ev.MatterID); err != nil {
			return nil, err
		}
	}
	if id == "" {
		return nil, nil
	}
	c, err := s.Matters.GetContact(ctx, ev.LawFirmID, id)
	if repository.IsNotFound(err) {
		return nil, nil
	}
	return c, err
}

// resolveSender prefers the matter's responsible lawyer, then the oldest admin or lawyer.
func (s *notificationService) resolveSender(ctx context.Context, firmID string, matter *model.Matter) (*model.Profile, error) {
	if matter != nil && matter.ResponsibleLawyerID != nil && *matter.ResponsibleLawyerID != "" {
		p, err := s.Profiles.FindInFirm(ctx, firmID, *matter.ResponsibleLawyerID)
		switch {
		case err == nil && p.UserType != model.UserTypeClient:
			return p, nil
		case err != nil && !repository.IsNotFound(err):
			return nil, err
		}
	}
	return s.Profiles.FirstOfTypes(ctx, firmID, senderFallbackTypes)
}

func (s *notificationService) resolveThread(ctx context.Context, firmID, contactID, matterID string) (*model.ClientConversation, error) {
	thread, err := s.Threads.FindActiveByContact(ctx, firmID, contactID)
	if err != nil || thread != nil {
		return thread, err
	}
	thread = &model.ClientConversation{
		LawFirmID: firmID,
		ContactID: contactID,
		Title:     clientThreadTitle,
		Status:    model.ConversationStatusActive,
	}
	if matterID != "" {
		thread.MatterID = &matterID
	}
	if err := s.Threads.Create(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func (s *notificationService) audit(ctx context.Context, ev tasks.NotificationEvent, senderID, threadID, text string, usage llm.Usage) error {
	firmID := ev.LawFirmID
	logConv, err := s.Conversations.FindProactiveLog(ctx, firmID, senderID)
	if err != nil {
		return err
	}
	if logConv == nil {
		logConv = &model.AIConversation{
			LawFirmID:        firmID,
			UserID:           &senderID,
			Title:            proactiveLogTitle,
			Status:           model.ConversationStatusActive,
			ConversationType: model.ConversationTypeProactiveLog,
			Provider:         s.Config.Provider,
			Model:            s.Config.Model,
		}
		if err := s.Conversations.CreateConversation(ctx, logConv); err != nil {
			return err
		}
	}
	meta, err := json.Marshal(map[string]any{
		"client_conversation_id": threadID,
		"event_type":             ev.EventType,
		"matter_id":              ev.MatterID,
	})
	if err != nil {
		return err
	}
	if err := s.Conversations.CreateMessage(ctx, &model.AIMessage{
		ConversationID: logConv.ID,
		LawFirmID:      firmID,
		Role:           model.RoleAssistant,
		Content:        text,
		TokensInput:    usage.InputTokens,
		TokensOutput:   usage.OutputTokens,
		SourceType:     model.SourceTypeProactive,
		Metadata:       datatypes.JSON(meta),
	}); err != nil {
		return err
	}
	return s.Conversations.AddTokens(ctx, firmID, logConv.ID, int64(usage.InputTokens+usage.OutputTokens))
}
