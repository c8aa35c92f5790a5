// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"prima-facie-go/internal/ai/prompt"
	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/config"
	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/llm"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/metrics"
)

const maxTitleLen = 100

// Chat turn outcomes recorded in metrics.
const (
	turnOK          = "ok"
	turnRateLimited = "rate_limited"
	turnRejected    = "rejected"
	turnFailed      = "failed"
)

// stepLimitReply is used when the model is still calling tools at the last step.
const stepLimitReply = "Não consegui concluir a resposta dentro do limite de etapas desta conversa. Pode reformular ou detalhar a pergunta?"

// ChatRequest is one inbound user message.
type ChatRequest struct {
	Message        string              `json:"message"`
	ConversationID string              `json:"conversationId,omitempty"`
	PageContext    *prompt.PageContext `json:"pageContext,omitempty"`
}

// ToolResult is the outcome of one tool call within a turn.
type ToolResult struct {
	ToolCallID           string          `json:"toolCallId"`
	ToolName             string          `json:"toolName"`
	Output               json.RawMessage `json:"output"`
	RequiresConfirmation bool            `json:"requiresConfirmation,omitempty"`
	ExecutionID          string          `json:"executionId"`
}

// AssistantMessage is the persisted reply returned to the caller.
type AssistantMessage struct {
	ID           string         `json:"id"`
	Content      string         `json:"content"`
	ToolCalls    []llm.ToolCall `json:"toolCalls,omitempty"`
	ToolResults  []ToolResult   `json:"toolResults,omitempty"`
	TokensInput  int            `json:"tokensInput"`
	TokensOutput int            `json:"tokensOutput"`
}

// ChatReply is the body of a successful chat turn.
type ChatReply struct {
	ConversationID string           `json:"conversationId"`
	Message        AssistantMessage `json:"message"`
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	Chat(ctx context.Context, caller tools.Caller, req ChatRequest) (*ChatReply, error)
}

// ChatDeps are the collaborators of the chat orchestrator.
type ChatDeps struct {
	Conversations repository.ConversationRepository
	Firms         repository.FirmRepository
	Profiles      repository.ProfileRepository
	Tools         tools.Deps
	Context       *prompt.ContextBuilder
	LLM           llm.Client
	Limiter       RateLimiter
	Metrics       *metrics.Metrics
	Config        config.AIConfig
}

type chatService struct {
	ChatDeps
	now func() time.Time
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(deps ChatDeps) ChatService {
	deps.Config = deps.Config.WithDefaults()
	if deps.Context == nil {
		deps.Context = prompt.NewContextBuilder(deps.Tools.Matters, deps.Config.MaxContextChars)
	}
	return &chatService{ChatDeps: deps, now: time.Now}
}

// Chat runs one turn: rate limit, resolve the conversation, persist the user
// message, run the bounded tool loop and persist the reply with its audit rows.
func (s *chatService) Chat(ctx context.Context, caller tools.Caller, req ChatRequest) (*ChatReply, error) {
	reply, err := s.chat(ctx, caller, req)
	var rl *RateLimitError
	switch {
	case err == nil:
		s.Metrics.ChatTurn(turnOK)
	case errors.As(err, &rl):
		s.Metrics.ChatTurn(turnRateLimited)
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrConversationNotFound), errors.Is(err, ErrConversationArchived):
		s.Metrics.ChatTurn(turnRejected)
	default:
		s.Metrics.ChatTurn(turnFailed)
	}
	return reply, err
}

func (s *chatService) chat(ctx context.Context, caller tools.Caller, req ChatRequest) (*ChatReply, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	firmID, actorID := caller.TenantID(), caller.ActorID()

	// 1. 限流
	decision, err := s.Limiter.Check(ctx, firmID, actorID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &RateLimitError{Message: decision.Message}
	}

	// 2. 页面上下文与系统提示词；先于建会话，加载失败时不留下空会话
	system, err := s.systemPrompt(ctx, caller, req.PageContext)
	if err != nil {
		return nil, err
	}

	// 3. 解析或创建会话
	conv, err := s.resolveConversation(ctx, caller, req.ConversationID, text)
	if err != nil {
		return nil, err
	}

	// 4. 历史消息（仅 user/assistant，旧→新）
	history, err := s.Conversations.RecentMessages(ctx, firmID, conv.ID, s.Config.MaxHistory)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	// 5. 先持久化用户消息，模型调用失败时也保留
	userMsg := &model.AIMessage{
		ConversationID: conv.ID,
		LawFirmID:      firmID,
		AuthorID:       &actorID,
		Role:           model.RoleUser,
		Content:        text,
		SourceType:     model.SourceTypeChat,
	}
	if !req.PageContext.Empty() {
		if b, err := json.Marshal(map[string]any{"pageContext": req.PageContext}); err == nil {
			userMsg.Metadata = datatypes.JSON(b)
		}
	}
	if err := s.Conversations.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	// 6. 有界的工具调用循环
	registry := tools.New(caller, s.Tools)
	turn, err := s.runTools(ctx, registry, system, history, text)
	if err != nil {
		log.Errorw("EVA 模型调用失败", "conversationId", conv.ID, "lawFirmId", firmID, "error", err)
		return nil, err
	}

	// 7-8. 工具审计记录与助手消息在同一事务中写入
	assistant, err := s.persistTurn(ctx, caller, conv.ID, turn)
	if err != nil {
		return nil, err
	}

	// 9. 累加会话 token 计数
	if err := s.Conversations.AddTokens(ctx, firmID, conv.ID, int64(turn.usage.InputTokens+turn.usage.OutputTokens)); err != nil {
		return nil, fmt.Errorf("update token counter: %w", err)
	}
	s.Metrics.Tokens(turn.usage.InputTokens, turn.usage.OutputTokens)

	return &ChatReply{ConversationID: conv.ID, Message: *assistant}, nil
}

func (s *chatService) resolveConversation(ctx context.Context, caller tools.Caller, id, text string) (*model.AIConversation, error) {
	firmID, actorID := caller.TenantID(), caller.ActorID()
	if id != "" {
		conv, err := s.Conversations.FindConversation(ctx, firmID, id)
		if repository.IsNotFound(err) {
			return nil, ErrConversationNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("find conversation: %w", err)
		}
		if conv.UserID == nil || *conv.UserID != actorID || conv.ConversationType != model.ConversationTypeChat {
			return nil, ErrConversationNotFound
		}
		if conv.Status != model.ConversationStatusActive {
			return nil, ErrConversationArchived
		}
		return conv, nil
	}

	conv := &model.AIConversation{
		LawFirmID:        firmID,
		UserID:           &actorID,
		Title:            titleFrom(text),
		Status:           model.ConversationStatusActive,
		ConversationType: model.ConversationTypeChat,
		Provider:         s.Config.Provider,
		Model:            s.Config.Model,
	}
	if c, ok := caller.(tools.ClientCaller); ok {
		conv.ContactID = &c.ContactID
	}
	if err := s.Conversations.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func titleFrom(text string) string {
	r := []rune(strings.Join(strings.Fields(text), " "))
	if len(r) > maxTitleLen {
		r = r[:maxTitleLen]
	}
	return string(r)
}

func (s *chatService) systemPrompt(ctx context.Context, caller tools.Caller, page *prompt.PageContext) (string, error) {
	firmID := caller.TenantID()
	firm, err := s.Firms.Find(ctx, firmID)
	if err != nil {
		return "", fmt.Errorf("load firm: %w", err)
	}
	settings, err := s.Firms.Settings(ctx, firmID)
	if err != nil {
		return "", fmt.Errorf("load firm settings: %w", err)
	}
	var userName string
	if p, err := s.Profiles.FindInFirm(ctx, firmID, caller.ActorID()); err == nil {
		userName = p.FullName
	} else if !repository.IsNotFound(err) {
		return "", fmt.Errorf("load profile: %w", err)
	}
	in := prompt.ChatInput{
		AssistantName: s.Config.AssistantName,
		FirmName:      firm.Name,
		UserName:      userName,
		Caller:        caller,
		Settings:      settings.Assistant,
		Context:       s.Context.Build(ctx, caller, page),
		Now:           s.now(),
	}
	if page != nil {
		in.Route = page.Route
	}
	return prompt.ChatSystemPrompt(in), nil
}

type executedCall struct {
	call   llm.ToolCall
	result tools.Result
}

type turnResult struct {
	content string
	calls   []executedCall
	usage   llm.Usage
	steps   int
}

// runTools calls the model at most MaxToolSteps times. Tool calls requested in
// the last step are executed but not fed back.
func (s *chatService) runTools(ctx context.Context, registry *tools.Registry, system string, history []model.AIMessage, text string) (*turnResult, error) {
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, h := range history {
		msgs = append(msgs, llm.Message{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: text})

	defs := registry.Definitions()
	turn := &turnResult{}
	for turn.steps < s.Config.MaxToolSteps {
		turn.steps++
		resp, err := s.LLM.Complete(ctx, llm.Request{
			Model:       s.Config.Model,
			System:      system,
			Messages:    msgs,
			Tools:       defs,
			MaxTokens:   s.Config.MaxOutputTokens,
			Temperature: s.Config.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("model invocation failed: %w", err)
		}
		turn.usage.InputTokens += resp.Usage.InputTokens
		turn.usage.OutputTokens += resp.Usage.OutputTokens
		turn.content = resp.Content

		if len(resp.ToolCalls) == 0 {
			return turn, nil
		}

		// assistant 消息与 tool 消息必须引用同一个 id
		for i := range resp.ToolCalls {
			if resp.ToolCalls[i].ID == "" {
				resp.ToolCalls[i].ID = "call_" + uuid.NewString()
			}
		}
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			res := registry.Execute(ctx, call.Name, call.Arguments)
			turn.calls = append(turn.calls, executedCall{call: call, result: res})
			msgs = append(msgs, llm.Message{Role: llm.RoleTool, Content: string(res.Output), ToolCallID: call.ID})
		}
	}
	if strings.TrimSpace(turn.content) == "" {
		turn.content = stepLimitReply
	}
	log.Warnw("EVA 工具调用达到步数上限", "steps", turn.steps, "toolCalls", len(turn.calls))
	return turn, nil
}

func (s *chatService) persistTurn(ctx context.Context, caller tools.Caller, conversationID string, turn *turnResult) (*AssistantMessage, error) {
	firmID, actorID := caller.TenantID(), caller.ActorID()
	now := s.now()
	out := &AssistantMessage{
		ID:           uuid.NewString(),
		Content:      turn.content,
		TokensInput:  turn.usage.InputTokens,
		TokensOutput: turn.usage.OutputTokens,
	}

	execs := make([]model.ToolExecution, 0, len(turn.calls))
	statuses := make([]string, 0, len(turn.calls))
	for _, ec := range turn.calls {
		input := ec.call.Arguments
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}
		exec := model.ToolExecution{
			ID:             uuid.NewString(),
			LawFirmID:      firmID,
			ConversationID: conversationID,
			MessageID:      out.ID,
			UserID:         actorID,
			ToolName:       ec.call.Name,
			Input:          datatypes.JSON(input),
			Output:         datatypes.JSON(ec.result.Output),
		}
		if ec.result.RequiresConfirmation {
			exec.Status = model.ToolStatusPending
		} else {
			exec.Status = model.ToolStatusExecuted
			exec.ExecutedAt = &now
		}
		execs = append(execs, exec)
		statuses = append(statuses, toolMetricStatus(exec.Status, ec.result.Failed))
		out.ToolCalls = append(out.ToolCalls, ec.call)
		out.ToolResults = append(out.ToolResults, ToolResult{
			ToolCallID:           ec.call.ID,
			ToolName:             ec.call.Name,
			Output:               ec.result.Output,
			RequiresConfirmation: ec.result.RequiresConfirmation,
			ExecutionID:          exec.ID,
		})
	}

	msg := &model.AIMessage{
		ID:             out.ID,
		ConversationID: conversationID,
		LawFirmID:      firmID,
		Role:           model.RoleAssistant,
		Content:        out.Content,
		TokensInput:    out.TokensInput,
		TokensOutput:   out.TokensOutput,
		SourceType:     model.SourceTypeChat,
	}
	if len(out.ToolCalls) > 0 {
		calls, err := json.Marshal(out.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("marshal tool calls: %w", err)
		}
		results, err := json.Marshal(out.ToolResults)
		if err != nil {
			return nil, fmt.Errorf("marshal tool results: %w", err)
		}
		msg.ToolCalls = datatypes.JSON(calls)
		msg.ToolResults = datatypes.JSON(results)
	}
	if err := s.Conversations.SaveAssistantTurn(ctx, msg, execs); err != nil {
		return nil, fmt.Errorf("save assistant turn: %w", err)
	}
	for i, e := range execs {
		s.Metrics.ToolExecution(e.ToolName, statuses[i])
	}
	return out, nil
}

func toolMetricStatus(status string, failed bool) string {
	if failed {
		return "failed"
	}
	return status
}
