package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/events"
	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/metrics"
)

// claimedOutput marks an execution that was claimed but whose action has not
// finished yet.
var claimedOutput = datatypes.JSON(`{"status":"applying"}`)

// ConfirmResult is returned once a pending action has been applied.
type ConfirmResult struct {
	ExecutionID string          `json:"executionId"`
	ToolName    string          `json:"toolName"`
	Status      string          `json:"status"`
	Output      json.RawMessage `json:"output"`
	ExecutedAt  time.Time       `json:"executedAt"`
}

// ToolExecutionService applies actions that were held for human confirmation.
type ToolExecutionService interface {
	Confirm(ctx context.Context, caller tools.Caller, executionID string) (*ConfirmResult, error)
}

type toolExecutionService struct {
	conversations repository.ConversationRepository
	tools         tools.Deps
	publisher     events.Publisher
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewToolExecutionService 创建一个新的 ToolExecutionService 实例。A nil publisher drops events.
func NewToolExecutionService(conversations repository.ConversationRepository, deps tools.Deps, publisher events.Publisher, m *metrics.Metrics) ToolExecutionService {
	return &toolExecutionService{conversations: conversations, tools: deps, publisher: publisher, metrics: m, now: time.Now}
}

// Confirm claims the pending row with a conditional update before applying,
// so concurrent confirmations apply the action at most once.
func (s *toolExecutionService) Confirm(ctx context.Context, caller tools.Caller, executionID string) (*ConfirmResult, error) {
	if _, ok := caller.(tools.StaffCaller); !ok {
		return nil, ErrForbidden
	}
	firmID := caller.TenantID()

	exec, err := s.conversations.FindToolExecution(ctx, firmID, executionID)
	if repository.IsNotFound(err) {
		return nil, ErrToolExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find tool execution: %w", err)
	}
	if exec.UserID != caller.ActorID() {
		return nil, ErrForbidden
	}
	if exec.Status != model.ToolStatusPending {
		return nil, ErrAlreadyExecuted
	}

	registry := tools.New(caller, s.tools)
	if !registry.RequiresConfirmation(exec.ToolName) {
		return nil, ErrForbidden
	}

	now := s.now()
	claimed, err := s.conversations.MarkToolExecuted(ctx, firmID, exec.ID, claimedOutput, now)
	if err != nil {
		return nil, fmt.Errorf("claim tool execution: %w", err)
	}
	if !claimed {
		return nil, ErrAlreadyExecuted
	}

	applied, applyErr := registry.Apply(ctx, exec.ToolName, json.RawMessage(exec.Input))
	if applyErr != nil {
		raw, _ := json.Marshal(map[string]string{"error": applyErr.Error()})
		if err := s.conversations.SetToolOutput(ctx, firmID, exec.ID, raw); err != nil {
			log.Errorw("记录工具执行失败结果出错", "executionId", exec.ID, "error", err)
		}
		s.metrics.ToolExecution(exec.ToolName, "failed")
		return nil, &ActionError{Tool: exec.ToolName, Err: applyErr}
	}

	// 操作已生效：输出写入失败只记录日志，结果照常返回并发布事件
	if err := s.conversations.SetToolOutput(ctx, firmID, exec.ID, datatypes.JSON(applied.Output)); err != nil {
		log.Errorw("保存工具执行结果失败", "tool", exec.ToolName, "executionId", exec.ID, "lawFirmId", firmID, "error", err)
	}
	s.metrics.ToolExecution(exec.ToolName, "confirmed")
	log.Infow("工具操作已确认执行", "tool", exec.ToolName, "executionId", exec.ID, "lawFirmId", firmID, "userId", caller.ActorID())

	if applied.Event != nil && s.publisher != nil {
		if err := s.publisher.Publish(ctx, *applied.Event); err != nil {
			log.Errorw("发布通知事件失败", "eventType", applied.Event.EventType, "lawFirmId", firmID, "matterId", applied.Event.MatterID, "error", err)
		}
	}

	return &ConfirmResult{
		ExecutionID: exec.ID,
		ToolName:    exec.ToolName,
		Status:      model.ToolStatusExecuted,
		Output:      applied.Output,
		ExecutedAt:  now,
	}, nil
}
