package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/config"
	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/pkg/llm"
	"prima-facie-go/pkg/llm/llmtest"
	"prima-facie-go/pkg/tasks"
)

// pendingExecution runs a chat turn in which caller asks for a confirmed action.
func pendingExecution(t *testing.T, h *harness, caller tools.Caller, name string, args string) string {
	t.Helper()
	h.llm.Responses = append(h.llm.Responses,
		llmtest.Calls(1, 1, llm.ToolCall{ID: "call_x", Name: name, Arguments: json.RawMessage(args)}),
		llmtest.Text("Aguardando confirmação.", 1, 1),
	)
	reply, err := h.chatService(config.AIConfig{}).Chat(context.Background(), caller, ChatRequest{Message: "faça isso"})
	require.NoError(t, err)
	require.Len(t, reply.Message.ToolResults, 1)
	require.True(t, reply.Message.ToolResults[0].RequiresConfirmation, string(reply.Message.ToolResults[0].Output))
	return reply.Message.ToolResults[0].ExecutionID
}

func TestConfirmAppliesMatterStatusOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := pendingExecution(t, h, h.lawyer(), "update_matter_status",
		`{"matterId":"`+h.f.MatterA.ID+`","status":"settled","reason":"acordo homologado"}`)

	pub := &recordingPublisher{}
	svc := NewToolExecutionService(h.convs, tools.Deps{Matters: h.matters}, pub, nil)

	res, err := svc.Confirm(ctx, h.lawyer(), id)
	require.NoError(t, err)
	assert.Equal(t, model.ToolStatusExecuted, res.Status)
	assert.Equal(t, "update_matter_status", res.ToolName)
	assert.Contains(t, string(res.Output), `"updated":true`)

	m, err := h.matters.GetMatter(ctx, h.f.Firm.ID, h.f.MatterA.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatterStatusSettled, m.Status)

	exec, err := h.convs.FindToolExecution(ctx, h.f.Firm.ID, id)
	require.NoError(t, err)
	assert.Equal(t, model.ToolStatusExecuted, exec.Status)
	assert.NotNil(t, exec.ExecutedAt)
	assert.JSONEq(t, string(res.Output), string(exec.Output))

	evs := pub.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, tasks.EventMatterStatusChange, evs[0].EventType)
	assert.Equal(t, h.f.MatterA.ID, evs[0].MatterID)
	assert.Equal(t, "acordo homologado", evs[0].Metadata["new_status"])
	assert.Equal(t, "acordo homologado", evs[0].Metadata["reason"])

	_, err = svc.Confirm(ctx, h.lawyer(), id)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
	assert.Len(t, pub.Events(), 1)
}

func TestConfirmCreatesInvoiceDraft(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := pendingExecution(t, h, h.admin(), "create_invoice_draft",
		`{"matterId":"`+h.f.MatterA.ID+`","amount":2500,"description":"Honorários"}`)
	before := h.count(t, &model.Invoice{}, "")

	pub := &recordingPublisher{}
	svc := NewToolExecutionService(h.convs, tools.Deps{Matters: h.matters}, pub, nil)
	_, err := svc.Confirm(ctx, h.admin(), id)
	require.NoError(t, err)

	assert.Equal(t, before+1, h.count(t, &model.Invoice{}, ""))
	assert.Equal(t, int64(1), h.count(t, &model.Invoice{}, "status = ? AND contact_id = ?", "draft", h.f.Ana.ID))
	evs := pub.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, tasks.EventInvoiceCreated, evs[0].EventType)
}

func TestConfirmIsRestrictedToRequester(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := pendingExecution(t, h, h.lawyer(), "update_matter_status",
		`{"matterId":"`+h.f.MatterA.ID+`","status":"closed"}`)
	svc := NewToolExecutionService(h.convs, tools.Deps{Matters: h.matters}, nil, nil)

	_, err := svc.Confirm(ctx, h.admin(), id)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Confirm(ctx, h.ana(), id)
	assert.ErrorIs(t, err, ErrForbidden)

	other := tools.StaffCaller{LawFirmID: h.f.Other.ID, UserID: h.f.Lawyer.ID, Role: model.UserTypeLawyer}
	_, err = svc.Confirm(ctx, other, id)
	assert.ErrorIs(t, err, ErrToolExecutionNotFound)

	_, err = svc.Confirm(ctx, h.lawyer(), "missing")
	assert.ErrorIs(t, err, ErrToolExecutionNotFound)

	exec, err := h.convs.FindToolExecution(ctx, h.f.Firm.ID, id)
	require.NoError(t, err)
	assert.Equal(t, model.ToolStatusPending, exec.Status)
}

func TestConfirmRecordsFailedAction(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	conv := &model.AIConversation{LawFirmID: h.f.Firm.ID, UserID: &h.f.Lawyer.ID, Title: "t"}
	require.NoError(t, h.convs.CreateConversation(ctx, conv))
	exec := model.ToolExecution{
		LawFirmID:      h.f.Firm.ID,
		ConversationID: conv.ID,
		MessageID:      "m",
		UserID:         h.f.Lawyer.ID,
		ToolName:       "update_matter_status",
		Input:          datatypes.JSON(`{"matterId":"gone","status":"closed"}`),
		Status:         model.ToolStatusPending,
	}
	require.NoError(t, h.db.Create(&exec).Error)

	svc := NewToolExecutionService(h.convs, tools.Deps{Matters: h.matters}, nil, nil)
	_, err := svc.Confirm(ctx, h.lawyer(), exec.ID)
	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "update_matter_status", actionErr.Tool)
	assert.Contains(t, err.Error(), "não encontrado")

	stored, err := h.convs.FindToolExecution(ctx, h.f.Firm.ID, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ToolStatusExecuted, stored.Status)
	assert.Contains(t, string(stored.Output), `"error"`)
}

func TestConfirmRejectsImmediateTools(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	conv := &model.AIConversation{LawFirmID: h.f.Firm.ID, UserID: &h.f.Lawyer.ID, Title: "t"}
	require.NoError(t, h.convs.CreateConversation(ctx, conv))
	exec := model.ToolExecution{
		LawFirmID:      h.f.Firm.ID,
		ConversationID: conv.ID,
		UserID:         h.f.Lawyer.ID,
		ToolName:       "create_task",
		Input:          datatypes.JSON(`{"title":"x"}`),
		Status:         model.ToolStatusPending,
	}
	require.NoError(t, h.db.Create(&exec).Error)

	svc := NewToolExecutionService(h.convs, tools.Deps{Matters: h.matters}, nil, nil)
	_, err := svc.Confirm(ctx, h.lawyer(), exec.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

type failingOutputRepo struct {
	repository.ConversationRepository
}

func (failingOutputRepo) SetToolOutput(context.Context, string, string, datatypes.JSON) error {
	return errors.New("connection reset")
}

// The action already took effect, so a failed output write must not hide it.
func TestConfirmSucceedsWhenOutputWriteFails(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	id := pendingExecution(t, h, h.lawyer(), "update_matter_status",
		`{"matterId":"`+h.f.MatterA.ID+`","status":"settled"}`)

	pub := &recordingPublisher{}
	svc := NewToolExecutionService(failingOutputRepo{h.convs}, tools.Deps{Matters: h.matters}, pub, nil)

	res, err := svc.Confirm(ctx, h.lawyer(), id)
	require.NoError(t, err)
	assert.Equal(t, model.ToolStatusExecuted, res.Status)
	assert.Contains(t, string(res.Output), `"updated":true`)

	m, err := h.matters.GetMatter(ctx, h.f.Firm.ID, h.f.MatterA.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatterStatusSettled, m.Status)

	evs := pub.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, tasks.EventMatterStatusChange, evs[0].EventType)

	_, err = svc.Confirm(ctx, h.lawyer(), id)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
}
