package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prima-facie-go/internal/model"
	"prima-facie-go/internal/repository"
	"prima-facie-go/internal/testfixture"
	"prima-facie-go/pkg/tasks"
)

func setup(t *testing.T) (*testfixture.Firm, repository.MatterRepository) {
	t.Helper()
	db := testfixture.OpenDB(t)
	f := testfixture.Seed(t, db, nil)
	return f, repository.NewMatterRepository(db)
}

func decodeOutput(t *testing.T, res Result) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(res.Output, &out))
	return out
}

func listIDs(t *testing.T, out map[string]any, key string) []string {
	t.Helper()
	rows, ok := out[key].([]any)
	require.True(t, ok, "missing %s in %v", key, out)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.(map[string]any)["id"].(string))
	}
	return ids
}

func TestStaffToolsAreGatedByRole(t *testing.T) {
	f, matters := setup(t)
	deps := Deps{Matters: matters}

	admin := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Admin.ID, Role: model.UserTypeAdmin}, deps)
	lawyer := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Lawyer.ID, Role: model.UserTypeLawyer}, deps)
	staff := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Staff.ID, Role: model.UserTypeStaff}, deps)

	assert.Equal(t, []string{"create_invoice_draft", "create_task", "query_contacts", "query_invoices", "query_matters", "query_tasks", "update_matter_status"}, admin.Names())
	assert.Equal(t, []string{"create_task", "query_contacts", "query_invoices", "query_matters", "query_tasks", "update_matter_status"}, lawyer.Names())
	assert.Equal(t, []string{"create_task", "query_contacts", "query_matters", "query_tasks"}, staff.Names())

	assert.False(t, admin.Has("search_documents"), "search is only offered when a searcher is configured")
	assert.True(t, admin.RequiresConfirmation("update_matter_status"))
	assert.True(t, admin.RequiresConfirmation("create_invoice_draft"))
	assert.False(t, admin.RequiresConfirmation("create_task"))
}

func TestClientToolsAreReadOnlyLookups(t *testing.T) {
	f, matters := setup(t)
	r := New(ClientCaller{LawFirmID: f.Firm.ID, UserID: f.AnaProfile.ID, ContactID: f.Ana.ID}, Deps{Matters: matters})
	assert.Equal(t, []string{"query_my_documents", "query_my_invoices", "query_my_matters", "query_my_tasks"}, r.Names())
	for _, d := range r.Definitions() {
		assert.False(t, r.RequiresConfirmation(d.Name))
		assert.Equal(t, "object", d.Parameters["type"])
	}
}

func TestClientToolsNeverLeakOtherContacts(t *testing.T) {
	f, matters := setup(t)
	ctx := context.Background()
	ana := New(ClientCaller{LawFirmID: f.Firm.ID, UserID: f.AnaProfile.ID, ContactID: f.Ana.ID}, Deps{Matters: matters})

	res := ana.Execute(ctx, "query_my_matters", nil)
	require.False(t, res.Failed, string(res.Output))
	out := decodeOutput(t, res)
	assert.Equal(t, []string{f.MatterA.ID}, listIDs(t, out, "matters"))
	row := out["matters"].([]any)[0].(map[string]any)
	assert.Equal(t, "active", row["status"])
	assert.Equal(t, "ativo", row["statusLabel"])

	res = ana.Execute(ctx, "query_my_tasks", json.RawMessage(`{"matterId":"`+f.MatterB.ID+`"}`))
	require.False(t, res.Failed)
	assert.Empty(t, listIDs(t, decodeOutput(t, res), "tasks"), "asking for another client's matter yields nothing")

	res = ana.Execute(ctx, "query_my_tasks", nil)
	assert.Equal(t, []string{f.TaskA.ID}, listIDs(t, decodeOutput(t, res), "tasks"))

	res = ana.Execute(ctx, "query_my_invoices", nil)
	assert.Equal(t, []string{f.InvoiceA.ID}, listIDs(t, decodeOutput(t, res), "invoices"))

	res = ana.Execute(ctx, "query_my_documents", nil)
	assert.Equal(t, []string{f.DocumentA.ID}, listIDs(t, decodeOutput(t, res), "documents"))
}

func TestClientWithoutMattersSeesNothing(t *testing.T) {
	f, matters := setup(t)
	r := New(ClientCaller{LawFirmID: f.Firm.ID, UserID: "u", ContactID: "no-such-contact"}, Deps{Matters: matters})
	for _, name := range r.Names() {
		res := r.Execute(context.Background(), name, nil)
		require.False(t, res.Failed, name)
		assert.EqualValues(t, 0, decodeOutput(t, res)["count"], name)
	}
}

type countingMatters struct {
	repository.MatterRepository
	lookups atomic.Int32
}

func (c *countingMatters) MatterIDsForContact(ctx context.Context, lawFirmID, contactID string) ([]string, error) {
	c.lookups.Add(1)
	return c.MatterRepository.MatterIDsForContact(ctx, lawFirmID, contactID)
}

func TestClientMatterLookupIsCachedPerRegistry(t *testing.T) {
	f, matters := setup(t)
	counting := &countingMatters{MatterRepository: matters}
	r := New(ClientCaller{LawFirmID: f.Firm.ID, UserID: f.AnaProfile.ID, ContactID: f.Ana.ID}, Deps{Matters: counting})
	for _, name := range r.Names() {
		r.Execute(context.Background(), name, nil)
	}
	assert.EqualValues(t, 1, counting.lookups.Load())

	fresh := New(ClientCaller{LawFirmID: f.Firm.ID, UserID: f.AnaProfile.ID, ContactID: f.Ana.ID}, Deps{Matters: counting})
	fresh.Execute(context.Background(), "query_my_matters", nil)
	assert.EqualValues(t, 2, counting.lookups.Load())
}

type failingMatters struct {
	repository.MatterRepository
}

func (failingMatters) ListMatters(context.Context, string, repository.MatterFilter) ([]model.Matter, error) {
	return nil, errors.New("connection reset")
}

func TestToolFailuresBecomeErrorPayloads(t *testing.T) {
	f, matters := setup(t)
	r := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Admin.ID, Role: model.UserTypeAdmin}, Deps{Matters: failingMatters{matters}})

	res := r.Execute(context.Background(), "query_matters", nil)
	assert.True(t, res.Failed)
	assert.Contains(t, decodeOutput(t, res)["error"], "connection reset")

	res = r.Execute(context.Background(), "drop_tables", nil)
	assert.True(t, res.Failed)
	assert.Contains(t, decodeOutput(t, res)["error"], "drop_tables")

	res = r.Execute(context.Background(), "create_task", json.RawMessage(`{"priority":"urgent"}`))
	assert.True(t, res.Failed)
	msg := decodeOutput(t, res)["error"].(string)
	assert.Contains(t, msg, "title")
	assert.Contains(t, msg, "priority")

	res = r.Execute(context.Background(), "create_task", json.RawMessage(`{not json`))
	assert.True(t, res.Failed)
}

func TestStaffQueriesAreTenantScoped(t *testing.T) {
	f, matters := setup(t)
	r := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Admin.ID, Role: model.UserTypeAdmin}, Deps{Matters: matters})
	res := r.Execute(context.Background(), "query_matters", nil)
	require.False(t, res.Failed)
	ids := listIDs(t, decodeOutput(t, res), "matters")
	assert.ElementsMatch(t, []string{f.MatterA.ID, f.MatterB.ID}, ids)

	res = r.Execute(context.Background(), "update_matter_status", json.RawMessage(`{"matterId":"`+f.OtherMatter.ID+`","status":"closed"}`))
	assert.True(t, res.Failed, "a matter of another firm is not found")
}

func TestCreateTaskRunsImmediately(t *testing.T) {
	f, matters := setup(t)
	r := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Staff.ID, Role: model.UserTypeStaff}, Deps{Matters: matters})
	res := r.Execute(context.Background(), "create_task", json.RawMessage(`{"title":"Ligar para a cliente","matterId":"`+f.MatterA.ID+`","dueDate":"2030-01-15"}`))
	require.False(t, res.Failed, string(res.Output))
	assert.False(t, res.RequiresConfirmation)

	tasksA, err := matters.ListTasks(context.Background(), f.Firm.ID, repository.TaskFilter{MatterID: f.MatterA.ID, AssignedTo: f.Staff.ID})
	require.NoError(t, err)
	require.Len(t, tasksA, 1)
	assert.Equal(t, "Ligar para a cliente", tasksA[0].Title)
	assert.Equal(t, "2030-01-15", tasksA[0].DueDate.Format("2006-01-02"))
}

func TestMatterStatusIsPreviewedThenApplied(t *testing.T) {
	f, matters := setup(t)
	ctx := context.Background()
	r := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Lawyer.ID, Role: model.UserTypeLawyer}, Deps{Matters: matters})
	args := json.RawMessage(`{"matterId":"` + f.MatterA.ID + `","status":"settled","reason":"acordo"}`)

	res := r.Execute(ctx, "update_matter_status", args)
	require.False(t, res.Failed, string(res.Output))
	assert.True(t, res.RequiresConfirmation)
	assert.Equal(t, true, decodeOutput(t, res)["requiresConfirmation"])

	m, err := matters.GetMatter(ctx, f.Firm.ID, f.MatterA.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatterStatusActive, m.Status, "preview does not write")

	applied, err := r.Apply(ctx, "update_matter_status", args)
	require.NoError(t, err)
	require.NotNil(t, applied.Event)
	assert.Equal(t, tasks.EventMatterStatusChange, applied.Event.EventType)
	assert.Equal(t, f.MatterA.ID, applied.Event.MatterID)
	assert.Equal(t, "acordo homologado", applied.Event.Metadata["new_status"])

	m, err = matters.GetMatter(ctx, f.Firm.ID, f.MatterA.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatterStatusSettled, m.Status)

	_, err = r.Apply(ctx, "create_task", json.RawMessage(`{"title":"x"}`))
	assert.ErrorIs(t, err, ErrNotConfirmable)
}

func TestInvoiceDraftDefaultsToMatterContact(t *testing.T) {
	f, matters := setup(t)
	ctx := context.Background()
	r := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Admin.ID, Role: model.UserTypeAdmin}, Deps{Matters: matters})
	args := json.RawMessage(`{"matterId":"` + f.MatterB.ID + `","amount":980.5}`)

	res := r.Execute(ctx, "create_invoice_draft", args)
	require.False(t, res.Failed, string(res.Output))
	assert.Equal(t, f.Bruno.ID, decodeOutput(t, res)["contactId"])

	applied, err := r.Apply(ctx, "create_invoice_draft", args)
	require.NoError(t, err)
	assert.Equal(t, tasks.EventInvoiceCreated, applied.Event.EventType)
	assert.Equal(t, f.Bruno.ID, applied.Event.ContactID)

	invs, err := matters.ListInvoices(ctx, f.Firm.ID, repository.InvoiceFilter{MatterID: f.MatterB.ID, Status: "draft"})
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.InDelta(t, 980.5, invs[0].TotalAmount, 0.001)
}

func TestInvoiceDraftNumbersAreDistinct(t *testing.T) {
	f, matters := setup(t)
	ctx := context.Background()
	r := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Admin.ID, Role: model.UserTypeAdmin}, Deps{Matters: matters})
	args := json.RawMessage(`{"matterId":"` + f.MatterA.ID + `","amount":100}`)

	for i := 0; i < 2; i++ {
		_, err := r.Apply(ctx, "create_invoice_draft", args)
		require.NoError(t, err)
	}
	invs, err := matters.ListInvoices(ctx, f.Firm.ID, repository.InvoiceFilter{MatterID: f.MatterA.ID, Status: "draft"})
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.NotEqual(t, invs[0].InvoiceNumber, invs[1].InvoiceNumber)
	for _, inv := range invs {
		assert.Regexp(t, `^RASC-\d{8}-[0-9A-F]{8}$`, inv.InvoiceNumber)
	}

	// 同一时刻生成也不重复
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.NotEqual(t, draftNumber(now), draftNumber(now))
}

type stubSearch struct{ firm string }

func (s *stubSearch) SearchDocuments(_ context.Context, lawFirmID, _ string, _ int) ([]DocumentHit, error) {
	s.firm = lawFirmID
	return []DocumentHit{{DocumentID: "d1", Name: "contrato.pdf", Score: 1.2}}, nil
}

func TestSearchDocumentsUsesCallerTenant(t *testing.T) {
	f, matters := setup(t)
	search := &stubSearch{}
	r := New(StaffCaller{LawFirmID: f.Firm.ID, UserID: f.Staff.ID, Role: model.UserTypeStaff}, Deps{Matters: matters, Search: search})
	require.True(t, r.Has("search_documents"))

	res := r.Execute(context.Background(), "search_documents", json.RawMessage(`{"query":"contrato"}`))
	require.False(t, res.Failed, string(res.Output))
	assert.Equal(t, f.Firm.ID, search.firm)
	assert.EqualValues(t, 1, decodeOutput(t, res)["count"])
}

type stubLinks struct{}

func (stubLinks) PresignedURL(_ context.Context, path string) (string, error) {
	return "https://files.test/" + path, nil
}

func TestClientDocumentsCarryDownloadLinks(t *testing.T) {
	f, matters := setup(t)
	r := New(ClientCaller{LawFirmID: f.Firm.ID, UserID: f.BrunoProfile.ID, ContactID: f.Bruno.ID}, Deps{Matters: matters, Links: stubLinks{}})
	res := r.Execute(context.Background(), "query_my_documents", nil)
	require.False(t, res.Failed)
	docs := decodeOutput(t, res)["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://files.test/"+f.DocumentB.StoragePath, docs[0].(map[string]any)["downloadUrl"])
}

func TestCallerFromProfile(t *testing.T) {
	contact := "c1"
	c, ok := CallerFromProfile(&model.Profile{ID: "p", LawFirmID: "f", UserType: model.UserTypeClient, ContactID: &contact})
	require.True(t, ok)
	assert.Equal(t, ClientCaller{LawFirmID: "f", UserID: "p", ContactID: "c1"}, c)

	_, ok = CallerFromProfile(&model.Profile{ID: "p", LawFirmID: "f", UserType: model.UserTypeClient})
	assert.False(t, ok)

	c, ok = CallerFromProfile(&model.Profile{ID: "p", LawFirmID: "f", UserType: model.UserTypeLawyer})
	require.True(t, ok)
	assert.Equal(t, StaffCaller{LawFirmID: "f", UserID: "p", Role: model.UserTypeLawyer}, c)
}
