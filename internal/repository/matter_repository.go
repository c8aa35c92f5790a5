package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"prima-facie-go/internal/model"
)

// MatterScope restricts a query to a set of matter ids. A restricted scope with
// no ids matches nothing.
type MatterScope struct {
	Restricted bool
	IDs        []string
}

// Restrict returns a restricted scope over ids.
func Restrict(ids []string) MatterScope {
	return MatterScope{Restricted: true, IDs: ids}
}

func (s MatterScope) empty() bool {
	return s.Restricted && len(s.IDs) == 0
}

func (s MatterScope) apply(q *gorm.DB, column string) *gorm.DB {
	if s.Restricted {
		return q.Where(column+" IN ?", s.IDs)
	}
	return q
}

// MatterFilter narrows ListMatters.
type MatterFilter struct {
	Scope  MatterScope
	Status string
	Search string
	Limit  int
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	Scope      MatterScope
	MatterID   string
	Status     string
	AssignedTo string
	Limit      int
}

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter struct {
	Scope     MatterScope
	ContactID string
	MatterID  string
	Status    string
	Limit     int
}

// DocumentFilter narrows ListDocuments.
type DocumentFilter struct {
	Scope    MatterScope
	MatterID string
	Limit    int
	Offset   int
}

// MatterRepository is the tenant-scoped read/write surface over firm records
// used by assistant tools, the context builder and the notification engine.
type MatterRepository interface {
	GetMatter(ctx context.Context, lawFirmID, id string) (*model.Matter, error)
	ListMatters(ctx context.Context, lawFirmID string, f MatterFilter) ([]model.Matter, error)
	UpdateMatterStatus(ctx context.Context, lawFirmID, id, status string) (previous string, err error)
	MatterIDsForContact(ctx context.Context, lawFirmID, contactID string) ([]string, error)
	FirstContactForMatter(ctx context.Context, lawFirmID, matterID string) (string, error)
	MattersWithDeadlineBetween(ctx context.Context, from, to time.Time) ([]model.Matter, error)

	GetContact(ctx context.Context, lawFirmID, id string) (*model.Contact, error)
	ListContacts(ctx context.Context, lawFirmID, search string, limit int) ([]model.Contact, error)

	GetTask(ctx context.Context, lawFirmID, id string) (*model.Task, error)
	ListTasks(ctx context.Context, lawFirmID string, f TaskFilter) ([]model.Task, error)
	CreateTask(ctx context.Context, task *model.Task) error

	GetInvoice(ctx context.Context, lawFirmID, id string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, lawFirmID string, f InvoiceFilter) ([]model.Invoice, error)
	CreateInvoice(ctx context.Context, inv *model.Invoice) error

	GetDocument(ctx context.Context, lawFirmID, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, lawFirmID string, f DocumentFilter) ([]model.Document, error)
}

type matterRepository struct {
	db *gorm.DB
}

// NewMatterRepository 创建一个新的 MatterRepository 实例。
func NewMatterRepository(db *gorm.DB) MatterRepository {
	return &matterRepository{db: db}
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

const defaultListLimit = 20

func limitOrDefault(n int) int {
	if n <= 0 || n > 100 {
		return defaultListLimit
	}
	return n
}

// likeEscaper 让用户输入中的 % 和 _ 按字面匹配
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '!'.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func (r *matterRepository) tenant(ctx context.Context, lawFirmID string) *gorm.DB {
	return r.db.WithContext(ctx).Where("law_firm_id = ?", lawFirmID)
}

func (r *matterRepository) GetMatter(ctx context.Context, lawFirmID, id string) (*model.Matter, error) {
	var m model.Matter
	if err := r.tenant(ctx, lawFirmID).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *matterRepository) ListMatters(ctx context.Context, lawFirmID string, f MatterFilter) ([]model.Matter, error) {
	if f.Scope.empty() {
		return []model.Matter{}, nil
	}
	q := f.Scope.apply(r.tenant(ctx, lawFirmID), "id")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := likePattern(s)
		q = q.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(matter_number) LIKE ? ESCAPE '!'", like, like)
	}
	var matters []model.Matter
	err := q.Order("updated_at DESC").Limit(limitOrDefault(f.Limit)).Find(&matters).Error
	return matters, err
}

func (r *matterRepository) UpdateMatterStatus(ctx context.Context, lawFirmID, id, status string) (string, error) {
	var previous string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Matter
		if err := tx.Where("law_firm_id = ? AND id = ?", lawFirmID, id).First(&m).Error; err != nil {
			return err
		}
		previous = m.Status
		return tx.Model(&model.Matter{}).
			Where("law_firm_id = ? AND id = ?", lawFirmID, id).
			Update("status", status).Error
	})
	return previous, err
}

func (r *matterRepository) MatterIDsForContact(ctx context.Context, lawFirmID, contactID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.MatterContact{}).
		Where("law_firm_id = ? AND contact_id = ?", lawFirmID, contactID).
		Order("matter_id").
		Pluck("matter_id", &ids).Error
	return ids, err
}

// FirstContactForMatter returns "" when the matter has no linked contact.
func (r *matterRepository) FirstContactForMatter(ctx context.Context, lawFirmID, matterID string) (string, error) {
	var links []model.MatterContact
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND matter_id = ?", lawFirmID, matterID).
		Order("contact_id").
		Limit(1).
		Find(&links).Error
	if err != nil || len(links) == 0 {
		return "", err
	}
	return links[0].ContactID, nil
}

// MattersWithDeadlineBetween spans all tenants; only the deadline scanner uses it.
func (r *matterRepository) MattersWithDeadlineBetween(ctx context.Context, from, to time.Time) ([]model.Matter, error) {
	var matters []model.Matter
	err := r.db.WithContext(ctx).
		Where("next_deadline >= ? AND next_deadline < ? AND status = ?", from, to, model.MatterStatusActive).
		Order("next_deadline ASC").
		Find(&matters).Error
	return matters, err
}

func (r *matterRepository) GetContact(ctx context.Context, lawFirmID, id string) (*model.Contact, error) {
	var c model.Contact
	if err := r.tenant(ctx, lawFirmID).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *matterRepository) ListContacts(ctx context.Context, lawFirmID, search string, limit int) ([]model.Contact, error) {
	q := r.tenant(ctx, lawFirmID)
	if s := strings.TrimSpace(search); s != "" {
		like := likePattern(s)
		q = q.Where("LOWER(full_name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'", like, like)
	}
	var contacts []model.Contact
	err := q.Order("full_name ASC").Limit(limitOrDefault(limit)).Find(&contacts).Error
	return contacts, err
}

func (r *matterRepository) GetTask(ctx context.Context, lawFirmID, id string) (*model.Task, error) {
	var t model.Task
	if err := r.tenant(ctx, lawFirmID).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *matterRepository) ListTasks(ctx context.Context, lawFirmID string, f TaskFilter) ([]model.Task, error) {
	if f.Scope.empty() {
		return []model.Task{}, nil
	}
	q := f.Scope.apply(r.tenant(ctx, lawFirmID), "matter_id")
	if f.MatterID != "" {
		q = q.Where("matter_id = ?", f.MatterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	var tasks []model.Task
	err := q.Order("due_date ASC").Limit(limitOrDefault(f.Limit)).Find(&tasks).Error
	return tasks, err
}

func (r *matterRepository) CreateTask(ctx context.Context, task *model.Task) error {
	if task.LawFirmID == "" {
		return errors.New("task must carry a law firm id")
	}
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *matterRepository) GetInvoice(ctx context.Context, lawFirmID, id string) (*model.Invoice, error) {
	var inv model.Invoice
	if err := r.tenant(ctx, lawFirmID).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *matterRepository) ListInvoices(ctx context.Context, lawFirmID string, f InvoiceFilter) ([]model.Invoice, error) {
	if f.Scope.empty() {
		return []model.Invoice{}, nil
	}
	q := f.Scope.apply(r.tenant(ctx, lawFirmID), "matter_id")
	if f.ContactID != "" {
		q = q.Where("contact_id = ?", f.ContactID)
	}
	if f.MatterID != "" {
		q = q.Where("matter_id = ?", f.MatterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var invoices []model.Invoice
	err := q.Order("created_at DESC").Limit(limitOrDefault(f.Limit)).Find(&invoices).Error
	return invoices, err
}

func (r *matterRepository) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	if inv.LawFirmID == "" {
		return errors.New("invoice must carry a law firm id")
	}
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *matterRepository) GetDocument(ctx context.Context, lawFirmID, id string) (*model.Document, error) {
	var d model.Document
	if err := r.tenant(ctx, lawFirmID).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *matterRepository) ListDocuments(ctx context.Context, lawFirmID string, f DocumentFilter) ([]model.Document, error) {
	if f.Scope.empty() {
		return []model.Document{}, nil
	}
	q := f.Scope.apply(r.tenant(ctx, lawFirmID), "matter_id")
	if f.MatterID != "" {
		q = q.Where("matter_id = ?", f.MatterID)
	}
	var docs []model.Document
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	err := q.Order("created_at DESC, id").Limit(limitOrDefault(f.Limit)).Find(&docs).Error
	return docs, err
}
