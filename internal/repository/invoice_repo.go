package repository

import (
	"context"
	"strings"
	"time"

	"invoicetool/internal/dto"
	"invoicetool/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// FindForUpdate loads the aggregate and holds a row lock on the invoice until tx ends.
	FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Invoice, error)
	// FindByNumber matches the number case-insensitively within one organization.
	FindByNumber(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, number string) (*model.Invoice, error)
	NumberExists(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, number string) (bool, error)
	List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error)
	ListOpen(ctx context.Context, orgID uuid.UUID) ([]model.Invoice, error)
	ListForPeriod(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]model.Invoice, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.InvoiceStatus) error
	CreatePayment(ctx context.Context, tx *gorm.DB, p *model.Payment) error
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

// conn prefers the caller's transaction.
func (r *invoiceRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func preloadAggregate(q *gorm.DB) *gorm.DB {
	return q.Preload("Issuer").
		Preload("Customer").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("booking_date ASC, created_at ASC") })
}

func (r *invoiceRepo) Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error {
	return r.conn(ctx, tx).Omit("Issuer", "Customer").Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := preloadAggregate(r.db.WithContext(ctx)).First(&inv, "id = ?", id).Error
	return &inv, err
}

func (r *invoiceRepo) FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := preloadAggregate(r.conn(ctx, tx).Clauses(clause.Locking{Strength: "UPDATE"})).
		First(&inv, "id = ?", id).Error
	return &inv, err
}

func (r *invoiceRepo) FindByNumber(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, number string) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.conn(ctx, tx).
		Where("organization_id = ? AND UPPER(number) = ?", orgID, strings.ToUpper(strings.TrimSpace(number))).
		First(&inv).Error
	return &inv, err
}

func (r *invoiceRepo) NumberExists(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, number string) (bool, error) {
	var n int64
	err := r.conn(ctx, tx).Model(&model.Invoice{}).
		Where("organization_id = ? AND number = ?", orgID, number).
		Count(&n).Error
	return n > 0, err
}

func (r *invoiceRepo) List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Invoice{})
	if filter.OrganizationID != "" {
		q = q.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := preloadAggregate(q).
		Order("issue_date DESC, number DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error

	return invoices, total, err
}

func (r *invoiceRepo) ListOpen(ctx context.Context, orgID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := preloadAggregate(r.db.WithContext(ctx)).
		Where("organization_id = ? AND status <> ?", orgID, model.StatusCancelled).
		Order("due_date ASC, number ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) ListForPeriod(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("organization_id = ? AND status <> ? AND issue_date BETWEEN ? AND ?",
			orgID, model.StatusCancelled, start, end).
		Order("issue_date ASC, number ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.InvoiceStatus) error {
	return r.conn(ctx, tx).Model(&model.Invoice{}).Where("id = ?", id).Update("status", status).Error
}

func (r *invoiceRepo) CreatePayment(ctx context.Context, tx *gorm.DB, p *model.Payment) error {
	return r.conn(ctx, tx).Create(p).Error
}
