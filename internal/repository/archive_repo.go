package repository

import (
	"context"

	"invoicetool/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ArchiveRepository interface {
	Create(ctx context.Context, e *model.ArchiveEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ArchiveEntry, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.ArchiveEntry, error)
}

type archiveRepo struct{ db *gorm.DB }

func NewArchiveRepository(db *gorm.DB) ArchiveRepository { return &archiveRepo{db: db} }

func (r *archiveRepo) Create(ctx context.Context, e *model.ArchiveEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *archiveRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ArchiveEntry, error) {
	var e model.ArchiveEntry
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *archiveRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.ArchiveEntry, error) {
	var entries []model.ArchiveEntry
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}
