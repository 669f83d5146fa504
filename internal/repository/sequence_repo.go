package repository

import (
	"context"

	"invoicetool/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceInvoice is the sequence type used for invoice numbers.
const SequenceInvoice = "invoice"

type SequenceRepository interface {
	// Next increments and returns the counter for (org, prefix, seqType).
	// Must run inside tx; the sequence row stays locked until tx ends so
	// numbers are gap-free per prefix.
	Next(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, prefix, seqType string) (int, error)
}

type sequenceRepo struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) SequenceRepository { return &sequenceRepo{db: db} }

func (r *sequenceRepo) Next(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, prefix, seqType string) (int, error) {
	if tx == nil {
		tx = r.db
	}
	q := tx.WithContext(ctx)

	seed := model.NumberSequence{OrganizationID: orgID, Prefix: prefix, SequenceType: seqType}
	if err := q.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, err
	}

	var seq model.NumberSequence
	err := q.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND prefix = ? AND sequence_type = ?", orgID, prefix, seqType).
		First(&seq).Error
	if err != nil {
		return 0, err
	}

	seq.LastNumber++
	if err := q.Model(&seq).Update("last_number", seq.LastNumber).Error; err != nil {
		return 0, err
	}
	return seq.LastNumber, nil
}
