package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is an immutable settlement event owned by one Invoice.
// Source: "bank" | "psp" | "manual"
// Corrections are booked as new (possibly negative) payments, never as updates.
type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	BookingDate time.Time       `gorm:"type:date;not null"`
	Reference   *string
	Source      string `gorm:"type:varchar(10);not null;default:'bank'"`
	CreatedAt   time.Time
}

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// NumberSequence backs gap-free invoice numbering per organization and prefix.
type NumberSequence struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_number_sequence"`
	Prefix         string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_number_sequence"`
	SequenceType   string    `gorm:"type:varchar(20);not null;default:'invoice';uniqueIndex:idx_number_sequence"`
	LastNumber     int       `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *NumberSequence) BeforeCreate(_ *gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// ArchiveEntry records one immutable document in the content-addressed archive.
// StoragePath is relative to ARCHIVE_PATH.
type ArchiveEntry struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;index;not null"`
	InvoiceID      *uuid.UUID `gorm:"type:uuid;index"`
	Filename       string     `gorm:"not null"`
	StoragePath    string     `gorm:"not null"`
	SHA256         string     `gorm:"type:varchar(64);not null;index;column:sha256"`
	MimeType       string     `gorm:"type:varchar(64);not null"`
	DocumentType   string     `gorm:"type:varchar(20);not null;default:'invoice'"`
	ValidUntil     *time.Time `gorm:"type:date"`
	CreatedAt      time.Time
}

func (a *ArchiveEntry) BeforeCreate(_ *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
