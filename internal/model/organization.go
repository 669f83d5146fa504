package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is the invoice issuer (seller).
type Organization struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name       string    `gorm:"not null"`
	LegalForm  *string
	Street     string  `gorm:"not null"`
	PostalCode string  `gorm:"type:varchar(16);not null"`
	City       string  `gorm:"not null"`
	Country    string  `gorm:"type:varchar(2);not null;default:'DE'"`
	VATID      *string `gorm:"type:varchar(20);column:vat_id"` // USt-IdNr.
	TaxNumber  *string `gorm:"type:varchar(32)"`               // Steuernummer
	Email      *string
	Phone      *string
	IBAN       *string `gorm:"type:varchar(34);column:iban"`
	BIC        *string `gorm:"type:varchar(11);column:bic"`
	// DefaultCurrency is applied to new invoices that do not name one
	DefaultCurrency string `gorm:"type:varchar(3);not null;default:'EUR'"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (o *Organization) BeforeCreate(_ *gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// Customer is the invoice recipient (buyer). It belongs to one Organization.
type Customer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null"`
	Name           string    `gorm:"not null"`
	Street         string    `gorm:"not null"`
	PostalCode     string    `gorm:"type:varchar(16);not null"`
	City           string    `gorm:"not null"`
	Country        string    `gorm:"type:varchar(2);not null"`
	VATID          *string   `gorm:"type:varchar(20);column:vat_id"`
	Email          *string
	Language       string `gorm:"type:varchar(5);not null;default:'de'"`
	Currency       string `gorm:"type:varchar(3);not null;default:'EUR'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c *Customer) BeforeCreate(_ *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// assignID gives rows a client-side UUID so inserts work on every gorm dialect.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// deref returns the pointed-to string or "".
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
