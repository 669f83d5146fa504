package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxCategory is the VAT treatment of a single invoice line.
type TaxCategory string

const (
	TaxStandard      TaxCategory = "standard"
	TaxReduced       TaxCategory = "reduced"
	TaxZero          TaxCategory = "zero"
	TaxReverseCharge TaxCategory = "reverse_charge"
	TaxEUSupply      TaxCategory = "eu_supply"
	TaxExport        TaxCategory = "export"
)

// TaxCategories lists every category in declaration order.
var TaxCategories = []TaxCategory{TaxStandard, TaxReduced, TaxZero, TaxReverseCharge, TaxEUSupply, TaxExport}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusDraft      InvoiceStatus = "draft"
	StatusApproved   InvoiceStatus = "approved"
	StatusSent       InvoiceStatus = "sent"
	StatusPartlyPaid InvoiceStatus = "partly_paid"
	StatusPaid       InvoiceStatus = "paid"
	StatusOverdue    InvoiceStatus = "overdue"
	StatusCancelled  InvoiceStatus = "cancelled"
)

// InvoiceType: "regular" | "credit_note" | "self_billing" | "advance" | "final" | "correction"
type InvoiceType string

const (
	InvoiceRegular     InvoiceType = "regular"
	InvoiceCreditNote  InvoiceType = "credit_note"
	InvoiceSelfBilling InvoiceType = "self_billing"
	InvoiceAdvance     InvoiceType = "advance"
	InvoiceFinal       InvoiceType = "final"
	InvoiceCorrection  InvoiceType = "correction"
)

// Invoice is the aggregate root. Lines are fixed at creation; Payments only grow.
type Invoice struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_org_number"`
	CustomerID     uuid.UUID     `gorm:"type:uuid;index;not null"`
	Number         string        `gorm:"type:varchar(40);not null;uniqueIndex:idx_invoice_org_number"`
	Type           InvoiceType   `gorm:"type:varchar(20);not null;default:'regular'"`
	Status         InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	IssueDate      time.Time     `gorm:"type:date;not null;index"`
	// Service period (Leistungszeitraum); only Start set means a single delivery date
	ServicePeriodStart *time.Time `gorm:"type:date"`
	ServicePeriodEnd   *time.Time `gorm:"type:date"`
	DueDate            *time.Time `gorm:"type:date"`
	Currency           string     `gorm:"type:varchar(3);not null;default:'EUR'"`
	ReverseCharge      bool       `gorm:"not null;default:false"`
	SelfBilling        bool       `gorm:"not null;default:false"`
	TaxExemptionText   *string
	PaymentTerms       *string
	// BaseDocumentNumber references the corrected or settled invoice
	BaseDocumentNumber *string `gorm:"type:varchar(40)"`
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Issuer   Organization  `gorm:"foreignKey:OrganizationID"`
	Customer Customer      `gorm:"foreignKey:CustomerID"`
	Lines    []InvoiceLine `gorm:"foreignKey:InvoiceID"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID"`
}

func (i *Invoice) BeforeCreate(_ *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// AddPayment appends p to the owned payment list. Existing payments are never touched.
func (i *Invoice) AddPayment(p Payment) {
	p.InvoiceID = i.ID
	i.Payments = append(i.Payments, p)
}

// TotalPaid sums all recorded payments.
func (i *Invoice) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range i.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// ExemptionText returns the free-text exemption reason or "".
func (i *Invoice) ExemptionText() string { return deref(i.TaxExemptionText) }

// InvoiceLine is one billed position. Base = NetPrice × Quantity.
type InvoiceLine struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	Position      int             `gorm:"not null"`
	ArticleNumber *string         `gorm:"type:varchar(40)"`
	Description   string          `gorm:"not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Unit          string          `gorm:"type:varchar(8);not null;default:'h'"`
	NetPrice      decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	TaxCategory   TaxCategory     `gorm:"type:varchar(20);not null;default:'standard'"`
	// TaxRate is a fraction (0.19), not a percentage
	TaxRate   decimal.Decimal `gorm:"type:decimal(5,4);not null"`
	CreatedAt time.Time
}

func (l *InvoiceLine) BeforeCreate(_ *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// Base is the extended net amount of the line.
func (l InvoiceLine) Base() decimal.Decimal {
	return l.NetPrice.Mul(l.Quantity)
}
