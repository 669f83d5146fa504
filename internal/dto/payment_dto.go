package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// RegisterPaymentRequest books one payment. Negative amounts record refunds.
type RegisterPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"       validate:"required"`
	Currency    string          `json:"currency"     validate:"omitempty,len=3"`
	BookingDate *string         `json:"booking_date" validate:"omitempty,datetime=2006-01-02"`
	Reference   *string         `json:"reference"    validate:"omitempty,max=140"`
	Source      string          `json:"source"       validate:"omitempty,oneof=bank psp manual"`
}

type BankTransaction struct {
	Reference   string          `json:"reference"    validate:"required,max=140"`
	Amount      decimal.Decimal `json:"amount"       validate:"required"`
	Currency    string          `json:"currency"     validate:"omitempty,len=3"`
	BookingDate string          `json:"booking_date" validate:"required,datetime=2006-01-02"`
}

type ReconcileRequest struct {
	OrganizationID string            `json:"organization_id" validate:"required,uuid"`
	Transactions   []BankTransaction `json:"transactions"    validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PaymentResponse struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	BookingDate string          `json:"booking_date"`
	Reference   *string         `json:"reference,omitempty"`
	Source      string          `json:"source"`
}

type RegisterPaymentResponse struct {
	Payment     PaymentResponse `json:"payment"`
	Status      string          `json:"status"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type ReconciledInvoice struct {
	InvoiceID string `json:"invoice_id"`
	Number    string `json:"number"`
	Status    string `json:"status"`
}

type ReconcileResponse struct {
	Payments  []PaymentResponse   `json:"payments"`
	Invoices  []ReconciledInvoice `json:"invoices"`
	Unmatched []string            `json:"unmatched"`
}
