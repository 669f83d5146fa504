package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// InvoiceFilter is bound from the query string of GET /v1/invoices.
type InvoiceFilter struct {
	OrganizationID string `form:"organization_id" validate:"omitempty,uuid"`
	Status         string `form:"status"          validate:"omitempty,oneof=draft approved sent partly_paid paid overdue cancelled"`
	Page           int    `form:"page,default=1"   validate:"min=1"`
	Limit          int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type InvoiceListResponse struct {
	Data  []InvoiceResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type InvoiceLineRequest struct {
	ArticleNumber *string         `json:"article_number" validate:"omitempty,max=40"`
	Description   string          `json:"description"    validate:"required,max=500"`
	Quantity      decimal.Decimal `json:"quantity"       validate:"gt=0"`
	Unit          string          `json:"unit"           validate:"omitempty,max=8"`
	NetPrice      decimal.Decimal `json:"net_price"      validate:"min=0"`
	TaxCategory   string          `json:"tax_category"   validate:"required,oneof=standard reduced zero reverse_charge eu_supply export"`
	// TaxRate is a fraction: 0.19 for 19 %
	TaxRate decimal.Decimal `json:"tax_rate" validate:"min=0,max=1"`
}

// PaymentTermsRequest: DueDays derives the due date from the issue date when
// no explicit due_date is given.
type PaymentTermsRequest struct {
	DueDays *int    `json:"due_days" validate:"omitempty,min=0,max=365"`
	Text    *string `json:"text"     validate:"omitempty,max=500"`
}

type CreateInvoiceRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	CustomerID     string `json:"customer_id"     validate:"required,uuid"`
	// Number is generated when empty
	Number             *string              `json:"number"               validate:"omitempty,max=40"`
	Type               string               `json:"type"                 validate:"omitempty,oneof=regular credit_note self_billing advance final correction"`
	IssueDate          *string              `json:"issue_date"           validate:"omitempty,datetime=2006-01-02"`
	ServicePeriodStart *string              `json:"service_period_start" validate:"omitempty,datetime=2006-01-02"`
	ServicePeriodEnd   *string              `json:"service_period_end"   validate:"omitempty,datetime=2006-01-02"`
	DueDate            *string              `json:"due_date"             validate:"omitempty,datetime=2006-01-02"`
	Currency           string               `json:"currency"             validate:"omitempty,len=3"`
	ReverseCharge      bool                 `json:"reverse_charge"`
	SelfBilling        bool                 `json:"self_billing"`
	TaxExemptionText   *string              `json:"tax_exemption_text"   validate:"omitempty,max=500"`
	PaymentTerms       *PaymentTermsRequest `json:"payment_terms"`
	BaseDocumentNumber *string              `json:"base_document_number" validate:"omitempty,max=40"`
	Notes              *string              `json:"notes"                validate:"omitempty,max=2000"`
	Lines              []InvoiceLineRequest `json:"lines"                validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type InvoiceLineResponse struct {
	ID            string          `json:"id"`
	Position      int             `json:"position"`
	ArticleNumber *string         `json:"article_number,omitempty"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	NetPrice      decimal.Decimal `json:"net_price"`
	TaxCategory   string          `json:"tax_category"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

type TaxBreakdownResponse struct {
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	Base     decimal.Decimal `json:"base"`
	Tax      decimal.Decimal `json:"tax"`
}

type InvoiceResponse struct {
	ID                 string                 `json:"id"`
	OrganizationID     string                 `json:"organization_id"`
	CustomerID         string                 `json:"customer_id"`
	Number             string                 `json:"number"`
	Type               string                 `json:"type"`
	Status             string                 `json:"status"`
	IssueDate          string                 `json:"issue_date"`
	ServicePeriodStart *string                `json:"service_period_start,omitempty"`
	ServicePeriodEnd   *string                `json:"service_period_end,omitempty"`
	DueDate            *string                `json:"due_date,omitempty"`
	Currency           string                 `json:"currency"`
	ReverseCharge      bool                   `json:"reverse_charge"`
	SelfBilling        bool                   `json:"self_billing"`
	TaxExemptionText   *string                `json:"tax_exemption_text,omitempty"`
	PaymentTerms       *string                `json:"payment_terms,omitempty"`
	BaseDocumentNumber *string                `json:"base_document_number,omitempty"`
	Notes              *string                `json:"notes,omitempty"`
	Lines              []InvoiceLineResponse  `json:"lines"`
	Breakdown          []TaxBreakdownResponse `json:"breakdown"`
	Payments           []PaymentResponse      `json:"payments"`
	TotalNet           decimal.Decimal        `json:"total_net"`
	TotalTax           decimal.Decimal        `json:"total_tax"`
	TotalGross         decimal.Decimal        `json:"total_gross"`
	TotalPaid          decimal.Decimal        `json:"total_paid"`
	Outstanding        decimal.Decimal        `json:"outstanding"`
	CreatedAt          string                 `json:"created_at"`
}
