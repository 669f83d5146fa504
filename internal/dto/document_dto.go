package dto

import "github.com/shopspring/decimal"

type EPCRequest struct {
	Name       string          `json:"name"       validate:"required"`
	IBAN       string          `json:"iban"       validate:"required,max=42"`
	BIC        string          `json:"bic"        validate:"omitempty,max=11"`
	Amount     decimal.Decimal `json:"amount"     validate:"gt=0"`
	Remittance string          `json:"remittance" validate:"max=140"`
	Purpose    string          `json:"purpose"    validate:"max=4"`
	Version    string          `json:"version"    validate:"omitempty,oneof=001 002"`
}

type EPCResponse struct {
	Payload   string `json:"payload"`
	SVG       string `json:"svg"`
	PNGBase64 string `json:"png_base64"`
}

type PeppolRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required,max=64"`
}

type PeppolResponse struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	TransmissionID string `json:"transmission_id,omitempty"`
}

type ArchiveEntryResponse struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	SHA256       string  `json:"sha256"`
	MimeType     string  `json:"mime_type"`
	DocumentType string  `json:"document_type"`
	ValidUntil   *string `json:"valid_until,omitempty"`
}

type ArchiveResponse struct {
	InvoiceID string                 `json:"invoice_id"`
	Entries   []ArchiveEntryResponse `json:"entries"`
}
