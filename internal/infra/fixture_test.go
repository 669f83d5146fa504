package infra

import (
	"time"

	"invoicetool/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// sampleInvoice is 5 h consulting at 100 EUR plus 200 EUR reverse charge.
func sampleInvoice() *model.Invoice {
	issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	due := issue.AddDate(0, 0, 14)
	return &model.Invoice{
		ID:        uuid.New(),
		Number:    "INV2026-00001",
		Type:      model.InvoiceRegular,
		Status:    model.StatusApproved,
		IssueDate: issue,
		DueDate:   &due,
		Currency:  "EUR",
		Issuer: model.Organization{
			Name:       "Müller Beratung GmbH",
			Street:     "Hauptstraße 1",
			PostalCode: "10115",
			City:       "Berlin",
			Country:    "DE",
			VATID:      strPtr("DE123456789"),
			TaxNumber:  strPtr("30/123/45678"),
			IBAN:       strPtr("DE89 3704 0044 0532 0130 00"),
			BIC:        strPtr("COBADEFFXXX"),
		},
		Customer: model.Customer{
			Name:       "Acme SARL",
			Street:     "1 Rue de la Paix",
			PostalCode: "75002",
			City:       "Paris",
			Country:    "FR",
			VATID:      strPtr("FR12345678901"),
		},
		Lines: []model.InvoiceLine{
			{Position: 1, Description: "Beratung", Quantity: dec("5"), Unit: "HUR", NetPrice: dec("100"), TaxCategory: model.TaxStandard, TaxRate: dec("0.19")},
			{Position: 2, ArticleNumber: strPtr("LIC-7"), Description: "Lizenz", Quantity: dec("1"), Unit: "C62", NetPrice: dec("200"), TaxCategory: model.TaxReverseCharge, TaxRate: dec("0")},
		},
	}
}
