package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"invoicetool/internal/dto"
	"invoicetool/internal/model"
	"invoicetool/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

const dateLayout = "2006-01-02"

// partyFile is an issuer or customer in the JSON input.
type partyFile struct {
	Name       string  `json:"name"        validate:"required"`
	Street     string  `json:"street"      validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	City       string  `json:"city"        validate:"required"`
	Country    string  `json:"country"     validate:"required,len=2"`
	VATID      *string `json:"vat_id"`
	TaxNumber  *string `json:"tax_number"`
	Email      *string `json:"email"`
	IBAN       *string `json:"iban"`
	BIC        *string `json:"bic"`
}

// invoiceFile is the self-contained invoice read by render and totals.
type invoiceFile struct {
	Number             string                   `json:"number"               validate:"required,max=40"`
	Type               string                   `json:"type"                 validate:"omitempty,oneof=regular credit_note self_billing advance final correction"`
	IssueDate          string                   `json:"issue_date"           validate:"required,datetime=2006-01-02"`
	ServicePeriodStart *string                  `json:"service_period_start" validate:"omitempty,datetime=2006-01-02"`
	ServicePeriodEnd   *string                  `json:"service_period_end"   validate:"omitempty,datetime=2006-01-02"`
	DueDate            *string                  `json:"due_date"             validate:"omitempty,datetime=2006-01-02"`
	Currency           string                   `json:"currency"             validate:"omitempty,len=3"`
	ReverseCharge      bool                     `json:"reverse_charge"`
	SelfBilling        bool                     `json:"self_billing"`
	TaxExemptionText   *string                  `json:"tax_exemption_text"`
	PaymentTerms       *string                  `json:"payment_terms"`
	BaseDocumentNumber *string                  `json:"base_document_number"`
	Notes              *string                  `json:"notes"`
	Issuer             partyFile                `json:"issuer"`
	Customer           partyFile                `json:"customer"`
	Lines              []dto.InvoiceLineRequest `json:"lines"                validate:"required,min=1,dive"`
}

func readInvoiceFile(path string) (*model.Invoice, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseInvoiceFile(raw)
}

// parseInvoiceFile validates the JSON and builds an unsaved invoice aggregate.
func parseInvoiceFile(raw []byte) (*model.Invoice, error) {
	var f invoiceFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("invoice file: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invoice file: %w", err)
	}

	issue, _ := time.Parse(dateLayout, f.IssueDate)
	start, err := optionalDate(f.ServicePeriodStart)
	if err != nil {
		return nil, err
	}
	end, err := optionalDate(f.ServicePeriodEnd)
	if err != nil {
		return nil, err
	}
	due, err := optionalDate(f.DueDate)
	if err != nil {
		return nil, err
	}

	invType := model.InvoiceType(f.Type)
	if invType == "" {
		invType = model.InvoiceRegular
	}
	currency := strings.ToUpper(strings.TrimSpace(f.Currency))
	if currency == "" {
		currency = "EUR"
	}

	inv := &model.Invoice{
		ID:                 uuid.New(),
		Number:             strings.TrimSpace(f.Number),
		Type:               invType,
		Status:             model.StatusDraft,
		IssueDate:          issue,
		ServicePeriodStart: start,
		ServicePeriodEnd:   end,
		DueDate:            due,
		Currency:           currency,
		ReverseCharge:      f.ReverseCharge,
		SelfBilling:        f.SelfBilling,
		TaxExemptionText:   f.TaxExemptionText,
		PaymentTerms:       f.PaymentTerms,
		BaseDocumentNumber: f.BaseDocumentNumber,
		Notes:              f.Notes,
		Issuer: model.Organization{
			Name:            f.Issuer.Name,
			Street:          f.Issuer.Street,
			PostalCode:      f.Issuer.PostalCode,
			City:            f.Issuer.City,
			Country:         strings.ToUpper(f.Issuer.Country),
			VATID:           f.Issuer.VATID,
			TaxNumber:       f.Issuer.TaxNumber,
			Email:           f.Issuer.Email,
			IBAN:            f.Issuer.IBAN,
			BIC:             f.Issuer.BIC,
			DefaultCurrency: currency,
		},
		Customer: model.Customer{
			Name:       f.Customer.Name,
			Street:     f.Customer.Street,
			PostalCode: f.Customer.PostalCode,
			City:       f.Customer.City,
			Country:    strings.ToUpper(f.Customer.Country),
			VATID:      f.Customer.VATID,
			Email:      f.Customer.Email,
			Currency:   currency,
		},
		Lines: service.BuildLines(f.Lines),
	}
	return inv, nil
}

func optionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("invoice file: %q is not YYYY-MM-DD", *s)
	}
	return &t, nil
}
