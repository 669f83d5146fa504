package infra

// xrechnung.go: EN 16931 Cross Industry Invoice (XRechnung / ZUGFeRD payload).
// Amounts are computed by the tax engine and only formatted here, so the XML
// always agrees with the PDF and the reports.

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"time"

	"invoicetool/internal/model"
	"invoicetool/internal/tax"

	"github.com/shopspring/decimal"
)

const (
	nsRSM = "urn:ferd:CrossIndustryDocument:invoice:1p0"
	nsRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	nsUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"

	documentTypeInvoice = "380"
)

// ErrUnmappedTaxCategory is returned when a line carries a category with no EN 16931 code.
var ErrUnmappedTaxCategory = errors.New("xrechnung: unmapped tax category")

var categoryCodes = map[model.TaxCategory]string{
	model.TaxStandard:      "S",
	model.TaxReduced:       "AA",
	model.TaxZero:          "Z",
	model.TaxReverseCharge: "AE",
	model.TaxEUSupply:      "K",
	model.TaxExport:        "G",
}

// CategoryCode maps a tax category to its EN 16931 category code.
func CategoryCode(c model.TaxCategory) (string, error) {
	code, ok := categoryCodes[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnmappedTaxCategory, c)
	}
	return code, nil
}

// taxTypeCode is "AE" for supplies where the buyer accounts for VAT, "VAT" otherwise.
func taxTypeCode(c model.TaxCategory) string {
	switch c {
	case model.TaxReverseCharge, model.TaxExport, model.TaxEUSupply:
		return "AE"
	}
	return "VAT"
}

// ── Document structure ───────────────────────────────────────────────────────

type ciiInvoice struct {
	XMLName     xml.Name       `xml:"rsm:CrossIndustryInvoice"`
	XmlnsRSM    string         `xml:"xmlns:rsm,attr"`
	XmlnsRAM    string         `xml:"xmlns:ram,attr"`
	XmlnsUDT    string         `xml:"xmlns:udt,attr"`
	Document    ciiDocument    `xml:"rsm:ExchangedDocument"`
	Transaction ciiTransaction `xml:"rsm:SupplyChainTradeTransaction"`
}

type ciiDocument struct {
	ID        string      `xml:"ram:ID"`
	TypeCode  string      `xml:"ram:TypeCode"`
	IssueDate ciiDateTime `xml:"ram:IssueDateTime"`
}

type ciiDateTime struct {
	DateTimeString string `xml:"udt:DateTimeString"`
}

type ciiTransaction struct {
	Agreement  ciiHeaderAgreement  `xml:"ram:ApplicableHeaderTradeAgreement"`
	Settlement ciiHeaderSettlement `xml:"ram:ApplicableHeaderTradeSettlement"`
	Note       *ciiNote            `xml:"ram:IncludedNote,omitempty"`
	Items      []ciiLineItem       `xml:"ram:IncludedSupplyChainTradeLineItem"`
	Summary    ciiSummary          `xml:"ram:SpecifiedTradeSettlementHeaderMonetarySummation"`
}

type ciiHeaderAgreement struct {
	Seller ciiParty `xml:"ram:SellerTradeParty"`
	Buyer  ciiParty `xml:"ram:BuyerTradeParty"`
}

type ciiParty struct {
	Name            string              `xml:"ram:Name"`
	Address         ciiAddress          `xml:"ram:PostalTradeAddress"`
	TaxRegistration *ciiTaxRegistration `xml:"ram:SpecifiedTaxRegistration,omitempty"`
}

type ciiAddress struct {
	PostcodeCode string `xml:"ram:PostcodeCode"`
	LineOne      string `xml:"ram:LineOne"`
	CityName     string `xml:"ram:CityName"`
	CountryID    string `xml:"ram:CountryID"`
}

type ciiTaxRegistration struct {
	ID ciiSchemeID `xml:"ram:ID"`
}

type ciiSchemeID struct {
	SchemeID string `xml:"schemeID,attr"`
	Value    string `xml:",chardata"`
}

type ciiHeaderSettlement struct {
	PaymentReference string          `xml:"ram:PaymentReference"`
	PaymentTerms     ciiPaymentTerms `xml:"ram:SpecifiedTradePaymentTerms"`
}

type ciiPaymentTerms struct {
	DueDate *ciiDateTime `xml:"ram:DueDateDateTime,omitempty"`
}

type ciiNote struct {
	Content string `xml:"ram:Content"`
}

type ciiLineItem struct {
	Product    ciiProduct        `xml:"ram:SpecifiedTradeProduct"`
	Delivery   ciiLineDelivery   `xml:"ram:SpecifiedLineTradeDelivery"`
	Settlement ciiLineSettlement `xml:"ram:SpecifiedLineTradeSettlement"`
	Agreement  ciiLineAgreement  `xml:"ram:SpecifiedLineTradeAgreement"`
}

type ciiProduct struct {
	SellerAssignedID string `xml:"ram:SellerAssignedID"`
	Name             string `xml:"ram:Name"`
}

type ciiLineDelivery struct {
	BilledQuantity ciiQuantity `xml:"ram:BilledQuantity"`
}

type ciiQuantity struct {
	UnitCode string `xml:"unitCode,attr"`
	Value    string `xml:",chardata"`
}

type ciiAmount struct {
	CurrencyID string `xml:"currencyID,attr,omitempty"`
	Value      string `xml:",chardata"`
}

type ciiLineSettlement struct {
	LineTotalAmount ciiAmount   `xml:"ram:LineTotalAmount"`
	Tax             ciiTradeTax `xml:"ram:ApplicableTradeTax"`
}

type ciiTradeTax struct {
	CalculatedAmount      *ciiAmount `xml:"ram:CalculatedAmount,omitempty"`
	TypeCode              string     `xml:"ram:TypeCode"`
	CategoryCode          string     `xml:"ram:CategoryCode"`
	RateApplicablePercent string     `xml:"ram:RateApplicablePercent"`
}

type ciiLineAgreement struct {
	NetPrice ciiPrice `xml:"ram:NetPriceProductTradePrice"`
}

type ciiPrice struct {
	ChargeAmount ciiAmount `xml:"ram:ChargeAmount"`
}

type ciiSummary struct {
	Taxes               []ciiTradeTax `xml:"ram:ApplicableTradeTax"`
	LineTotalAmount     ciiAmount     `xml:"ram:LineTotalAmount"`
	TaxBasisTotalAmount ciiAmount     `xml:"ram:TaxBasisTotalAmount"`
	TaxTotalAmount      ciiAmount     `xml:"ram:TaxTotalAmount"`
	GrandTotalAmount    ciiAmount     `xml:"ram:GrandTotalAmount"`
	DuePayableAmount    ciiAmount     `xml:"ram:DuePayableAmount"`
}

// ── Builder ──────────────────────────────────────────────────────────────────

// XRechnungFilename is the download name of the structured document.
func XRechnungFilename(number string) string {
	return fmt.Sprintf("invoice-%s.xml", number)
}

// BuildXRechnung serializes inv (with Issuer, Customer and Lines loaded) as an
// EN 16931 cross industry invoice. Output starts with the XML declaration.
func BuildXRechnung(inv *model.Invoice) ([]byte, error) {
	totals := tax.Compute(inv.Lines)
	currency := inv.Currency
	if currency == "" {
		currency = "EUR"
	}
	amount := func(v decimal.Decimal) ciiAmount {
		return ciiAmount{CurrencyID: currency, Value: v.StringFixed(2)}
	}

	doc := ciiInvoice{
		XmlnsRSM: nsRSM,
		XmlnsRAM: nsRAM,
		XmlnsUDT: nsUDT,
		Document: ciiDocument{
			ID:        inv.Number,
			TypeCode:  documentTypeInvoice,
			IssueDate: ciiDateTime{DateTimeString: isoDate(inv.IssueDate)},
		},
	}

	tr := &doc.Transaction
	tr.Agreement.Seller = ciiParty{
		Name: inv.Issuer.Name,
		Address: ciiAddress{
			PostcodeCode: inv.Issuer.PostalCode,
			LineOne:      inv.Issuer.Street,
			CityName:     inv.Issuer.City,
			CountryID:    inv.Issuer.Country,
		},
		TaxRegistration: vatRegistration(inv.Issuer.VATID),
	}
	tr.Agreement.Buyer = ciiParty{
		Name: inv.Customer.Name,
		Address: ciiAddress{
			PostcodeCode: inv.Customer.PostalCode,
			LineOne:      inv.Customer.Street,
			CityName:     inv.Customer.City,
			CountryID:    inv.Customer.Country,
		},
		TaxRegistration: vatRegistration(inv.Customer.VATID),
	}
	tr.Settlement.PaymentReference = inv.Number
	if inv.DueDate != nil {
		tr.Settlement.PaymentTerms.DueDate = &ciiDateTime{DateTimeString: isoDate(*inv.DueDate)}
	}
	if note := tax.LegalNote(inv); note != "" {
		tr.Note = &ciiNote{Content: note}
	}

	for _, line := range inv.Lines {
		code, err := CategoryCode(line.TaxCategory)
		if err != nil {
			return nil, err
		}
		base := line.Base()
		percent := percentString(line.TaxRate)
		typeCode := taxTypeCode(line.TaxCategory)

		sellerID := strconv.Itoa(line.Position)
		if line.ArticleNumber != nil && *line.ArticleNumber != "" {
			sellerID = *line.ArticleNumber
		}

		tr.Items = append(tr.Items, ciiLineItem{
			Product: ciiProduct{SellerAssignedID: sellerID, Name: line.Description},
			Delivery: ciiLineDelivery{BilledQuantity: ciiQuantity{
				UnitCode: line.Unit,
				Value:    line.Quantity.StringFixed(2),
			}},
			Settlement: ciiLineSettlement{
				LineTotalAmount: amount(base),
				Tax: ciiTradeTax{
					TypeCode:              typeCode,
					CategoryCode:          code,
					RateApplicablePercent: percent,
				},
			},
			Agreement: ciiLineAgreement{NetPrice: ciiPrice{ChargeAmount: amount(line.NetPrice)}},
		})

		// per-line tax uses the effective rate so the sum matches TaxTotalAmount
		calculated := amount(base.Mul(tax.EffectiveRate(line)))
		tr.Summary.Taxes = append(tr.Summary.Taxes, ciiTradeTax{
			CalculatedAmount:      &calculated,
			TypeCode:              typeCode,
			CategoryCode:          code,
			RateApplicablePercent: percent,
		})
	}

	gross := totals.Gross()
	tr.Summary.LineTotalAmount = amount(totals.Net)
	tr.Summary.TaxBasisTotalAmount = amount(totals.Net)
	tr.Summary.TaxTotalAmount = amount(totals.Tax)
	tr.Summary.GrandTotalAmount = amount(gross)
	tr.Summary.DuePayableAmount = amount(gross)

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("xrechnung: marshal: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func vatRegistration(vatID *string) *ciiTaxRegistration {
	if vatID == nil || *vatID == "" {
		return nil
	}
	return &ciiTaxRegistration{ID: ciiSchemeID{SchemeID: "VA", Value: *vatID}}
}

// percentString renders a fractional rate (0.19) as a percentage ("19.00").
func percentString(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

func isoDate(t time.Time) string { return t.Format("2006-01-02") }
