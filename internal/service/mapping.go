package service

import (
	"time"

	"invoicetool/internal/dto"
	"invoicetool/internal/model"
	"invoicetool/internal/tax"
)

const dateLayout = "2006-01-02"

// Clock yields today's calendar date in the canonical timezone.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return tax.Today(c.Location, now())
}

func toInvoiceResponse(inv *model.Invoice) *dto.InvoiceResponse {
	totals := tax.Compute(inv.Lines)
	paid := inv.TotalPaid()
	gross := totals.Gross()

	resp := &dto.InvoiceResponse{
		ID:                 inv.ID.String(),
		OrganizationID:     inv.OrganizationID.String(),
		CustomerID:         inv.CustomerID.String(),
		Number:             inv.Number,
		Type:               string(inv.Type),
		Status:             string(inv.Status),
		IssueDate:          inv.IssueDate.Format(dateLayout),
		ServicePeriodStart: formatOptionalDate(inv.ServicePeriodStart),
		ServicePeriodEnd:   formatOptionalDate(inv.ServicePeriodEnd),
		DueDate:            formatOptionalDate(inv.DueDate),
		Currency:           inv.Currency,
		ReverseCharge:      inv.ReverseCharge,
		SelfBilling:        inv.SelfBilling,
		TaxExemptionText:   inv.TaxExemptionText,
		PaymentTerms:       inv.PaymentTerms,
		BaseDocumentNumber: inv.BaseDocumentNumber,
		Notes:              inv.Notes,
		Lines:              make([]dto.InvoiceLineResponse, 0, len(inv.Lines)),
		Breakdown:          make([]dto.TaxBreakdownResponse, 0, len(totals.Breakdown)),
		Payments:           make([]dto.PaymentResponse, 0, len(inv.Payments)),
		TotalNet:           totals.Net,
		TotalTax:           totals.Tax,
		TotalGross:         gross,
		TotalPaid:          paid,
		Outstanding:        gross.Sub(paid),
		CreatedAt:          inv.CreatedAt.Format(time.RFC3339),
	}
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, dto.InvoiceLineResponse{
			ID:            l.ID.String(),
			Position:      l.Position,
			ArticleNumber: l.ArticleNumber,
			Description:   l.Description,
			Quantity:      l.Quantity,
			Unit:          l.Unit,
			NetPrice:      l.NetPrice,
			TaxCategory:   string(l.TaxCategory),
			TaxRate:       l.TaxRate,
			NetAmount:     l.Base(),
		})
	}
	for _, b := range totals.Breakdown {
		resp.Breakdown = append(resp.Breakdown, dto.TaxBreakdownResponse{
			Category: string(b.Category),
			Rate:     b.Rate,
			Base:     b.Base,
			Tax:      b.Tax,
		})
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(p))
	}
	return resp
}

func toPaymentResponse(p model.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:          p.ID.String(),
		InvoiceID:   p.InvoiceID.String(),
		Amount:      p.Amount,
		Currency:    p.Currency,
		BookingDate: p.BookingDate.Format(dateLayout),
		Reference:   p.Reference,
		Source:      p.Source,
	}
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
