package tax

import (
	"time"
	_ "time/tzdata" // canonical timezone must resolve without system zoneinfo

	"invoicetool/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultTimezone is the canonical zone for due-date comparisons.
const DefaultTimezone = "Europe/Berlin"

// Today returns the calendar date of now in loc, as midnight UTC.
func Today(loc *time.Location, now time.Time) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// calendarDate strips the clock and zone from a stored date.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DetermineStatus re-evaluates inv.Status from the total paid so far.
//
// Order matters: overdue is checked before partly_paid, so a partially paid invoice
// past its due date resolves to overdue. A cancelled invoice is never changed, and a
// draft stays draft while nothing has been paid.
func DetermineStatus(inv *model.Invoice, totalPaid decimal.Decimal, today time.Time) {
	if inv.Status == model.StatusCancelled {
		return
	}
	totalDue := Compute(inv.Lines).Gross()

	if !totalPaid.IsPositive() {
		if inv.Status != model.StatusDraft {
			inv.Status = model.StatusApproved
		}
		return
	}

	outstanding := totalDue.Sub(totalPaid)
	switch {
	case !outstanding.IsPositive():
		inv.Status = model.StatusPaid
	case inv.DueDate != nil && calendarDate(*inv.DueDate).Before(calendarDate(today)):
		inv.Status = model.StatusOverdue
	case outstanding.LessThan(totalDue):
		inv.Status = model.StatusPartlyPaid
	}
}

// Legal note texts printed on the document and carried in the XML.
const (
	ReverseChargeNote = "Steuerschuldnerschaft des Leistungsempfängers (§ 13b UStG)."
	SelfBillingNote   = "Gutschrift gemäß § 14 Abs. 2 Satz 2 UStG."
)

// LegalNote picks the note for inv: reverse charge, then self billing, then the
// free-text exemption reason. It returns "" when none applies.
func LegalNote(inv *model.Invoice) string {
	switch {
	case inv.ReverseCharge:
		return ReverseChargeNote
	case inv.SelfBilling:
		return SelfBillingNote
	}
	return inv.ExemptionText()
}
