package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportRequest selects invoices by issue date, both ends inclusive.
type ReportRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date"   validate:"required,datetime=2006-01-02"`
}

type VATReturnResponse struct {
	TaxableTurnoverStandard decimal.Decimal `json:"taxable_turnover_standard"`
	TaxableTurnoverReduced  decimal.Decimal `json:"taxable_turnover_reduced"`
	ReverseChargeTurnover   decimal.Decimal `json:"reverse_charge_turnover"`
	IntraCommunitySupply    decimal.Decimal `json:"intra_community_supply"`
	ExportTurnover          decimal.Decimal `json:"export_turnover"`
	TaxAmountStandard       decimal.Decimal `json:"tax_amount_standard"`
	TaxAmountReduced        decimal.Decimal `json:"tax_amount_reduced"`
}

type OSSReportEntry struct {
	MemberState    string          `json:"member_state"`
	SupplyCategory string          `json:"supply_category"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
}

type VATIDResponse struct {
	VATID              string    `json:"vat_id"`
	Valid              bool      `json:"valid"`
	TraderName         string    `json:"trader_name,omitempty"`
	TraderAddress      string    `json:"trader_address,omitempty"`
	ConsultationNumber string    `json:"consultation_number,omitempty"`
	CheckedAt          time.Time `json:"checked_at"`
}
