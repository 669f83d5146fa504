package service

import (
	"context"
	"fmt"
	"time"

	"invoicetool/internal/dto"
	"invoicetool/internal/infra"
	"invoicetool/internal/model"
	"invoicetool/internal/repository"
	"invoicetool/internal/tax"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportService aggregates the issued invoices of one organization over an
// inclusive issue-date range. Cancelled invoices never count.
type ReportService interface {
	VATReturn(ctx context.Context, orgID uuid.UUID, req dto.ReportRequest) (*dto.VATReturnResponse, error)
	OSS(ctx context.Context, orgID uuid.UUID, req dto.ReportRequest) ([]dto.OSSReportEntry, error)
	DATEV(ctx context.Context, orgID uuid.UUID, req dto.ReportRequest) (*Document, error)
}

type reportService struct {
	repo repository.InvoiceRepository
}

func NewReportService(repo repository.InvoiceRepository) ReportService {
	return &reportService{repo: repo}
}

func (s *reportService) invoices(ctx context.Context, orgID uuid.UUID, req dto.ReportRequest) ([]model.Invoice, error) {
	start, end, err := reportPeriod(req)
	if err != nil {
		return nil, err
	}
	return s.repo.ListForPeriod(ctx, orgID, start, end)
}

func (s *reportService) VATReturn(ctx context.Context, orgID uuid.UUID, req dto.ReportRequest) (*dto.VATReturnResponse, error) {
	invoices, err := s.invoices(ctx, orgID, req)
	if err != nil {
		return nil, err
	}
	return SummarizeVAT(invoices), nil
}

// SummarizeVAT sums the tax breakdown of every invoice per box of the return.
// Zero-rated domestic supplies have no box of their own and are left out.
func SummarizeVAT(invoices []model.Invoice) *dto.VATReturnResponse {
	r := &dto.VATReturnResponse{
		TaxableTurnoverStandard: decimal.Zero,
		TaxableTurnoverReduced:  decimal.Zero,
		ReverseChargeTurnover:   decimal.Zero,
		IntraCommunitySupply:    decimal.Zero,
		ExportTurnover:          decimal.Zero,
		TaxAmountStandard:       decimal.Zero,
		TaxAmountReduced:        decimal.Zero,
	}
	for _, inv := range invoices {
		for _, b := range tax.Compute(inv.Lines).Breakdown {
			switch b.Category {
			case model.TaxStandard:
				r.TaxableTurnoverStandard = r.TaxableTurnoverStandard.Add(b.Base)
				r.TaxAmountStandard = r.TaxAmountStandard.Add(b.Tax)
			case model.TaxReduced:
				r.TaxableTurnoverReduced = r.TaxableTurnoverReduced.Add(b.Base)
				r.TaxAmountReduced = r.TaxAmountReduced.Add(b.Tax)
			case model.TaxReverseCharge:
				r.ReverseChargeTurnover = r.ReverseChargeTurnover.Add(b.Base)
			case model.TaxEUSupply:
				r.IntraCommunitySupply = r.IntraCommunitySupply.Add(b.Base)
			case model.TaxExport:
				r.ExportTurnover = r.ExportTurnover.Add(b.Base)
			}
		}
	}
	return r
}

func (s *reportService) OSS(ctx context.Context, orgID uuid.UUID, req dto.ReportRequest) ([]dto.OSSReportEntry, error) {
	invoices, err := s.invoices(ctx, orgID, req)
	if err != nil {
		return nil, err
	}
	return SummarizeOSS(invoices), nil
}

// SummarizeOSS groups net and tax by (customer country, category) in the order
// the pairs first occur.
func SummarizeOSS(invoices []model.Invoice) []dto.OSSReportEntry {
	type key struct {
		country  string
		category model.TaxCategory
	}
	index := make(map[key]int)
	entries := []dto.OSSReportEntry{}
	for _, inv := range invoices {
		for _, b := range tax.Compute(inv.Lines).Breakdown {
			k := key{country: inv.Customer.Country, category: b.Category}
			i, ok := index[k]
			if !ok {
				i = len(entries)
				index[k] = i
				entries = append(entries, dto.OSSReportEntry{
					MemberState:    k.country,
					SupplyCategory: string(k.category),
					NetAmount:      decimal.Zero,
					TaxAmount:      decimal.Zero,
				})
			}
			entries[i].NetAmount = entries[i].NetAmount.Add(b.Base)
			entries[i].TaxAmount = entries[i].TaxAmount.Add(b.Tax)
		}
	}
	return entries
}

func (s *reportService) DATEV(ctx context.Context, orgID uuid.UUID, req dto.ReportRequest) (*Document, error) {
	invoices, err := s.invoices(ctx, orgID, req)
	if err != nil {
		return nil, err
	}
	rows := make([]infra.DATEVRow, 0, len(invoices))
	for _, inv := range invoices {
		totals := tax.Compute(inv.Lines)
		rows = append(rows, infra.DATEVRow{
			Number: inv.Number,
			Gross:  totals.Gross(),
			Taxed:  !totals.Tax.IsZero(),
		})
	}
	content, err := infra.BuildDATEVExport(rows)
	if err != nil {
		return nil, fmt.Errorf("datev export: %w", err)
	}
	return &Document{Filename: infra.DATEVFilename, ContentType: MimeCSV, Content: content}, nil
}

// reportPeriod parses an inclusive date range.
func reportPeriod(req dto.ReportRequest) (time.Time, time.Time, error) {
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	return start, end, nil
}
