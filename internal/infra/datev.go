package infra

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// DATEV SKR03 accounts used for the booking export.
const (
	DATEVRevenueAccount = "8400"
	DATEVDebtorAccount  = "10000"

	DATEVFilename = "datev-export.csv"
)

var datevHeader = []string{"Buchungstext", "Belegfeld1", "Sollkonto", "Habenkonto", "Betrag", "Steuersatz"}

// DATEVRow is one booking line.
type DATEVRow struct {
	Number string
	Gross  decimal.Decimal
	Taxed  bool
}

// BuildDATEVExport renders rows as a semicolon separated CSV in Windows-1252.
func BuildDATEVExport(rows []DATEVRow) ([]byte, error) {
	var utf8Buf bytes.Buffer
	w := csv.NewWriter(&utf8Buf)
	w.Comma = ';'
	w.UseCRLF = true

	if err := w.Write(datevHeader); err != nil {
		return nil, fmt.Errorf("datev: write header: %w", err)
	}
	for _, r := range rows {
		rate := "0"
		if r.Taxed {
			rate = "19"
		}
		record := []string{
			"Rechnung " + r.Number,
			r.Number,
			DATEVRevenueAccount,
			DATEVDebtorAccount,
			r.Gross.StringFixed(2),
			rate,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("datev: write row %s: %w", r.Number, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("datev: flush: %w", err)
	}

	out, err := charmap.Windows1252.NewEncoder().Bytes(utf8Buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("datev: encode latin-1: %w", err)
	}
	return out, nil
}
