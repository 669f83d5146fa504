package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"invoicetool/internal/infra"
	"invoicetool/internal/model"
	"invoicetool/internal/tax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvoice = `{
  "number": "RE-2026-0007",
  "issue_date": "2026-03-15",
  "due_date": "2026-03-29",
  "service_period_start": "2026-02-01",
  "service_period_end": "2026-02-28",
  "issuer": {"name": "Muster Consulting GmbH", "street": "Friedrichstraße 10", "postal_code": "10117",
             "city": "Berlin", "country": "de", "vat_id": "DE123456789", "iban": "DE89370400440532013000"},
  "customer": {"name": "Acme SARL", "street": "1 Rue de la Paix", "postal_code": "75002", "city": "Paris",
               "country": "FR", "vat_id": "FR40303265045"},
  "lines": [
    {"description": "Beratung", "quantity": "5", "net_price": "100", "tax_category": "standard", "tax_rate": "0.19"},
    {"description": "Lizenz", "quantity": "1", "unit": "C62", "net_price": "200", "tax_category": "reverse_charge"}
  ]
}`

func TestParseInvoiceFile(t *testing.T) {
	inv, err := parseInvoiceFile([]byte(sampleInvoice))
	require.NoError(t, err)

	assert.Equal(t, "RE-2026-0007", inv.Number)
	assert.Equal(t, model.InvoiceRegular, inv.Type)
	assert.Equal(t, "EUR", inv.Currency)
	assert.Equal(t, "DE", inv.Issuer.Country)
	require.NotNil(t, inv.ServicePeriodEnd)
	assert.Equal(t, "2026-02-28", inv.ServicePeriodEnd.Format(dateLayout))
	require.Len(t, inv.Lines, 2)
	assert.Equal(t, 2, inv.Lines[1].Position)
	assert.Equal(t, "h", inv.Lines[0].Unit)

	totals := tax.Compute(inv.Lines)
	assert.Equal(t, "795.00", totals.Gross().StringFixed(2))
}

func TestParseInvoiceFile_SelfBilling(t *testing.T) {
	raw := strings.Replace(sampleInvoice, `"number": "RE-2026-0007",`, `"number": "RE-2026-0007", "type": "self_billing", "self_billing": true,`, 1)
	inv, err := parseInvoiceFile([]byte(raw))
	require.NoError(t, err)

	assert.True(t, inv.SelfBilling)
	assert.Equal(t, model.InvoiceSelfBilling, inv.Type)
	assert.Equal(t, tax.SelfBillingNote, tax.LegalNote(inv))

	plain, err := parseInvoiceFile([]byte(sampleInvoice))
	require.NoError(t, err)
	assert.False(t, plain.SelfBilling)
	assert.Empty(t, tax.LegalNote(plain))
}

func TestParseInvoiceFile_Rejects(t *testing.T) {
	_, err := parseInvoiceFile([]byte(`{"number": "X", "issue_date": "15.03.2026"}`))
	assert.Error(t, err)

	noLines := strings.Replace(sampleInvoice, `"lines": [`, `"lines": [], "x": [`, 1)
	_, err = parseInvoiceFile([]byte(noLines))
	assert.Error(t, err)

	_, err = parseInvoiceFile([]byte(`{`))
	assert.Error(t, err)
}

func TestRenderInvoice_AllFormats(t *testing.T) {
	inv, err := parseInvoiceFile([]byte(sampleInvoice))
	require.NoError(t, err)

	docs, err := renderInvoice(inv, "all", nil)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, infra.XRechnungFilename("RE-2026-0007"), docs[0].Filename)
	assert.True(t, bytes.HasPrefix(docs[1].Content, []byte("%PDF-")))

	zr, err := zip.NewReader(bytes.NewReader(docs[2].Content), int64(len(docs[2].Content)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)

	_, err = renderInvoice(inv, "docx", nil)
	assert.Error(t, err)
}

func TestRenderCommand_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "invoice.json")
	require.NoError(t, os.WriteFile(input, []byte(sampleInvoice), 0o644))
	out := filepath.Join(dir, "out")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"render", "--input", input, "--out", out, "--format", "xml"})
	require.NoError(t, rootCmd.Execute())

	written := filepath.Join(out, "invoice-RE-2026-0007.xml")
	assert.FileExists(t, written)
	assert.Contains(t, stdout.String(), written)
}

func TestTotalsCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "invoice.json")
	require.NoError(t, os.WriteFile(input, []byte(sampleInvoice), 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"totals", "--input", input})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, stdout.String(), "net:   700.00 EUR")
	assert.Contains(t, stdout.String(), "tax:   95.00 EUR")
	assert.Contains(t, stdout.String(), "gross: 795.00 EUR")
	assert.Contains(t, stdout.String(), "reverse_charge")
}

func TestEPCCommand(t *testing.T) {
	png := filepath.Join(t.TempDir(), "code.png")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"epc", "--name", "Muster GmbH", "--iban", "DE89 3704 0044 0532 0130 00",
		"--amount", "795", "--remittance", "RE-2026-0007", "--png", png})
	require.NoError(t, rootCmd.Execute())

	assert.True(t, strings.HasPrefix(stdout.String(), "BCD\n002\n1\nSCT\n"))
	assert.Contains(t, stdout.String(), "EUR795.00")
	assert.FileExists(t, png)

	rootCmd.SetArgs([]string{"epc", "--name", "X", "--iban", "DE89", "--amount", "-1"})
	assert.Error(t, rootCmd.Execute())
}

func TestDemoParties(t *testing.T) {
	org, customer := demoParties()
	assert.Equal(t, "DE", org.Country)
	assert.NotNil(t, org.IBAN)
	assert.Equal(t, "FR", customer.Country)
}
