package infra

import (
	"bytes"
	"testing"

	"invoicetool/internal/model"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderSample(t *testing.T, icc []byte) []byte {
	t.Helper()
	inv := sampleInvoice()
	xmlDoc, err := BuildXRechnung(inv)
	require.NoError(t, err)
	epc, err := GenerateEPCQR(EPCRequest{
		Name:       inv.Issuer.Name,
		IBAN:       *inv.Issuer.IBAN,
		Amount:     dec("795"),
		Remittance: "Rechnung " + inv.Number,
	})
	require.NoError(t, err)

	doc, err := RenderInvoicePDF(inv, PDFOptions{XML: xmlDoc, EPC: epc, ICCProfile: icc})
	require.NoError(t, err)
	assert.Equal(t, "invoice-INV2026-00001.pdf", doc.Filename)
	return doc.Content
}

// readPDF parses rendered bytes back into a pdfcpu context.
func readPDF(t *testing.T, content []byte) *pdfmodel.Context {
	t.Helper()
	ctx, err := api.ReadContext(bytes.NewReader(content), pdfcpuConfig())
	require.NoError(t, err)
	return ctx
}

func catalogOf(t *testing.T, ctx *pdfmodel.Context) types.Dict {
	t.Helper()
	cat, err := ctx.Catalog()
	require.NoError(t, err)
	return cat
}

func TestRenderInvoicePDF_PDFAMarkers(t *testing.T) {
	content := renderSample(t, nil)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF-")))

	ctx := readPDF(t, content)
	cat := catalogOf(t, ctx)
	assert.Equal(t, types.StringLiteral("de-DE"), cat["Lang"])
	_, hasIntents := cat.Find("OutputIntents")
	assert.False(t, hasIntents)

	af, err := ctx.DereferenceArray(cat["AF"])
	require.NoError(t, err)
	require.Len(t, af, 1)
	fs, err := ctx.DereferenceDict(af[0])
	require.NoError(t, err)
	require.NotNil(t, fs.Type())
	assert.Equal(t, "Filespec", *fs.Type())
	require.NotNil(t, fs.NameEntry("AFRelationship"))
	assert.Equal(t, "Data", *fs.NameEntry("AFRelationship"))

	meta, _, err := ctx.DereferenceStreamDict(cat["Metadata"])
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.NoError(t, meta.Decode())
	assert.Contains(t, string(meta.Content), "<pdfaid:part>3</pdfaid:part>")
}

func TestRenderInvoicePDF_OutputIntentWithICC(t *testing.T) {
	icc := bytes.Repeat([]byte("icc-profile"), 64)
	ctx := readPDF(t, renderSample(t, icc))
	cat := catalogOf(t, ctx)

	intents, err := ctx.DereferenceArray(cat["OutputIntents"])
	require.NoError(t, err)
	require.Len(t, intents, 1)
	intent, err := ctx.DereferenceDict(intents[0])
	require.NoError(t, err)
	assert.Equal(t, "GTS_PDFA1", *intent.NameEntry("S"))
	assert.Equal(t, types.StringLiteral("sRGB IEC61966-2.1"), intent["OutputConditionIdentifier"])

	profile, _, err := ctx.DereferenceStreamDict(intent["DestOutputProfile"])
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, types.Integer(3), profile.Dict["N"])
	require.NoError(t, profile.Decode())
	assert.Equal(t, icc, profile.Content)
}

func TestRenderInvoicePDF_ValidatesAndExposesAttachment(t *testing.T) {
	content := renderSample(t, []byte("icc"))

	ctx := readPDF(t, content)
	require.NoError(t, api.ValidateContext(ctx))

	attachments, err := api.Attachments(bytes.NewReader(content), pdfcpuConfig())
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "invoice-INV2026-00001.xml", attachments[0].FileName)
}

func TestRenderInvoicePDF_WithoutAttachment(t *testing.T) {
	inv := sampleInvoice()
	inv.DueDate = nil
	inv.Issuer.IBAN = nil
	doc, err := RenderInvoicePDF(inv, PDFOptions{})
	require.NoError(t, err)

	cat := catalogOf(t, readPDF(t, doc.Content))
	_, hasAF := cat.Find("AF")
	assert.False(t, hasAF)
	assert.Equal(t, types.StringLiteral("de-DE"), cat["Lang"])
	assert.NotContains(t, string(doc.Content), "AFRelationship")
}

func TestRenderInvoicePDF_UnmappedCategoryAborts(t *testing.T) {
	inv := sampleInvoice()
	inv.Lines[1].TaxCategory = model.TaxCategory("luxury")

	doc, err := RenderInvoicePDF(inv, PDFOptions{})
	assert.ErrorIs(t, err, ErrUnmappedTaxCategory)
	assert.Nil(t, doc)
}

func TestRenderInvoicePDF_Paginates(t *testing.T) {
	inv := sampleInvoice()
	base := inv.Lines[0]
	for i := 3; i <= 120; i++ {
		l := base
		l.Position = i
		inv.Lines = append(inv.Lines, l)
	}
	doc, err := RenderInvoicePDF(inv, PDFOptions{})
	require.NoError(t, err)

	pages, err := api.PageCount(bytes.NewReader(doc.Content), pdfcpuConfig())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pages, 2)
}

func TestMoneyFormat(t *testing.T) {
	assert.Equal(t, "1.234.567,89 EUR", money(dec("1234567.891"), "EUR"))
	assert.Equal(t, "-5,00 EUR", money(dec("-5"), ""))
	assert.Equal(t, "0,19 USD", money(dec("0.19"), "USD"))
}
