package service_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"invoicetool/internal/dto"
	"invoicetool/internal/infra"
	"invoicetool/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type docFixture struct {
	*world
	archives *stubArchiveRepo
	store    *infra.ArchiveStore
	peppol   *stubPeppol
	svc      service.DocumentService
	invoice  *dto.InvoiceResponse
}

func newDocFixture(t *testing.T) *docFixture {
	t.Helper()
	w := newWorld()
	f := &docFixture{
		world:    w,
		archives: &stubArchiveRepo{},
		store:    infra.NewArchiveStore(t.TempDir()),
		peppol:   &stubPeppol{},
	}
	f.svc = service.NewDocumentService(w.invoices, f.archives, f.store, f.peppol, nil)

	inv, err := w.invoiceService(nil).Create(context.Background(), w.createRequest())
	require.NoError(t, err)
	f.invoice = inv
	return f
}

func (f *docFixture) id() uuid.UUID { return uuid.MustParse(f.invoice.ID) }

func TestDocumentService_XMLAndPDF(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	xmlDoc, err := f.svc.XML(ctx, f.id())
	require.NoError(t, err)
	assert.Equal(t, "invoice-INV2026-00001.xml", xmlDoc.Filename)
	assert.Equal(t, service.MimeXML, xmlDoc.ContentType)
	assert.Contains(t, string(xmlDoc.Content), "INV2026-00001")

	pdf, err := f.svc.PDF(ctx, f.id())
	require.NoError(t, err)
	assert.Equal(t, "invoice-INV2026-00001.pdf", pdf.Filename)
	assert.Equal(t, service.MimePDF, pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Content, []byte("%PDF-")))

	_, err = f.svc.XML(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrInvoiceNotFound)
}

func TestDocumentService_ZUGFeRDPackage(t *testing.T) {
	f := newDocFixture(t)

	pkg, err := f.svc.ZUGFeRD(context.Background(), f.id())
	require.NoError(t, err)
	assert.Equal(t, "invoice-INV2026-00001-zugferd.zip", pkg.Filename)
	assert.Equal(t, service.MimeZIP, pkg.ContentType)

	zr, err := zip.NewReader(bytes.NewReader(pkg.Content), int64(len(pkg.Content)))
	require.NoError(t, err)
	var names []string
	for _, file := range zr.File {
		names = append(names, file.Name)
	}
	assert.Equal(t, []string{"invoice-INV2026-00001.pdf", "zugferd/xml/" + infra.ZUGFeRDXMLName}, names)
}

func TestDocumentService_EPC(t *testing.T) {
	f := newDocFixture(t)

	res, err := f.svc.EPC(dto.EPCRequest{
		Name:       "Müller Beratung GmbH",
		IBAN:       "DE89 3704 0044 0532 0130 00",
		BIC:        "COBADEFFXXX",
		Amount:     dec("795"),
		Remittance: "INV2026-00001",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Payload, "DE89370400440532013000")
	assert.Contains(t, res.Payload, "EUR795.00")
	assert.Contains(t, res.SVG, "<svg")
	png, err := base64.StdEncoding.DecodeString(res.PNGBase64)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = f.svc.EPC(dto.EPCRequest{Name: "X", Amount: dec("1")})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.ErrorIs(t, err, infra.ErrEPCIBANRequired)
}

func TestDocumentService_ArchiveStoresThreeDocuments(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	res, err := f.svc.Archive(ctx, f.id())
	require.NoError(t, err)
	assert.Equal(t, f.invoice.ID, res.InvoiceID)
	require.Len(t, res.Entries, 3)

	wantNames := []string{"invoice-INV2026-00001.xml", "invoice-INV2026-00001.pdf", "invoice-INV2026-00001-zugferd.zip"}
	wantMimes := []string{service.MimeXML, service.MimePDF, service.MimeZIP}
	for i, e := range res.Entries {
		assert.Equal(t, wantNames[i], e.Filename)
		assert.Equal(t, wantMimes[i], e.MimeType)
		assert.Equal(t, "invoice", e.DocumentType)
		assert.Len(t, e.SHA256, 64)
		require.NotNil(t, e.ValidUntil)
		assert.Equal(t, "2036-03-15", *e.ValidUntil)
	}

	xmlEntry := f.archives.entries[uuid.MustParse(res.Entries[0].ID)]
	require.NotNil(t, xmlEntry)
	content, err := f.store.Get(xmlEntry.StoragePath, xmlEntry.SHA256)
	require.NoError(t, err)
	assert.Contains(t, string(content), "INV2026-00001")
}

func TestDocumentService_Peppol(t *testing.T) {
	f := newDocFixture(t)

	res, err := f.svc.Peppol(context.Background(), f.id(), dto.PeppolRequest{ReceiverID: " 0088:4000001000005 "})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "accepted", res.Status)
	assert.Equal(t, "tx-1", res.TransmissionID)
	assert.Equal(t, "0088:4000001000005", f.peppol.receiver)
	assert.Equal(t, "INV2026-00001", f.peppol.documentID)
	assert.NotEmpty(t, f.peppol.xml)
}

func TestDocumentService_MailAttachments(t *testing.T) {
	f := newDocFixture(t)

	atts, err := f.svc.MailAttachments(context.Background(), f.id())
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "invoice-INV2026-00001.pdf", atts[0].Filename)
	assert.Equal(t, service.MimePDF, atts[0].ContentType)
	assert.Equal(t, "invoice-INV2026-00001.xml", atts[1].Filename)
}
