package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"invoicetool/internal/dto"
	"invoicetool/internal/infra"
	"invoicetool/internal/model"
	"invoicetool/internal/repository"
	"invoicetool/internal/tax"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MimeXML = "application/xml"
	MimePDF = "application/pdf"
	MimeZIP = "application/zip"
	MimeCSV = "text/csv"

	// GoBD retention period for invoices.
	retentionYears = 10
)

// Document is a rendered file ready for download.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// PeppolTransmitter is satisfied by *infra.PeppolClient.
type PeppolTransmitter interface {
	Transmit(ctx context.Context, xmlDoc []byte, receiverID, documentID string) (*infra.PeppolResult, error)
}

type DocumentService interface {
	XML(ctx context.Context, id uuid.UUID) (*Document, error)
	PDF(ctx context.Context, id uuid.UUID) (*Document, error)
	ZUGFeRD(ctx context.Context, id uuid.UUID) (*Document, error)
	EPC(req dto.EPCRequest) (*dto.EPCResponse, error)
	Archive(ctx context.Context, id uuid.UUID) (*dto.ArchiveResponse, error)
	Peppol(ctx context.Context, id uuid.UUID, req dto.PeppolRequest) (*dto.PeppolResponse, error)
	MailAttachments(ctx context.Context, id uuid.UUID) ([]infra.MailAttachment, error)
}

type documentService struct {
	invoices repository.InvoiceRepository
	archives repository.ArchiveRepository
	store    *infra.ArchiveStore
	peppol   PeppolTransmitter
	icc      []byte
}

// NewDocumentService wires the renderers. icc may be nil, in which case PDFs
// carry no output intent.
func NewDocumentService(
	invoices repository.InvoiceRepository,
	archives repository.ArchiveRepository,
	store *infra.ArchiveStore,
	peppol PeppolTransmitter,
	icc []byte,
) DocumentService {
	return &documentService{
		invoices: invoices,
		archives: archives,
		store:    store,
		peppol:   peppol,
		icc:      icc,
	}
}

func (s *documentService) load(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	return inv, nil
}

// ── Renderers ─────────────────────────────────────────────────────────────────

func (s *documentService) XML(ctx context.Context, id uuid.UUID) (*Document, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return renderXML(inv)
}

func (s *documentService) PDF(ctx context.Context, id uuid.UUID) (*Document, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	pdf, _, err := s.renderPDF(inv, "")
	return pdf, err
}

func (s *documentService) ZUGFeRD(ctx context.Context, id uuid.UUID) (*Document, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderZUGFeRD(inv)
}

func renderXML(inv *model.Invoice) (*Document, error) {
	xmlDoc, err := infra.BuildXRechnung(inv)
	if err != nil {
		return nil, err
	}
	return &Document{Filename: infra.XRechnungFilename(inv.Number), ContentType: MimeXML, Content: xmlDoc}, nil
}

// renderPDF returns the PDF and the XML it embeds. attachmentName overrides the
// embedded file name.
func (s *documentService) renderPDF(inv *model.Invoice, attachmentName string) (*Document, *Document, error) {
	xmlDoc, err := renderXML(inv)
	if err != nil {
		return nil, nil, err
	}
	opts := infra.PDFOptions{
		XML:         xmlDoc.Content,
		XMLFilename: attachmentName,
		EPC:         PaymentCode(inv),
		ICCProfile:  s.icc,
	}
	pdf, err := infra.RenderInvoicePDF(inv, opts)
	if err != nil {
		return nil, nil, err
	}
	return &Document{Filename: pdf.Filename, ContentType: MimePDF, Content: pdf.Content}, xmlDoc, nil
}

func (s *documentService) renderZUGFeRD(inv *model.Invoice) (*Document, error) {
	pdf, xmlDoc, err := s.renderPDF(inv, infra.ZUGFeRDXMLName)
	if err != nil {
		return nil, err
	}
	pkg, err := infra.BuildZUGFeRD(pdf.Content, xmlDoc.Content, inv.Number, inv.IssueDate)
	if err != nil {
		return nil, err
	}
	return &Document{Filename: pkg.Filename, ContentType: MimeZIP, Content: pkg.Content}, nil
}

// PaymentCode builds the transfer QR for the gross amount when the issuer has an IBAN.
// Credit notes and zero totals get none.
func PaymentCode(inv *model.Invoice) *infra.EPCCode {
	iban := strings.TrimSpace(derefString(inv.Issuer.IBAN))
	if iban == "" {
		return nil
	}
	gross := tax.Compute(inv.Lines).Gross()
	if !gross.IsPositive() {
		return nil
	}
	code, err := infra.GenerateEPCQR(infra.EPCRequest{
		Name:       inv.Issuer.Name,
		IBAN:       iban,
		BIC:        derefString(inv.Issuer.BIC),
		Amount:     gross,
		Remittance: fmt.Sprintf("Rechnung %s", inv.Number),
	})
	if err != nil {
		log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("payment QR code skipped")
		return nil
	}
	return code
}

func (s *documentService) EPC(req dto.EPCRequest) (*dto.EPCResponse, error) {
	code, err := infra.GenerateEPCQR(infra.EPCRequest{
		Name:       req.Name,
		IBAN:       req.IBAN,
		BIC:        req.BIC,
		Amount:     req.Amount,
		Remittance: req.Remittance,
		Purpose:    req.Purpose,
		Version:    req.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return &dto.EPCResponse{
		Payload:   code.Payload,
		SVG:       code.SVG,
		PNGBase64: base64.StdEncoding.EncodeToString(code.PNG),
	}, nil
}

// MailAttachments returns the PDF (with embedded XML) and the standalone XRechnung.
func (s *documentService) MailAttachments(ctx context.Context, id uuid.UUID) ([]infra.MailAttachment, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	pdf, xmlDoc, err := s.renderPDF(inv, "")
	if err != nil {
		return nil, err
	}
	return []infra.MailAttachment{
		{Filename: pdf.Filename, ContentType: pdf.ContentType, Content: pdf.Content},
		{Filename: xmlDoc.Filename, ContentType: xmlDoc.ContentType, Content: xmlDoc.Content},
	}, nil
}

// ── Archive ───────────────────────────────────────────────────────────────────

// Archive stores the XML, PDF and ZUGFeRD package write-once and records one
// entry per document, retained until issue date + 10 years.
func (s *documentService) Archive(ctx context.Context, id uuid.UUID) (*dto.ArchiveResponse, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	pdf, xmlDoc, err := s.renderPDF(inv, "")
	if err != nil {
		return nil, err
	}
	pkg, err := s.renderZUGFeRD(inv)
	if err != nil {
		return nil, err
	}

	validUntil := inv.IssueDate.AddDate(retentionYears, 0, 0)
	resp := &dto.ArchiveResponse{InvoiceID: inv.ID.String(), Entries: make([]dto.ArchiveEntryResponse, 0, 3)}
	for _, doc := range []*Document{xmlDoc, pdf, pkg} {
		digest, relPath, err := s.store.Put(doc.Content)
		if err != nil {
			return nil, err
		}
		invoiceID := inv.ID
		entry := &model.ArchiveEntry{
			OrganizationID: inv.OrganizationID,
			InvoiceID:      &invoiceID,
			Filename:       doc.Filename,
			StoragePath:    relPath,
			SHA256:         digest,
			MimeType:       doc.ContentType,
			DocumentType:   archiveDocumentType(inv.Type),
			ValidUntil:     &validUntil,
		}
		if err := s.archives.Create(ctx, entry); err != nil {
			return nil, fmt.Errorf("archive entry %s: %w", doc.Filename, err)
		}
		resp.Entries = append(resp.Entries, toArchiveEntryResponse(entry))
	}

	log.Info().
		Str("invoice_id", inv.ID.String()).
		Str("number", inv.Number).
		Str("valid_until", validUntil.Format(dateLayout)).
		Msg("invoice archived")
	return resp, nil
}

func archiveDocumentType(t model.InvoiceType) string {
	if t == model.InvoiceCreditNote {
		return "credit_note"
	}
	return "invoice"
}

func toArchiveEntryResponse(e *model.ArchiveEntry) dto.ArchiveEntryResponse {
	return dto.ArchiveEntryResponse{
		ID:           e.ID.String(),
		Filename:     e.Filename,
		SHA256:       e.SHA256,
		MimeType:     e.MimeType,
		DocumentType: e.DocumentType,
		ValidUntil:   formatOptionalDate(e.ValidUntil),
	}
}

// ── Peppol ────────────────────────────────────────────────────────────────────

func (s *documentService) Peppol(ctx context.Context, id uuid.UUID, req dto.PeppolRequest) (*dto.PeppolResponse, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	xmlDoc, err := renderXML(inv)
	if err != nil {
		return nil, err
	}
	res, err := s.peppol.Transmit(ctx, xmlDoc.Content, strings.TrimSpace(req.ReceiverID), inv.Number)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("invoice_id", inv.ID.String()).
		Str("receiver", req.ReceiverID).
		Bool("success", res.Success).
		Str("status", res.Status).
		Msg("peppol transmission")
	return &dto.PeppolResponse{Success: res.Success, Status: res.Status, TransmissionID: res.TransmissionID}, nil
}
