package worker

// email_worker.go
// Processes email jobs from QueueEmail.
// Sends the invoice PDF and its XRechnung to the customer via SMTP.

import (
	"context"
	"encoding/json"
	"fmt"

	"invoicetool/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	InvoiceID string `json:"invoice_id"`
	ToEmail   string `json:"to_email"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// AttachmentSource renders the documents mailed with an invoice.
type AttachmentSource interface {
	MailAttachments(ctx context.Context, invoiceID uuid.UUID) ([]infra.MailAttachment, error)
}

// InvoiceMailer is satisfied by *infra.Mailer.
type InvoiceMailer interface {
	Configured() bool
	SendInvoice(to, subject, body string, attachments ...infra.MailAttachment) error
}

// EmailWorker processes email jobs from QueueEmail.
type EmailWorker struct {
	mailer InvoiceMailer
	docs   AttachmentSource
}

// NewEmailWorker creates an EmailWorker with the provided SMTP mailer.
func NewEmailWorker(mailer InvoiceMailer, docs AttachmentSource) *EmailWorker {
	return &EmailWorker{mailer: mailer, docs: docs}
}

// Process sends one invoice email with PDF and XML attached.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Str("worker", "email").Str("invoice_id", payload.InvoiceID).Msg("email_worker: empty to_email, skipping")
		return nil
	}
	if !w.mailer.Configured() {
		log.Warn().Str("worker", "email").Str("invoice_id", payload.InvoiceID).Msg("email_worker: SMTP not configured, skipping")
		return nil
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("email_worker: invalid invoice_id %q", payload.InvoiceID)
	}

	attachments, err := w.docs.MailAttachments(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("email_worker: render attachments: %w", err)
	}
	if err := w.mailer.SendInvoice(payload.ToEmail, payload.Subject, payload.Body, attachments...); err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("worker", "email").Str("invoice_id", payload.InvoiceID).Str("to", payload.ToEmail).Msg("email_worker: invoice sent")
	return nil
}
