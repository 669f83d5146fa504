package worker

// archive_worker.go
// Processes jobs from QueueArchive: renders the documents of a sent invoice and
// stores them write-once in the GoBD archive.

import (
	"context"
	"encoding/json"
	"fmt"

	"invoicetool/internal/dto"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ArchiveJobPayload is the job envelope sent to QueueArchive.
type ArchiveJobPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// InvoiceArchiver renders and archives every document of one invoice.
type InvoiceArchiver interface {
	Archive(ctx context.Context, invoiceID uuid.UUID) (*dto.ArchiveResponse, error)
}

type ArchiveWorker struct {
	archiver InvoiceArchiver
}

func NewArchiveWorker(archiver InvoiceArchiver) *ArchiveWorker {
	return &ArchiveWorker{archiver: archiver}
}

func (w *ArchiveWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ArchiveJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("archive_worker: invalid payload: %w", err)
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("archive_worker: invalid invoice_id %q", payload.InvoiceID)
	}

	res, err := w.archiver.Archive(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("archive_worker: %w", err)
	}
	log.Info().
		Str("worker", "archive").
		Str("invoice_id", payload.InvoiceID).
		Int("documents", len(res.Entries)).
		Msg("archive_worker: invoice archived")
	return nil
}
