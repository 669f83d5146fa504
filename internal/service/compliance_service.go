package service

import (
	"context"
	"fmt"

	"invoicetool/internal/dto"
	"invoicetool/internal/infra"
	"invoicetool/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VATChecker is satisfied by *infra.VIESClient.
type VATChecker interface {
	Check(ctx context.Context, id string) (*infra.VATCheckResult, error)
}

type ComplianceService interface {
	ValidateVATID(ctx context.Context, vatID string) (*dto.VATIDResponse, error)
	// ArchivedDocument reads an archived file back and verifies its checksum.
	ArchivedDocument(ctx context.Context, entryID uuid.UUID) (*Document, error)
}

type complianceService struct {
	vies     VATChecker
	archives repository.ArchiveRepository
	store    *infra.ArchiveStore
}

func NewComplianceService(vies VATChecker, archives repository.ArchiveRepository, store *infra.ArchiveStore) ComplianceService {
	return &complianceService{vies: vies, archives: archives, store: store}
}

func (s *complianceService) ValidateVATID(ctx context.Context, vatID string) (*dto.VATIDResponse, error) {
	res, err := s.vies.Check(ctx, vatID)
	if err != nil {
		return nil, err
	}
	return &dto.VATIDResponse{
		VATID:              res.VATID,
		Valid:              res.Valid,
		TraderName:         res.TraderName,
		TraderAddress:      res.TraderAddress,
		ConsultationNumber: res.ConsultationNumber,
		CheckedAt:          res.CheckedAt,
	}, nil
}

func (s *complianceService) ArchivedDocument(ctx context.Context, entryID uuid.UUID) (*Document, error) {
	entry, err := s.archives.FindByID(ctx, entryID)
	if err != nil {
		return nil, notFound(err, ErrArchiveEntryNotFound)
	}
	content, err := s.store.Get(entry.StoragePath, entry.SHA256)
	if err != nil {
		log.Error().Err(err).Str("archive_entry_id", entryID.String()).Msg("archived document unreadable")
		return nil, fmt.Errorf("archive entry %s: %w", entryID, err)
	}
	return &Document{Filename: entry.Filename, ContentType: entry.MimeType, Content: content}, nil
}
