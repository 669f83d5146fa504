package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicetool/internal/dto"
	"invoicetool/internal/model"
	"invoicetool/internal/repository"
	"invoicetool/internal/tax"
	"invoicetool/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const defaultUnit = "h"

// JobEnqueuer is satisfied by *worker.Dispatcher.
type JobEnqueuer interface {
	EnqueueArchive(ctx context.Context, payload worker.ArchiveJobPayload) error
	EnqueueEmail(ctx context.Context, payload worker.EmailJobPayload) error
}

type InvoiceService interface {
	Create(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error)
	List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error)
	OpenItems(ctx context.Context, orgID uuid.UUID) ([]dto.InvoiceResponse, error)
	Approve(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error)
	Send(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error)
	Cancel(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error)
}

type invoiceService struct {
	repo      repository.InvoiceRepository
	parties   repository.PartyRepository
	sequences repository.SequenceRepository
	jobs      JobEnqueuer
	clock     Clock
	prefix    string
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	parties repository.PartyRepository,
	sequences repository.SequenceRepository,
	jobs JobEnqueuer,
	clock Clock,
	numberPrefix string,
) InvoiceService {
	return &invoiceService{
		repo:      repo,
		parties:   parties,
		sequences: sequences,
		jobs:      jobs,
		clock:     clock,
		prefix:    numberPrefix,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// notFound maps gorm's missing-row error to a domain sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// FormatInvoiceNumber renders the n-th number of a yearly prefix, e.g. INV2026-00001.
func FormatInvoiceNumber(prefix string, n int) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}

// ── Create ────────────────────────────────────────────────────────────────────

func (s *invoiceService) Create(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("%w: organization_id", ErrInvalidInput)
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: customer_id", ErrInvalidInput)
	}

	org, err := s.parties.FindOrganization(ctx, orgID)
	if err != nil {
		return nil, notFound(err, ErrOrganizationNotFound)
	}
	customer, err := s.parties.FindCustomer(ctx, customerID)
	if err != nil {
		return nil, notFound(err, ErrCustomerNotFound)
	}
	if customer.OrganizationID != org.ID {
		return nil, ErrCustomerMismatch
	}

	inv, err := s.buildInvoice(req, org, customer)
	if err != nil {
		return nil, err
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		number, err := s.resolveNumber(ctx, tx, org.ID, req.Number)
		if err != nil {
			return err
		}
		inv.Number = number
		return s.repo.Create(ctx, tx, inv)
	})
	if errors.Is(txErr, gorm.ErrDuplicatedKey) {
		return nil, ErrDuplicateInvoiceNumber
	}
	if txErr != nil {
		return nil, txErr
	}

	warnIgnoredRates(inv)
	log.Info().
		Str("invoice_id", inv.ID.String()).
		Str("number", inv.Number).
		Str("organization_id", org.ID.String()).
		Int("lines", len(inv.Lines)).
		Msg("invoice created")

	inv.Issuer = *org
	inv.Customer = *customer
	return toInvoiceResponse(inv), nil
}

func (s *invoiceService) buildInvoice(req dto.CreateInvoiceRequest, org *model.Organization, customer *model.Customer) (*model.Invoice, error) {
	issue := s.clock.Today()
	if req.IssueDate != nil {
		d, err := parseDate(*req.IssueDate, "issue_date")
		if err != nil {
			return nil, err
		}
		issue = d
	}
	periodStart, err := parseOptionalDate(req.ServicePeriodStart, "service_period_start")
	if err != nil {
		return nil, err
	}
	periodEnd, err := parseOptionalDate(req.ServicePeriodEnd, "service_period_end")
	if err != nil {
		return nil, err
	}
	if periodStart != nil && periodEnd != nil && periodEnd.Before(*periodStart) {
		return nil, fmt.Errorf("%w: service_period_end is before service_period_start", ErrInvalidInput)
	}

	due, err := parseOptionalDate(req.DueDate, "due_date")
	if err != nil {
		return nil, err
	}
	var terms *string
	if req.PaymentTerms != nil {
		if due == nil && req.PaymentTerms.DueDays != nil {
			d := issue.AddDate(0, 0, *req.PaymentTerms.DueDays)
			due = &d
		}
		terms = req.PaymentTerms.Text
	}
	if due != nil && due.Before(issue) {
		return nil, fmt.Errorf("%w: due_date is before issue_date", ErrInvalidInput)
	}

	invType := model.InvoiceType(req.Type)
	if invType == "" {
		invType = model.InvoiceRegular
	}

	lines := BuildLines(req.Lines)

	return &model.Invoice{
		OrganizationID:     org.ID,
		CustomerID:         customer.ID,
		Type:               invType,
		Status:             model.StatusDraft,
		IssueDate:          issue,
		ServicePeriodStart: periodStart,
		ServicePeriodEnd:   periodEnd,
		DueDate:            due,
		Currency:           firstNonEmpty(req.Currency, customer.Currency, org.DefaultCurrency, "EUR"),
		ReverseCharge:      req.ReverseCharge,
		SelfBilling:        req.SelfBilling,
		TaxExemptionText:   req.TaxExemptionText,
		PaymentTerms:       terms,
		BaseDocumentNumber: req.BaseDocumentNumber,
		Notes:              req.Notes,
		Lines:              lines,
	}, nil
}

// BuildLines numbers the requested lines from 1 and fills the default unit.
func BuildLines(reqs []dto.InvoiceLineRequest) []model.InvoiceLine {
	lines := make([]model.InvoiceLine, len(reqs))
	for i, l := range reqs {
		unit := strings.TrimSpace(l.Unit)
		if unit == "" {
			unit = defaultUnit
		}
		lines[i] = model.InvoiceLine{
			Position:      i + 1,
			ArticleNumber: l.ArticleNumber,
			Description:   strings.TrimSpace(l.Description),
			Quantity:      l.Quantity,
			Unit:          unit,
			NetPrice:      l.NetPrice,
			TaxCategory:   model.TaxCategory(l.TaxCategory),
			TaxRate:       l.TaxRate,
		}
	}
	return lines
}

// resolveNumber checks a caller-supplied number for uniqueness or draws the next
// one from the organization's yearly sequence.
func (s *invoiceService) resolveNumber(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, requested *string) (string, error) {
	if requested != nil && strings.TrimSpace(*requested) != "" {
		number := strings.TrimSpace(*requested)
		exists, err := s.repo.NumberExists(ctx, tx, orgID, number)
		if err != nil {
			return "", err
		}
		if exists {
			return "", ErrDuplicateInvoiceNumber
		}
		return number, nil
	}

	prefix := fmt.Sprintf("%s%d", s.prefix, s.clock.Today().Year())
	n, err := s.sequences.Next(ctx, tx, orgID, prefix, repository.SequenceInvoice)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return FormatInvoiceNumber(prefix, n), nil
}

// warnIgnoredRates logs zero-rated lines whose stored rate the tax engine overrides.
func warnIgnoredRates(inv *model.Invoice) {
	for _, l := range inv.Lines {
		if tax.ZeroRated(l.TaxCategory) && !l.TaxRate.IsZero() {
			log.Warn().
				Str("invoice_id", inv.ID.String()).
				Int("position", l.Position).
				Str("category", string(l.TaxCategory)).
				Str("rate", l.TaxRate.String()).
				Msg("zero-rated line carries a non-zero rate; rate is ignored")
		}
	}
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *invoiceService) Get(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	return toInvoiceResponse(inv), nil
}

func (s *invoiceService) List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		data = append(data, *toInvoiceResponse(&invoices[i]))
	}
	return &dto.InvoiceListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// OpenItems lists invoices with a positive outstanding amount.
func (s *invoiceService) OpenItems(ctx context.Context, orgID uuid.UUID) ([]dto.InvoiceResponse, error) {
	invoices, err := s.repo.ListOpen(ctx, orgID)
	if err != nil {
		return nil, err
	}
	open := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		resp := toInvoiceResponse(&invoices[i])
		if resp.Outstanding.IsPositive() {
			open = append(open, *resp)
		}
	}
	return open, nil
}

// ── Transitions ───────────────────────────────────────────────────────────────

func (s *invoiceService) Approve(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.transition(ctx, id, model.StatusApproved, model.StatusDraft)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// Send marks the invoice sent (approving a draft on the way) and queues the
// archive and customer email jobs.
func (s *invoiceService) Send(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.transition(ctx, id, model.StatusSent, model.StatusDraft, model.StatusApproved)
	if err != nil {
		return nil, err
	}

	if s.jobs != nil {
		if err := s.jobs.EnqueueArchive(ctx, worker.ArchiveJobPayload{InvoiceID: inv.ID.String()}); err != nil {
			log.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("failed to enqueue archive job")
		}
		if email := strings.TrimSpace(derefString(inv.Customer.Email)); email != "" {
			job := worker.EmailJobPayload{
				InvoiceID: inv.ID.String(),
				ToEmail:   email,
				Subject:   fmt.Sprintf("Rechnung %s", inv.Number),
				Body:      emailBody(inv),
			}
			if err := s.jobs.EnqueueEmail(ctx, job); err != nil {
				log.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("failed to enqueue email job")
			}
		}
	}
	return toInvoiceResponse(inv), nil
}

// Cancel is absorbing. Paid invoices must be corrected with a credit note instead.
func (s *invoiceService) Cancel(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.transition(ctx, id, model.StatusCancelled,
		model.StatusDraft, model.StatusApproved, model.StatusSent, model.StatusPartlyPaid, model.StatusOverdue, model.StatusCancelled)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// transition moves the invoice to `to` when its current status is one of from.
func (s *invoiceService) transition(ctx context.Context, id uuid.UUID, to model.InvoiceStatus, from ...model.InvoiceStatus) (*model.Invoice, error) {
	var previous model.InvoiceStatus
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		inv, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return notFound(err, ErrInvoiceNotFound)
		}
		previous = inv.Status
		if !statusIn(inv.Status, from) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, to)
		}
		if inv.Status == to {
			return nil
		}
		return s.repo.UpdateStatus(ctx, tx, inv.ID, to)
	})
	if txErr != nil {
		return nil, txErr
	}

	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	if previous != to {
		log.Info().
			Str("invoice_id", id.String()).
			Str("number", inv.Number).
			Str("from", string(previous)).
			Str("to", string(to)).
			Msg("invoice status changed")
	}
	return inv, nil
}

func statusIn(s model.InvoiceStatus, set []model.InvoiceStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func emailBody(inv *model.Invoice) string {
	gross := tax.Compute(inv.Lines).Gross()
	var b strings.Builder
	fmt.Fprintf(&b, "Sehr geehrte Damen und Herren,\n\n")
	fmt.Fprintf(&b, "anbei erhalten Sie die Rechnung %s vom %s über %s %s.\n",
		inv.Number, inv.IssueDate.Format("02.01.2006"), gross.StringFixed(2), inv.Currency)
	if inv.DueDate != nil {
		fmt.Fprintf(&b, "Bitte begleichen Sie den Betrag bis zum %s.\n", inv.DueDate.Format("02.01.2006"))
	}
	fmt.Fprintf(&b, "\nMit freundlichen Grüßen\n%s\n", inv.Issuer.Name)
	return b.String()
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parseDate(s, field string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidInput, field)
	}
	return t, nil
}

func parseOptionalDate(s *string, field string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(*s, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return strings.ToUpper(v)
		}
	}
	return ""
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
