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

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const defaultPaymentSource = "bank"

type PaymentService interface {
	Register(ctx context.Context, invoiceID uuid.UUID, req dto.RegisterPaymentRequest) (*dto.RegisterPaymentResponse, error)
	Reconcile(ctx context.Context, req dto.ReconcileRequest) (*dto.ReconcileResponse, error)
}

type paymentService struct {
	repo  repository.InvoiceRepository
	clock Clock
}

func NewPaymentService(repo repository.InvoiceRepository, clock Clock) PaymentService {
	return &paymentService{repo: repo, clock: clock}
}

// ── Register ──────────────────────────────────────────────────────────────────
// One transaction per payment:
//   1. lock the invoice row (SELECT … FOR UPDATE)
//   2. insert the payment and append it to the aggregate
//   3. re-evaluate the status with the new total and persist it
// Money received for a cancelled invoice is still booked; its status stays cancelled.

func (s *paymentService) Register(ctx context.Context, invoiceID uuid.UUID, req dto.RegisterPaymentRequest) (*dto.RegisterPaymentResponse, error) {
	booking := s.clock.Today()
	if req.BookingDate != nil && *req.BookingDate != "" {
		d, err := parseDate(*req.BookingDate, "booking_date")
		if err != nil {
			return nil, err
		}
		booking = d
	}
	source := req.Source
	if source == "" {
		source = defaultPaymentSource
	}

	var (
		inv     *model.Invoice
		payment model.Payment
	)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.FindForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return notFound(err, ErrInvoiceNotFound)
		}
		warnIfCancelled(locked)
		currency, err := paymentCurrency(req.Currency, locked.Currency)
		if err != nil {
			return err
		}

		payment = model.Payment{
			InvoiceID:   locked.ID,
			Amount:      req.Amount,
			Currency:    currency,
			BookingDate: booking,
			Reference:   req.Reference,
			Source:      source,
		}
		if err := s.repo.CreatePayment(ctx, tx, &payment); err != nil {
			return err
		}
		locked.AddPayment(payment)
		if err := s.settle(ctx, tx, locked); err != nil {
			return err
		}
		inv = locked
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	paid := inv.TotalPaid()
	return &dto.RegisterPaymentResponse{
		Payment:     toPaymentResponse(payment),
		Status:      string(inv.Status),
		TotalPaid:   paid,
		Outstanding: tax.Compute(inv.Lines).Gross().Sub(paid),
	}, nil
}

// settle runs the status resolver once and persists a changed status.
func (s *paymentService) settle(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error {
	previous := inv.Status
	tax.DetermineStatus(inv, inv.TotalPaid(), s.clock.Today())
	if inv.Status == previous {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, tx, inv.ID, inv.Status); err != nil {
		return err
	}
	log.Info().
		Str("invoice_id", inv.ID.String()).
		Str("number", inv.Number).
		Str("from", string(previous)).
		Str("to", string(inv.Status)).
		Str("total_paid", inv.TotalPaid().String()).
		Msg("invoice status changed")
	return nil
}

// ── Reconcile ─────────────────────────────────────────────────────────────────
// Bank transactions are grouped by normalized reference and matched against
// invoice numbers. Each matched invoice is settled in its own locked transaction
// so one bad group never rolls back another.

func (s *paymentService) Reconcile(ctx context.Context, req dto.ReconcileRequest) (*dto.ReconcileResponse, error) {
	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("%w: organization_id", ErrInvalidInput)
	}

	type bankLine struct {
		dto.BankTransaction
		booking time.Time
	}
	var order []string
	groups := make(map[string][]bankLine)
	for _, t := range req.Transactions {
		booking, err := parseDate(t.BookingDate, "booking_date")
		if err != nil {
			return nil, err
		}
		ref := normalizeReference(t.Reference)
		if _, seen := groups[ref]; !seen {
			order = append(order, ref)
		}
		groups[ref] = append(groups[ref], bankLine{BankTransaction: t, booking: booking})
	}

	resp := &dto.ReconcileResponse{
		Payments:  []dto.PaymentResponse{},
		Invoices:  []dto.ReconciledInvoice{},
		Unmatched: []string{},
	}
	for _, ref := range order {
		match, err := s.repo.FindByNumber(ctx, nil, orgID, ref)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resp.Unmatched = append(resp.Unmatched, ref)
			continue
		}
		if err != nil {
			return nil, err
		}

		var created []model.Payment
		var settled *model.Invoice
		txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			inv, err := s.repo.FindForUpdate(ctx, tx, match.ID)
			if err != nil {
				return notFound(err, ErrInvoiceNotFound)
			}
			warnIfCancelled(inv)
			created = created[:0]
			for _, line := range groups[ref] {
				currency, err := paymentCurrency(line.Currency, inv.Currency)
				if err != nil {
					return err
				}
				reference := ref
				p := model.Payment{
					InvoiceID:   inv.ID,
					Amount:      line.Amount,
					Currency:    currency,
					BookingDate: line.booking,
					Reference:   &reference,
					Source:      defaultPaymentSource,
				}
				if err := s.repo.CreatePayment(ctx, tx, &p); err != nil {
					return err
				}
				inv.AddPayment(p)
				created = append(created, p)
			}
			if err := s.settle(ctx, tx, inv); err != nil {
				return err
			}
			settled = inv
			return nil
		})
		if errors.Is(txErr, ErrInvalidInput) {
			log.Warn().Err(txErr).Str("reference", ref).Msg("bank transactions left unmatched")
			resp.Unmatched = append(resp.Unmatched, ref)
			continue
		}
		if txErr != nil {
			return nil, txErr
		}

		for _, p := range created {
			resp.Payments = append(resp.Payments, toPaymentResponse(p))
		}
		resp.Invoices = append(resp.Invoices, dto.ReconciledInvoice{
			InvoiceID: settled.ID.String(),
			Number:    settled.Number,
			Status:    string(settled.Status),
		})
	}

	log.Info().
		Str("organization_id", orgID.String()).
		Int("transactions", len(req.Transactions)).
		Int("matched_invoices", len(resp.Invoices)).
		Int("unmatched", len(resp.Unmatched)).
		Msg("bank reconciliation finished")
	return resp, nil
}

func warnIfCancelled(inv *model.Invoice) {
	if inv.Status != model.StatusCancelled {
		return
	}
	log.Warn().
		Str("invoice_id", inv.ID.String()).
		Str("number", inv.Number).
		Msg("payment booked against cancelled invoice")
}

func normalizeReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// paymentCurrency defaults to the invoice currency and rejects mismatches.
func paymentCurrency(requested, invoiceCurrency string) (string, error) {
	requested = strings.ToUpper(strings.TrimSpace(requested))
	if requested == "" {
		return invoiceCurrency, nil
	}
	if invoiceCurrency != "" && requested != invoiceCurrency {
		return "", fmt.Errorf("%w: payment currency %s does not match invoice currency %s", ErrInvalidInput, requested, invoiceCurrency)
	}
	return requested, nil
}
