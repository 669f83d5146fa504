package service_test

import (
	"context"
	"strings"
	"time"

	"invoicetool/internal/dto"
	"invoicetool/internal/infra"
	"invoicetool/internal/model"
	"invoicetool/internal/repository"
	"invoicetool/internal/service"
	"invoicetool/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubPartyRepo is an in-memory PartyRepository.
type stubPartyRepo struct {
	orgs      map[uuid.UUID]*model.Organization
	customers map[uuid.UUID]*model.Customer
}

func newStubPartyRepo() *stubPartyRepo {
	return &stubPartyRepo{
		orgs:      make(map[uuid.UUID]*model.Organization),
		customers: make(map[uuid.UUID]*model.Customer),
	}
}

func (r *stubPartyRepo) CreateOrganization(_ context.Context, o *model.Organization) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.orgs[o.ID] = o
	return nil
}

func (r *stubPartyRepo) FindOrganization(_ context.Context, id uuid.UUID) (*model.Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *o
	return &c, nil
}

func (r *stubPartyRepo) CreateCustomer(_ context.Context, c *model.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.customers[c.ID] = c
	return nil
}

func (r *stubPartyRepo) FindCustomer(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubPartyRepo) ListCustomers(_ context.Context, orgID uuid.UUID) ([]model.Customer, error) {
	var out []model.Customer
	for _, c := range r.customers {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	return out, nil
}

var _ repository.PartyRepository = (*stubPartyRepo)(nil)

// stubInvoiceRepo is an in-memory InvoiceRepository. Reads return copies, like
// rows loaded from a database.
type stubInvoiceRepo struct {
	parties  *stubPartyRepo
	invoices map[uuid.UUID]*model.Invoice
	order    []uuid.UUID
	payments []model.Payment
}

func newStubInvoiceRepo(parties *stubPartyRepo) *stubInvoiceRepo {
	return &stubInvoiceRepo{parties: parties, invoices: make(map[uuid.UUID]*model.Invoice)}
}

func (r *stubInvoiceRepo) load(inv *model.Invoice) *model.Invoice {
	c := *inv
	c.Lines = append([]model.InvoiceLine(nil), inv.Lines...)
	c.Payments = append([]model.Payment(nil), inv.Payments...)
	if o, ok := r.parties.orgs[inv.OrganizationID]; ok {
		c.Issuer = *o
	}
	if cu, ok := r.parties.customers[inv.CustomerID]; ok {
		c.Customer = *cu
	}
	return &c
}

func (r *stubInvoiceRepo) Create(_ context.Context, _ *gorm.DB, inv *model.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
		if inv.Lines[i].ID == uuid.Nil {
			inv.Lines[i].ID = uuid.New()
		}
	}
	stored := *inv
	stored.Lines = append([]model.InvoiceLine(nil), inv.Lines...)
	r.invoices[inv.ID] = &stored
	r.order = append(r.order, inv.ID)
	return nil
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.load(inv), nil
}

func (r *stubInvoiceRepo) FindForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Invoice, error) {
	return r.FindByID(ctx, id)
}

func (r *stubInvoiceRepo) FindByNumber(_ context.Context, _ *gorm.DB, orgID uuid.UUID, number string) (*model.Invoice, error) {
	for _, id := range r.order {
		inv := r.invoices[id]
		if inv.OrganizationID == orgID && strings.EqualFold(inv.Number, strings.TrimSpace(number)) {
			return r.load(inv), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) NumberExists(_ context.Context, _ *gorm.DB, orgID uuid.UUID, number string) (bool, error) {
	for _, inv := range r.invoices {
		if inv.OrganizationID == orgID && inv.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubInvoiceRepo) List(_ context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	var out []model.Invoice
	for _, id := range r.order {
		inv := r.invoices[id]
		if filter.Status != "" && string(inv.Status) != filter.Status {
			continue
		}
		if filter.OrganizationID != "" && inv.OrganizationID.String() != filter.OrganizationID {
			continue
		}
		out = append(out, *r.load(inv))
	}
	return out, int64(len(out)), nil
}

func (r *stubInvoiceRepo) ListOpen(_ context.Context, orgID uuid.UUID) ([]model.Invoice, error) {
	var out []model.Invoice
	for _, id := range r.order {
		inv := r.invoices[id]
		if inv.OrganizationID == orgID && inv.Status != model.StatusCancelled {
			out = append(out, *r.load(inv))
		}
	}
	return out, nil
}

func (r *stubInvoiceRepo) ListForPeriod(_ context.Context, orgID uuid.UUID, start, end time.Time) ([]model.Invoice, error) {
	var out []model.Invoice
	for _, id := range r.order {
		inv := r.invoices[id]
		if inv.OrganizationID != orgID || inv.Status == model.StatusCancelled {
			continue
		}
		if inv.IssueDate.Before(start) || inv.IssueDate.After(end) {
			continue
		}
		out = append(out, *r.load(inv))
	}
	return out, nil
}

func (r *stubInvoiceRepo) UpdateStatus(_ context.Context, _ *gorm.DB, id uuid.UUID, status model.InvoiceStatus) error {
	inv, ok := r.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inv.Status = status
	return nil
}

func (r *stubInvoiceRepo) CreatePayment(_ context.Context, _ *gorm.DB, p *model.Payment) error {
	inv, ok := r.invoices[p.InvoiceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	inv.Payments = append(inv.Payments, *p)
	r.payments = append(r.payments, *p)
	return nil
}

func (r *stubInvoiceRepo) DB() *gorm.DB { return nil }

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

// stubSequenceRepo counts per (org, prefix).
type stubSequenceRepo struct {
	counters map[string]int
}

func (r *stubSequenceRepo) Next(_ context.Context, _ *gorm.DB, orgID uuid.UUID, prefix, seqType string) (int, error) {
	if r.counters == nil {
		r.counters = make(map[string]int)
	}
	key := orgID.String() + "/" + prefix + "/" + seqType
	r.counters[key]++
	return r.counters[key], nil
}

var _ repository.SequenceRepository = (*stubSequenceRepo)(nil)

// stubArchiveRepo stores entries in memory.
type stubArchiveRepo struct {
	entries map[uuid.UUID]*model.ArchiveEntry
}

func (r *stubArchiveRepo) Create(_ context.Context, e *model.ArchiveEntry) error {
	if r.entries == nil {
		r.entries = make(map[uuid.UUID]*model.ArchiveEntry)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.entries[e.ID] = e
	return nil
}

func (r *stubArchiveRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ArchiveEntry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (r *stubArchiveRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]model.ArchiveEntry, error) {
	var out []model.ArchiveEntry
	for _, e := range r.entries {
		if e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			out = append(out, *e)
		}
	}
	return out, nil
}

var _ repository.ArchiveRepository = (*stubArchiveRepo)(nil)

// stubJobs records enqueued jobs.
type stubJobs struct {
	archive []worker.ArchiveJobPayload
	email   []worker.EmailJobPayload
}

func (j *stubJobs) EnqueueArchive(_ context.Context, p worker.ArchiveJobPayload) error {
	j.archive = append(j.archive, p)
	return nil
}

func (j *stubJobs) EnqueueEmail(_ context.Context, p worker.EmailJobPayload) error {
	j.email = append(j.email, p)
	return nil
}

var _ service.JobEnqueuer = (*stubJobs)(nil)
var _ service.JobEnqueuer = (*worker.Dispatcher)(nil)

type stubPeppol struct {
	receiver, documentID string
	xml                  []byte
}

func (p *stubPeppol) Transmit(_ context.Context, xmlDoc []byte, receiverID, documentID string) (*infra.PeppolResult, error) {
	p.receiver, p.documentID, p.xml = receiverID, documentID, xmlDoc
	return &infra.PeppolResult{Success: true, Status: "accepted", TransmissionID: "tx-1"}, nil
}

var _ service.PeppolTransmitter = (*stubPeppol)(nil)
var _ service.PeppolTransmitter = (*infra.PeppolClient)(nil)

type stubVIES struct {
	err error
}

func (v stubVIES) Check(_ context.Context, id string) (*infra.VATCheckResult, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &infra.VATCheckResult{VATID: strings.ToUpper(id), Valid: true, TraderName: "Acme SARL", CheckedAt: fixedNow}, nil
}

var _ service.VATChecker = stubVIES{}
var _ service.VATChecker = (*infra.VIESClient)(nil)

// ── Fixtures ──────────────────────────────────────────────────────────────────

// fixedNow is 2026-03-15 in Berlin.
var fixedNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func testClock() service.Clock {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		panic(err)
	}
	return service.Clock{Location: loc, Now: func() time.Time { return fixedNow }}
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type world struct {
	parties  *stubPartyRepo
	invoices *stubInvoiceRepo
	org      *model.Organization
	customer *model.Customer
}

func newWorld() *world {
	parties := newStubPartyRepo()
	org := &model.Organization{
		Name: "Müller Beratung GmbH", Street: "Hauptstraße 1", PostalCode: "10115", City: "Berlin", Country: "DE",
		VATID: strPtr("DE123456789"), IBAN: strPtr("DE89 3704 0044 0532 0130 00"), BIC: strPtr("COBADEFFXXX"),
		DefaultCurrency: "EUR",
	}
	_ = parties.CreateOrganization(context.Background(), org)
	customer := &model.Customer{
		OrganizationID: org.ID, Name: "Acme SARL", Street: "1 Rue de la Paix", PostalCode: "75002", City: "Paris",
		Country: "FR", VATID: strPtr("FR12345678901"), Email: strPtr("ap@acme.fr"), Currency: "EUR",
	}
	_ = parties.CreateCustomer(context.Background(), customer)
	return &world{parties: parties, invoices: newStubInvoiceRepo(parties), org: org, customer: customer}
}

// createRequest is 5 h consulting at 100 EUR (19 %) plus a 200 EUR reverse-charge licence.
func (w *world) createRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		OrganizationID: w.org.ID.String(),
		CustomerID:     w.customer.ID.String(),
		PaymentTerms:   &dto.PaymentTermsRequest{DueDays: intPtr(14), Text: strPtr("14 Tage netto")},
		Lines: []dto.InvoiceLineRequest{
			{Description: "Beratung", Quantity: dec("5"), NetPrice: dec("100"), TaxCategory: "standard", TaxRate: dec("0.19")},
			{Description: "Lizenz", ArticleNumber: strPtr("LIC-7"), Quantity: dec("1"), Unit: "C62", NetPrice: dec("200"), TaxCategory: "reverse_charge"},
		},
	}
}

func (w *world) invoiceService(jobs service.JobEnqueuer) service.InvoiceService {
	return service.NewInvoiceService(w.invoices, w.parties, &stubSequenceRepo{}, jobs, testClock(), "INV")
}
