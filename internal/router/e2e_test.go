//go:build integration

package router

// End-to-end flow against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invoicetool/internal/config"
	"invoicetool/internal/dto"
	"invoicetool/internal/infra"
	"invoicetool/internal/middleware"
	"invoicetool/internal/model"
	"invoicetool/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

type e2eEnv struct {
	server     *httptest.Server
	token      string
	orgID      string
	customerID string
}

func (e *e2eEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Setup ────────────────────────────────────────────────────────────────────

func setupE2E(t *testing.T) *e2eEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("invoicetool_test"),
		tcPostgres.WithUsername("invoicetool"),
		tcPostgres.WithPassword("invoicetool"),
		tcPostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, pgC)
	require.NoError(t, err)
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, rdC)
	require.NoError(t, err)
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                 "test",
		JWTSecret:           secret,
		DatabaseURL:         pgURL,
		RedisURL:            rdURL,
		WorkerPoolSize:      1,
		Timezone:            "Europe/Berlin",
		InvoiceNumberPrefix: "INV",
		ArchivePath:         t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	iban := "DE89370400440532013000"
	vat := "FR40303265045"
	org := &model.Organization{
		Name: "E2E GmbH", Street: "Teststraße 1", PostalCode: "10115", City: "Berlin",
		Country: "DE", IBAN: &iban, DefaultCurrency: "EUR",
	}
	parties := repository.NewPartyRepository(db)
	require.NoError(t, parties.CreateOrganization(ctx, org))
	customer := &model.Customer{
		OrganizationID: org.ID, Name: "Client SARL", Street: "2 Rue X", PostalCode: "75001",
		City: "Paris", Country: "FR", VATID: &vat, Language: "fr", Currency: "EUR",
	}
	require.NoError(t, parties.CreateCustomer(ctx, customer))

	deps := Deps{
		DB:     db,
		Redis:  rdb,
		VIES:   infra.NewVIESClient("", false, infra.NewCircuitBreaker(infra.DefaultCBConfig()), rdb),
		Peppol: infra.NewPeppolClient(""),
		Store:  infra.NewArchiveStore(cfg.ArchivePath),
	}
	svcs, err := NewServices(cfg, deps)
	require.NoError(t, err)

	srv := httptest.NewServer(New(cfg, deps, svcs))
	t.Cleanup(srv.Close)

	return &e2eEnv{
		server:     srv,
		token:      token(t, middleware.RoleAdmin),
		orgID:      org.ID.String(),
		customerID: customer.ID.String(),
	}
}

// ── Flow ─────────────────────────────────────────────────────────────────────

func TestE2E_InvoiceLifecycle(t *testing.T) {
	env := setupE2E(t)
	today := time.Now().In(mustBerlin(t)).Format("2006-01-02")

	// create
	resp := env.do(t, http.MethodPost, "/v1/invoices", map[string]any{
		"organization_id": env.orgID,
		"customer_id":     env.customerID,
		"lines": []map[string]any{
			{"description": "Beratung", "quantity": "5", "net_price": "100", "tax_category": "standard", "tax_rate": "0.19"},
			{"description": "Lizenz", "quantity": "1", "net_price": "200", "tax_category": "reverse_charge"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var inv dto.InvoiceResponse
	decode(t, resp, &inv)
	assert.Equal(t, "draft", inv.Status)
	assert.Equal(t, fmt.Sprintf("INV%s-00001", today[:4]), inv.Number)
	assert.Equal(t, "795.00", inv.TotalGross.StringFixed(2))

	// approve and send
	for _, action := range []string{"approve", "send"} {
		resp = env.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/"+action, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, action)
		resp.Body.Close()
	}

	// pay in full
	resp = env.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/payments", map[string]any{
		"amount": "795.00", "reference": inv.Number,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var paid dto.RegisterPaymentResponse
	decode(t, resp, &paid)
	assert.Equal(t, "paid", paid.Status)
	assert.True(t, paid.Outstanding.IsZero())

	// cancelling a paid invoice is a conflict
	resp = env.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// XRechnung download
	resp = env.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/xrechnung", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	xml, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(xml), inv.Number)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "invoice-"+inv.Number+".xml")

	// VAT return for today
	resp = env.do(t, http.MethodPost, "/v1/reports/vat-return?organization_id="+env.orgID, map[string]any{
		"start_date": today, "end_date": today,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var vat dto.VATReturnResponse
	decode(t, resp, &vat)
	assert.Equal(t, "500.00", vat.TaxableTurnoverStandard.StringFixed(2))
	assert.Equal(t, "200.00", vat.ReverseChargeTurnover.StringFixed(2))
}

func TestE2E_Health(t *testing.T) {
	env := setupE2E(t)

	resp, err := env.server.Client().Get(env.server.URL + "/health")
	require.NoError(t, err)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "connected", body["redis"])
	assert.True(t, strings.EqualFold(fmt.Sprint(body["ok"]), "true"))
}

func mustBerlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}
