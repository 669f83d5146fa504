package router

import (
	"time"

	"invoicetool/internal/config"
	"invoicetool/internal/handler"
	"invoicetool/internal/infra"
	"invoicetool/internal/middleware"
	"invoicetool/internal/repository"
	"invoicetool/internal/service"
	"invoicetool/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived clients built by the composition root.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	VIES   *infra.VIESClient
	Peppol *infra.PeppolClient
	Store  *infra.ArchiveStore
	// ICC is the optional PDF/A output intent profile.
	ICC []byte
}

// Services bundles the services shared between the HTTP API and the workers.
type Services struct {
	Invoices   service.InvoiceService
	Payments   service.PaymentService
	Documents  service.DocumentService
	Reports    service.ReportService
	Compliance service.ComplianceService
}

// NewServices wires repositories and services.
// Dependency graph: Service ← Repository ← DB/Redis
func NewServices(cfg *config.Config, d Deps) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clock := service.Clock{Location: loc, Now: time.Now}

	invoiceRepo := repository.NewInvoiceRepository(d.DB)
	partyRepo := repository.NewPartyRepository(d.DB)
	sequenceRepo := repository.NewSequenceRepository(d.DB)
	archiveRepo := repository.NewArchiveRepository(d.DB)

	// Worker dispatcher, injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(d.Redis)

	return &Services{
		Invoices:   service.NewInvoiceService(invoiceRepo, partyRepo, sequenceRepo, dispatcher, clock, cfg.InvoiceNumberPrefix),
		Payments:   service.NewPaymentService(invoiceRepo, clock),
		Documents:  service.NewDocumentService(invoiceRepo, archiveRepo, d.Store, d.Peppol, d.ICC),
		Reports:    service.NewReportService(invoiceRepo),
		Compliance: service.NewComplianceService(d.VIES, archiveRepo, d.Store),
	}, nil
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service
func New(cfg *config.Config, d Deps, svcs *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	// ── Handlers ─────────────────────────────────────────────────────────────
	invoicesH := handler.NewInvoicesHandler(svcs.Invoices)
	paymentsH := handler.NewPaymentsHandler(svcs.Payments)
	documentsH := handler.NewDocumentsHandler(svcs.Documents)
	reportsH := handler.NewReportsHandler(svcs.Reports)
	complianceH := handler.NewComplianceHandler(svcs.Compliance)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	var viesCB *infra.CircuitBreaker
	if d.VIES != nil {
		viesCB = d.VIES.Breaker()
	}
	r.GET("/health", handler.Health(d.DB, d.Redis, viesCB))

	all := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant, middleware.RoleApprover, middleware.RoleUser)
	bookkeeping := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant)
	approval := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleApprover)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		inv := v1.Group("/invoices")
		{
			inv.POST("", bookkeeping, invoicesH.Create)
			inv.GET("", all, invoicesH.List)
			inv.GET("/open", all, invoicesH.OpenItems)
			inv.POST("/epc", all, documentsH.EPC)
			inv.GET("/:id", all, invoicesH.Get)

			inv.POST("/:id/approve", approval, invoicesH.Approve)
			inv.POST("/:id/send", bookkeeping, invoicesH.Send)
			inv.POST("/:id/cancel", bookkeeping, invoicesH.Cancel)
			inv.POST("/:id/payments", bookkeeping, paymentsH.Register)

			inv.POST("/:id/xrechnung", all, documentsH.XRechnung)
			inv.POST("/:id/pdf", all, documentsH.PDF)
			inv.POST("/:id/zugferd", all, documentsH.ZUGFeRD)
			inv.POST("/:id/archive", bookkeeping, documentsH.Archive)
			inv.POST("/:id/peppol", bookkeeping, documentsH.Peppol)
		}

		v1.POST("/payments/reconcile", bookkeeping, paymentsH.Reconcile)

		reports := v1.Group("/reports", bookkeeping)
		{
			reports.POST("/vat-return", reportsH.VATReturn)
			reports.POST("/oss", reportsH.OSS)
			reports.POST("/datev", reportsH.DATEV)
		}

		compliance := v1.Group("/compliance")
		{
			compliance.GET("/vat-id/:vat_id", all, complianceH.VATID)
			compliance.GET("/archive/:id", bookkeeping, complianceH.ArchivedDocument)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
