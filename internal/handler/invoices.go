package handler

import (
	"context"
	"net/http"

	"invoicetool/internal/dto"
	"invoicetool/internal/middleware"
	"invoicetool/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type InvoicesHandler struct{ svc service.InvoiceService }

func NewInvoicesHandler(svc service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{svc: svc}
}

// Create godoc
// @Summary      Create an invoice
// @Description  Creates a draft invoice. The number is drawn from the gap-free sequence unless given explicitly.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateInvoiceRequest true "Invoice"
// @Success      201  {object} dto.InvoiceResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/invoices [post]
func (h *InvoicesHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List invoices
// @Description  Paginated list, newest issue date first.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        organization_id query string false "Organization UUID"
// @Param        status          query string false "draft | approved | sent | partly_paid | paid | overdue | cancelled"
// @Param        page            query int    false "Page (default 1)"
// @Param        limit           query int    false "Page size (default 50, max 200)"
// @Success      200 {object} dto.InvoiceListResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/invoices [get]
func (h *InvoicesHandler) List(c *gin.Context) {
	var filter dto.InvoiceFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// OpenItems godoc
// @Summary      Open items
// @Description  Every non-cancelled invoice of the organization with an outstanding balance.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        organization_id query string true "Organization UUID"
// @Success      200 {array}  dto.InvoiceResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/invoices/open [get]
func (h *InvoicesHandler) OpenItems(c *gin.Context) {
	orgID, ok := organizationQuery(c)
	if !ok {
		return
	}
	resp, err := h.svc.OpenItems(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary      Get an invoice
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Invoice UUID"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/invoices/{id} [get]
func (h *InvoicesHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary      Approve a draft invoice
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Invoice UUID"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/invoices/{id}/approve [post]
func (h *InvoicesHandler) Approve(c *gin.Context) {
	h.transition(c, "approve", h.svc.Approve)
}

// Send godoc
// @Summary      Send an invoice
// @Description  Marks the invoice sent, archives it and mails it to the customer in the background.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Invoice UUID"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/invoices/{id}/send [post]
func (h *InvoicesHandler) Send(c *gin.Context) {
	h.transition(c, "send", h.svc.Send)
}

// Cancel godoc
// @Summary      Cancel an invoice
// @Description  Cancelled invoices keep their number and are excluded from reports.
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Invoice UUID"
// @Success      200 {object} dto.InvoiceResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/invoices/{id}/cancel [post]
func (h *InvoicesHandler) Cancel(c *gin.Context) {
	h.transition(c, "cancel", h.svc.Cancel)
}

// transition runs one lifecycle step and records who triggered it.
func (h *InvoicesHandler) transition(c *gin.Context, action string, fn func(context.Context, uuid.UUID) (*dto.InvoiceResponse, error)) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ev := log.Info().Str("invoice_id", id.String()).Str("action", action).Str("status", resp.Status)
	if claims := middleware.GetClaims(c); claims != nil {
		ev = ev.Str("user_id", claims.UserID)
	}
	ev.Msg("invoice transition")
	c.JSON(http.StatusOK, resp)
}
