package handler

import (
	"context"
	"net/http"

	"invoicetool/internal/dto"
	"invoicetool/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DocumentsHandler struct{ svc service.DocumentService }

func NewDocumentsHandler(svc service.DocumentService) *DocumentsHandler {
	return &DocumentsHandler{svc: svc}
}

// XRechnung godoc
// @Summary      Render the XRechnung XML
// @Tags         documents
// @Produce      application/xml
// @Security     BearerAuth
// @Param        id  path string true "Invoice UUID"
// @Success      200 {file} file
// @Failure      404 {object} apierror.APIError
// @Router       /v1/invoices/{id}/xrechnung [post]
func (h *DocumentsHandler) XRechnung(c *gin.Context) {
	h.render(c, h.svc.XML)
}

// PDF godoc
// @Summary      Render the PDF/A-3 invoice
// @Description  The XRechnung XML is embedded as an associated file.
// @Tags         documents
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id  path string true "Invoice UUID"
// @Success      200 {file} file
// @Failure      404 {object} apierror.APIError
// @Router       /v1/invoices/{id}/pdf [post]
func (h *DocumentsHandler) PDF(c *gin.Context) {
	h.render(c, h.svc.PDF)
}

// ZUGFeRD godoc
// @Summary      Render the ZUGFeRD package
// @Tags         documents
// @Produce      application/zip
// @Security     BearerAuth
// @Param        id  path string true "Invoice UUID"
// @Success      200 {file} file
// @Failure      404 {object} apierror.APIError
// @Router       /v1/invoices/{id}/zugferd [post]
func (h *DocumentsHandler) ZUGFeRD(c *gin.Context) {
	h.render(c, h.svc.ZUGFeRD)
}

func (h *DocumentsHandler) render(c *gin.Context, fn func(context.Context, uuid.UUID) (*service.Document, error)) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	sendDocument(c, doc)
}

// Archive godoc
// @Summary      Archive an invoice
// @Description  Stores XML, PDF and ZUGFeRD package write-once with their SHA-256 digests.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Invoice UUID"
// @Success      201 {object} dto.ArchiveResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/invoices/{id}/archive [post]
func (h *DocumentsHandler) Archive(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Archive(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Peppol godoc
// @Summary      Transmit via Peppol
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string            true "Invoice UUID"
// @Param        body body     dto.PeppolRequest true "Receiver"
// @Success      200  {object} dto.PeppolResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/invoices/{id}/peppol [post]
func (h *DocumentsHandler) Peppol(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.PeppolRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Peppol(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EPC godoc
// @Summary      Generate a SEPA payment QR code
// @Description  Returns the EPC payload with SVG and base64 PNG renderings.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.EPCRequest true "Credit transfer"
// @Success      200  {object} dto.EPCResponse
// @Failure      400  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/invoices/epc [post]
func (h *DocumentsHandler) EPC(c *gin.Context) {
	var req dto.EPCRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EPC(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
