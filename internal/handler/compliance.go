package handler

import (
	"net/http"

	"invoicetool/internal/service"

	"github.com/gin-gonic/gin"
)

type ComplianceHandler struct{ svc service.ComplianceService }

func NewComplianceHandler(svc service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{svc: svc}
}

// VATID godoc
// @Summary      Validate a VAT id
// @Description  Checks the id against VIES. Answers 503 while the VIES circuit breaker is open.
// @Tags         compliance
// @Produce      json
// @Security     BearerAuth
// @Param        vat_id path     string true "VAT id, e.g. DE123456789"
// @Success      200    {object} dto.VATIDResponse
// @Failure      400    {object} apierror.APIError
// @Failure      503    {object} apierror.APIError
// @Router       /v1/compliance/vat-id/{vat_id} [get]
func (h *ComplianceHandler) VATID(c *gin.Context) {
	resp, err := h.svc.ValidateVATID(c.Request.Context(), c.Param("vat_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ArchivedDocument godoc
// @Summary      Download an archived document
// @Description  The stored bytes are checked against their SHA-256 digest before delivery.
// @Tags         compliance
// @Security     BearerAuth
// @Param        id  path string true "Archive entry UUID"
// @Success      200 {file} file
// @Failure      404 {object} apierror.APIError
// @Router       /v1/compliance/archive/{id} [get]
func (h *ComplianceHandler) ArchivedDocument(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.svc.ArchivedDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	sendDocument(c, doc)
}
