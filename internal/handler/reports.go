package handler

import (
	"net/http"

	"invoicetool/internal/dto"
	"invoicetool/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler {
	return &ReportsHandler{svc: svc}
}

// VATReturn godoc
// @Summary      VAT return figures
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        organization_id query    string            true "Organization UUID"
// @Param        body            body     dto.ReportRequest true "Period"
// @Success      200             {object} dto.VATReturnResponse
// @Failure      400             {object} apierror.APIError
// @Router       /v1/reports/vat-return [post]
func (h *ReportsHandler) VATReturn(c *gin.Context) {
	orgID, ok := organizationQuery(c)
	if !ok {
		return
	}
	var req dto.ReportRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.VATReturn(c.Request.Context(), orgID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// OSS godoc
// @Summary      One-Stop-Shop report
// @Description  Net and tax grouped by member state and supply category.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        organization_id query    string            true "Organization UUID"
// @Param        body            body     dto.ReportRequest true "Period"
// @Success      200             {array}  dto.OSSReportEntry
// @Failure      400             {object} apierror.APIError
// @Router       /v1/reports/oss [post]
func (h *ReportsHandler) OSS(c *gin.Context) {
	orgID, ok := organizationQuery(c)
	if !ok {
		return
	}
	var req dto.ReportRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.OSS(c.Request.Context(), orgID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DATEV godoc
// @Summary      DATEV booking export
// @Tags         reports
// @Accept       json
// @Produce      text/csv
// @Security     BearerAuth
// @Param        organization_id query string            true "Organization UUID"
// @Param        body            body  dto.ReportRequest true "Period"
// @Success      200             {file} file
// @Failure      400             {object} apierror.APIError
// @Router       /v1/reports/datev [post]
func (h *ReportsHandler) DATEV(c *gin.Context) {
	orgID, ok := organizationQuery(c)
	if !ok {
		return
	}
	var req dto.ReportRequest
	if !bindAndValidate(c, &req) {
		return
	}
	doc, err := h.svc.DATEV(c.Request.Context(), orgID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	sendDocument(c, doc)
}
