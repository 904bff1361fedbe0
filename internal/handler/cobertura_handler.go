package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniodonto/urede-api/internal/dto"
	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/service"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
	"github.com/uniodonto/urede-api/pkg/response"
)

// CoberturaHandler exposes the city coverage ledger.
type CoberturaHandler struct {
	service *service.CoberturaService
}

// NewCoberturaHandler creates a new handler.
func NewCoberturaHandler(svc *service.CoberturaService) *CoberturaHandler {
	return &CoberturaHandler{service: svc}
}

// Coverage godoc
// @Summary Cities covered by a cooperative
// @Tags Cobertura
// @Produce json
// @Param id path string true "Cooperativa ID"
// @Success 200 {object} response.Envelope
// @Router /cooperativas/{id}/cobertura [get]
func (h *CoberturaHandler) Coverage(c *gin.Context) {
	res, err := h.service.Coverage(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Reassign godoc
// @Summary Replace a cooperative's coverage set
// @Description Declares the full list of cities the cooperative should own.
// Cities are assigned and released to reconcile the current ledger with the
// declared set, atomically and fully audited.
// @Tags Cobertura
// @Accept json
// @Produce json
// @Param id path string true "Cooperativa ID"
// @Param payload body dto.UpdateCoberturaRequest true "Declared city set"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /cooperativas/{id}/cobertura [put]
func (h *CoberturaHandler) Reassign(c *gin.Context) {
	var req dto.UpdateCoberturaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "payload de cobertura inválido"))
		return
	}

	res, err := h.service.Reassign(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.CidadeIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// HistoryByCooperativa lists coverage changes involving the cooperative in the path.
func (h *CoberturaHandler) HistoryByCooperativa(c *gin.Context) {
	filter := models.CoberturaLogFilter{
		CooperativaID: c.Param("id"),
		Limit:         parseIntQuery(c, "limit", 0),
	}
	res, err := h.service.History(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// HistoryByCidade lists the ownership history of the city in the path.
func (h *CoberturaHandler) HistoryByCidade(c *gin.Context) {
	filter := models.CoberturaLogFilter{
		CidadeID: c.Param("id"),
		Limit:    parseIntQuery(c, "limit", 0),
	}
	res, err := h.service.History(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// History godoc
// @Summary Coverage change log
// @Tags Cobertura
// @Produce json
// @Param cidade_id query string false "Filter by city"
// @Param cooperativa_id query string false "Filter by cooperative"
// @Success 200 {object} response.Envelope
// @Router /cobertura/logs [get]
func (h *CoberturaHandler) History(c *gin.Context) {
	filter := models.CoberturaLogFilter{
		CidadeID:      c.Query("cidade_id"),
		CooperativaID: c.Query("cooperativa_id"),
		Limit:         parseIntQuery(c, "limit", 0),
	}
	res, err := h.service.History(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
