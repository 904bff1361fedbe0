package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uniodonto/urede-api/internal/dto"
	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/service"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
	"github.com/uniodonto/urede-api/pkg/response"
)

// PedidoHandler wires HTTP endpoints to the pedido lifecycle service.
type PedidoHandler struct {
	service *service.PedidoService
}

// NewPedidoHandler creates a new handler.
func NewPedidoHandler(svc *service.PedidoService) *PedidoHandler {
	return &PedidoHandler{service: svc}
}

// Create godoc
// @Summary Open a credentialing pedido
// @Tags Pedidos
// @Accept json
// @Produce json
// @Param payload body dto.CreatePedidoRequest true "Pedido payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /pedidos [post]
func (h *PedidoHandler) Create(c *gin.Context) {
	var req dto.CreatePedidoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "payload de pedido inválido"))
		return
	}

	res, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// List godoc
// @Summary List pedidos visible to the caller
// @Tags Pedidos
// @Produce json
// @Param status query string false "Filter by status"
// @Param cidade_id query string false "Filter by city"
// @Success 200 {object} response.Envelope
// @Router /pedidos [get]
func (h *PedidoHandler) List(c *gin.Context) {
	filter := models.PedidoFilter{
		CidadeID: c.Query("cidade_id"),
		Limit:    parseIntQuery(c, "limit", 0),
		Offset:   parseIntQuery(c, "offset", 0),
	}
	if status := c.Query("status"); status != "" {
		filter.Status = []models.PedidoStatus{models.PedidoStatus(status)}
	}

	res, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Get godoc
// @Summary Fetch one pedido
// @Tags Pedidos
// @Produce json
// @Param id path string true "Pedido ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pedidos/{id} [get]
func (h *PedidoHandler) Get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Update godoc
// @Summary Update status or details of a pedido
// @Tags Pedidos
// @Accept json
// @Produce json
// @Param id path string true "Pedido ID"
// @Param payload body dto.UpdatePedidoRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pedidos/{id} [put]
func (h *PedidoHandler) Update(c *gin.Context) {
	var req dto.UpdatePedidoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "payload de atualização inválido"))
		return
	}

	res, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Delete godoc
// @Summary Soft delete a pedido
// @Tags Pedidos
// @Param id path string true "Pedido ID"
// @Success 204
// @Router /pedidos/{id} [delete]
func (h *PedidoHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Auditoria godoc
// @Summary History trail of a pedido
// @Tags Pedidos
// @Produce json
// @Param id path string true "Pedido ID"
// @Success 200 {object} response.Envelope
// @Router /pedidos/{id}/auditoria [get]
func (h *PedidoHandler) Auditoria(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)
	res, err := h.service.Auditoria(c.Request.Context(), claimsFromContext(c), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
