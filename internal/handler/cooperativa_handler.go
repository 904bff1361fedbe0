package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniodonto/urede-api/internal/service"
	"github.com/uniodonto/urede-api/pkg/response"
)

// CooperativaHandler serves the cooperative roster.
type CooperativaHandler struct {
	service *service.CooperativaService
}

// NewCooperativaHandler creates a new handler.
func NewCooperativaHandler(svc *service.CooperativaService) *CooperativaHandler {
	return &CooperativaHandler{service: svc}
}

// List returns all cooperatives.
func (h *CooperativaHandler) List(c *gin.Context) {
	res, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Get returns one cooperative.
func (h *CooperativaHandler) Get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
