package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniodonto/urede-api/internal/service"
	"github.com/uniodonto/urede-api/pkg/response"
)

// CidadeHandler serves the municipality catalog.
type CidadeHandler struct {
	service *service.CidadeService
}

// NewCidadeHandler creates a new handler.
func NewCidadeHandler(svc *service.CidadeService) *CidadeHandler {
	return &CidadeHandler{service: svc}
}

// List returns every municipality, served from cache when warm.
func (h *CidadeHandler) List(c *gin.Context) {
	res, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Get returns one municipality by IBGE code.
func (h *CidadeHandler) Get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
