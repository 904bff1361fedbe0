package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/service"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
	"github.com/uniodonto/urede-api/pkg/response"
)

// AdminHandler groups the confederação administration surface: the manual
// escalation trigger and the system settings.
type AdminHandler struct {
	escalation *service.EscalationService
	settings   *service.SettingsService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(escalation *service.EscalationService, settings *service.SettingsService) *AdminHandler {
	return &AdminHandler{escalation: escalation, settings: settings}
}

// Escalar godoc
// @Summary Run an escalation sweep now
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/escalar-pedidos [post]
func (h *AdminHandler) Escalar(c *gin.Context) {
	res, err := h.escalation.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// GetConfiguracoes returns the escalation settings.
func (h *AdminHandler) GetConfiguracoes(c *gin.Context) {
	res, err := h.settings.Get(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// PutConfiguracoes replaces the escalation settings.
func (h *AdminHandler) PutConfiguracoes(c *gin.Context) {
	var req models.SystemSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "payload de configurações inválido"))
		return
	}

	res, err := h.settings.Update(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
