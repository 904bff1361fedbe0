package dto

import "github.com/uniodonto/urede-api/internal/models"

// CreatePedidoRequest is the payload for opening an accreditation request.
type CreatePedidoRequest struct {
	Titulo         string            `json:"titulo" validate:"required"`
	CidadeID       string            `json:"cidade_id" validate:"required,len=7"`
	Especialidades []string          `json:"especialidades" validate:"required,min=1,dive,required"`
	Quantidade     int               `json:"quantidade" validate:"gte=0"`
	Observacoes    string            `json:"observacoes"`
	Prioridade     models.Prioridade `json:"prioridade"`
}

// UpdatePedidoRequest carries the mutable fields of a pedido. All fields are
// optional; absent fields are left untouched. The deadline is deliberately
// not updatable here — it only moves forward through escalation.
type UpdatePedidoRequest struct {
	Status      *models.PedidoStatus `json:"status"`
	Observacoes *string              `json:"observacoes"`
	Prioridade  *models.Prioridade   `json:"prioridade"`
}

// PedidoResponse decorates a pedido with display-only computed fields.
type PedidoResponse struct {
	models.Pedido
	DiasRestantes int    `json:"dias_restantes"`
	Urgencia      string `json:"urgencia"`
	PontoDeVista  string `json:"ponto_de_vista,omitempty"`
}
