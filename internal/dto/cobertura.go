package dto

import "github.com/uniodonto/urede-api/internal/models"

// UpdateCoberturaRequest submits the desired final set of cities for a
// cooperative. The service reconciles it against the current ownership.
type UpdateCoberturaRequest struct {
	CidadeIDs []string `json:"cidade_ids" validate:"required"`
}

// CoberturaResult reports the outcome of a reconciliation.
type CoberturaResult struct {
	Updated  []models.Cidade `json:"updated"`
	Assigned int             `json:"assigned"`
	Released int             `json:"released"`
}
