package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uniodonto/urede-api/internal/models"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
)

type cooperativaStore interface {
	List(ctx context.Context) ([]models.Cooperativa, error)
	GetByID(ctx context.Context, id string) (*models.Cooperativa, error)
}

// CooperativaService serves the cooperative roster.
type CooperativaService struct {
	repo cooperativaStore
}

// NewCooperativaService constructs the service.
func NewCooperativaService(repo cooperativaStore) *CooperativaService {
	return &CooperativaService{repo: repo}
}

// List returns every cooperative in the network.
func (s *CooperativaService) List(ctx context.Context) ([]models.Cooperativa, error) {
	coops, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao listar cooperativas")
	}
	return coops, nil
}

// Get returns one cooperative.
func (s *CooperativaService) Get(ctx context.Context, id string) (*models.Cooperativa, error) {
	coop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao carregar cooperativa")
	}
	return coop, nil
}
