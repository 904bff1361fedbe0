package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uniodonto/urede-api/internal/models"
)

const cooperativaColumns = `id_singular, uniodonto, raz_social, cnpj, codigo_ans, federacao, tipo`

// CooperativaRepository reads the cooperative roster. The roster is small
// (a few hundred rows) and mostly static; scope resolution loads it whole.
type CooperativaRepository struct {
	db *sqlx.DB
}

// NewCooperativaRepository constructs the repository.
func NewCooperativaRepository(db *sqlx.DB) *CooperativaRepository {
	return &CooperativaRepository{db: db}
}

// List returns every cooperative.
func (r *CooperativaRepository) List(ctx context.Context) ([]models.Cooperativa, error) {
	query := fmt.Sprintf(`SELECT %s FROM cooperativas ORDER BY uniodonto`, cooperativaColumns)
	var coops []models.Cooperativa
	if err := r.db.SelectContext(ctx, &coops, query); err != nil {
		return nil, fmt.Errorf("list cooperativas: %w", err)
	}
	return coops, nil
}

// GetByID fetches one cooperative by its short code.
func (r *CooperativaRepository) GetByID(ctx context.Context, id string) (*models.Cooperativa, error) {
	query := fmt.Sprintf(`SELECT %s FROM cooperativas WHERE id_singular = $1`, cooperativaColumns)
	var coop models.Cooperativa
	if err := r.db.GetContext(ctx, &coop, query, id); err != nil {
		return nil, err
	}
	return &coop, nil
}

// FindConfederacao returns the single top-level cooperative. Legacy rows may
// carry the accented tier label.
func (r *CooperativaRepository) FindConfederacao(ctx context.Context) (*models.Cooperativa, error) {
	query := fmt.Sprintf(`SELECT %s FROM cooperativas WHERE tipo IN ('CONFEDERACAO', 'CONFEDERAÇÃO') LIMIT 1`, cooperativaColumns)
	var coop models.Cooperativa
	if err := r.db.GetContext(ctx, &coop, query); err != nil {
		return nil, err
	}
	return &coop, nil
}

// FindFederacaoByNome resolves a Federação cooperative by its federation
// display name, the only membership key the legacy schema carries.
func (r *CooperativaRepository) FindFederacaoByNome(ctx context.Context, nome string) (*models.Cooperativa, error) {
	query := fmt.Sprintf(`SELECT %s FROM cooperativas WHERE tipo IN ('FEDERACAO', 'FEDERAÇÃO') AND federacao = $1 LIMIT 1`, cooperativaColumns)
	var coop models.Cooperativa
	if err := r.db.GetContext(ctx, &coop, query, nome); err != nil {
		return nil, err
	}
	return &coop, nil
}
