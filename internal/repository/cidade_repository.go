package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uniodonto/urede-api/internal/models"
)

const cidadeColumns = `cd_municipio_7, cd_municipio, nm_cidade, uf_municipio, nm_regiao, regional_saude, cidades_habitantes, id_singular`

// CidadeRepository persists municipalities and their coverage ownership.
type CidadeRepository struct {
	db *sqlx.DB
}

// NewCidadeRepository constructs the repository.
func NewCidadeRepository(db *sqlx.DB) *CidadeRepository {
	return &CidadeRepository{db: db}
}

// List returns every municipality.
func (r *CidadeRepository) List(ctx context.Context) ([]models.Cidade, error) {
	query := fmt.Sprintf(`SELECT %s FROM cidades ORDER BY nm_cidade`, cidadeColumns)
	var cidades []models.Cidade
	if err := r.db.SelectContext(ctx, &cidades, query); err != nil {
		return nil, fmt.Errorf("list cidades: %w", err)
	}
	return cidades, nil
}

// GetByID fetches a municipality by its 7-digit code.
func (r *CidadeRepository) GetByID(ctx context.Context, id string) (*models.Cidade, error) {
	query := fmt.Sprintf(`SELECT %s FROM cidades WHERE cd_municipio_7 = $1`, cidadeColumns)
	var cidade models.Cidade
	if err := r.db.GetContext(ctx, &cidade, query, id); err != nil {
		return nil, err
	}
	return &cidade, nil
}

// GetByIDs fetches the given municipalities; missing ids are simply absent
// from the result.
func (r *CidadeRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Cidade, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM cidades WHERE cd_municipio_7 IN (?)`, cidadeColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build cidades query: %w", err)
	}
	query = r.db.Rebind(query)
	var cidades []models.Cidade
	if err := r.db.SelectContext(ctx, &cidades, query, args...); err != nil {
		return nil, fmt.Errorf("get cidades by ids: %w", err)
	}
	return cidades, nil
}

// ListByOwner returns the municipalities currently covered by a cooperative.
func (r *CidadeRepository) ListByOwner(ctx context.Context, cooperativaID string) ([]models.Cidade, error) {
	query := fmt.Sprintf(`SELECT %s FROM cidades WHERE id_singular = $1 ORDER BY nm_cidade`, cidadeColumns)
	var cidades []models.Cidade
	if err := r.db.SelectContext(ctx, &cidades, query, cooperativaID); err != nil {
		return nil, fmt.Errorf("list cidades by owner: %w", err)
	}
	return cidades, nil
}

// CoberturaAssign is one city gaining the target cooperative as owner.
type CoberturaAssign struct {
	CidadeID string
	Origem   *string
}

// ApplyCobertura commits a reconciled coverage change set atomically:
// assignments, releases and their audit rows share one transaction. Releases
// keep the owner guard so a concurrent reassignment is not clobbered.
func (r *CidadeRepository) ApplyCobertura(ctx context.Context, destino string, assigns []CoberturaAssign, removes []string, logs []models.CoberturaLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cobertura tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, assign := range assigns {
		if _, err := tx.ExecContext(ctx,
			`UPDATE cidades SET id_singular = $1 WHERE cd_municipio_7 = $2`,
			destino, assign.CidadeID,
		); err != nil {
			return fmt.Errorf("assign cidade %s: %w", assign.CidadeID, err)
		}
	}

	for _, cidadeID := range removes {
		if _, err := tx.ExecContext(ctx,
			`UPDATE cidades SET id_singular = NULL WHERE cd_municipio_7 = $1 AND id_singular = $2`,
			cidadeID, destino,
		); err != nil {
			return fmt.Errorf("release cidade %s: %w", cidadeID, err)
		}
	}

	for _, log := range logs {
		if err := appendCoberturaLog(ctx, tx, log); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cobertura tx: %w", err)
	}
	return nil
}
