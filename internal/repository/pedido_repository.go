package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniodonto/urede-api/internal/models"
)

const pedidoColumns = `id, titulo, criado_por, criado_por_user, cooperativa_solicitante_id, cooperativa_responsavel_id,
	cidade_id, especialidades, quantidade, observacoes, prioridade, nivel_atual, status,
	data_criacao, data_ultima_alteracao, prazo_atual, data_conclusao, excluido`

// PedidoRepository persists accreditation requests. Every mutation commits
// together with its audit row; state-changing updates are compare-and-swap
// on the previously read status or tier so concurrent writers never clobber
// each other silently.
type PedidoRepository struct {
	db *sqlx.DB
}

// NewPedidoRepository constructs the repository.
func NewPedidoRepository(db *sqlx.DB) *PedidoRepository {
	return &PedidoRepository{db: db}
}

// Create inserts a pedido and its creation audit entry in one transaction.
func (r *PedidoRepository) Create(ctx context.Context, pedido *models.Pedido, log models.AuditoriaLog) error {
	if pedido.ID == "" {
		pedido.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pedido.DataCriacao.IsZero() {
		pedido.DataCriacao = now
	}
	if pedido.DataUltimaAlteracao.IsZero() {
		pedido.DataUltimaAlteracao = now
	}
	log.PedidoID = pedido.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pedido tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO pedidos
		(id, titulo, criado_por, criado_por_user, cooperativa_solicitante_id, cooperativa_responsavel_id,
		 cidade_id, especialidades, quantidade, observacoes, prioridade, nivel_atual, status,
		 data_criacao, data_ultima_alteracao, prazo_atual, data_conclusao, excluido)
		VALUES (:id, :titulo, :criado_por, :criado_por_user, :cooperativa_solicitante_id, :cooperativa_responsavel_id,
		 :cidade_id, :especialidades, :quantidade, :observacoes, :prioridade, :nivel_atual, :status,
		 :data_criacao, :data_ultima_alteracao, :prazo_atual, :data_conclusao, :excluido)`
	if _, err := tx.NamedExecContext(ctx, query, pedido); err != nil {
		return fmt.Errorf("create pedido: %w", err)
	}
	if err := appendPedidoLog(ctx, tx, log); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pedido tx: %w", err)
	}
	return nil
}

// GetByID fetches a pedido regardless of soft-delete state; callers decide
// whether excluded rows are visible.
func (r *PedidoRepository) GetByID(ctx context.Context, id string) (*models.Pedido, error) {
	query := fmt.Sprintf(`SELECT %s FROM pedidos WHERE id = $1`, pedidoColumns)
	var pedido models.Pedido
	if err := r.db.GetContext(ctx, &pedido, query, id); err != nil {
		return nil, err
	}
	return &pedido, nil
}

// List returns pedidos matching the filter, newest first. Soft-deleted rows
// are excluded unless explicitly requested.
func (r *PedidoRepository) List(ctx context.Context, filter models.PedidoFilter) ([]models.Pedido, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	if !filter.IncluirExcludo {
		conditions = append(conditions, "excluido = FALSE")
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CidadeID != "" {
		args = append(args, filter.CidadeID)
		conditions = append(conditions, fmt.Sprintf("cidade_id = $%d", len(args)))
	}
	if filter.SolicitanteID != "" {
		args = append(args, filter.SolicitanteID)
		conditions = append(conditions, fmt.Sprintf("cooperativa_solicitante_id = $%d", len(args)))
	}
	if filter.ResponsavelID != "" {
		args = append(args, filter.ResponsavelID)
		conditions = append(conditions, fmt.Sprintf("cooperativa_responsavel_id = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM pedidos`, pedidoColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY data_criacao DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	var pedidos []models.Pedido
	if err := r.db.SelectContext(ctx, &pedidos, query, args...); err != nil {
		return nil, fmt.Errorf("list pedidos: %w", err)
	}
	return pedidos, nil
}

// ListVencidos returns open pedidos whose deadline lapsed at or before now.
// This is the escalation engine's scan; already-escalated rows naturally
// drop out because their deadline moved forward.
func (r *PedidoRepository) ListVencidos(ctx context.Context, now time.Time) ([]models.Pedido, error) {
	query := fmt.Sprintf(`SELECT %s FROM pedidos
		WHERE status IN ($1, $2) AND excluido = FALSE AND prazo_atual <= $3
		ORDER BY prazo_atual ASC`, pedidoColumns)
	var pedidos []models.Pedido
	if err := r.db.SelectContext(ctx, &pedidos, query, models.StatusNovo, models.StatusEmAndamento, now); err != nil {
		return nil, fmt.Errorf("list pedidos vencidos: %w", err)
	}
	return pedidos, nil
}

// UpdateStatusParams groups a compare-and-swap status transition.
type UpdateStatusParams struct {
	ID            string
	From          models.PedidoStatus
	To            models.PedidoStatus
	DataConclusao *time.Time
}

// UpdateStatus transitions the status only if it still holds the value the
// caller read. Zero affected rows surface as sql.ErrNoRows so the service
// can retry or report a conflict.
func (r *PedidoRepository) UpdateStatus(ctx context.Context, params UpdateStatusParams, log models.AuditoriaLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`UPDATE pedidos SET status = $1, data_conclusao = $2, data_ultima_alteracao = $3
		 WHERE id = $4 AND status = $5 AND excluido = FALSE`,
		params.To, params.DataConclusao, time.Now().UTC(), params.ID, params.From,
	)
	if err != nil {
		return fmt.Errorf("update pedido status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check status update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	if err := appendPedidoLog(ctx, tx, log); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status tx: %w", err)
	}
	return nil
}

// UpdateDetalhesParams groups the freely editable pedido fields.
type UpdateDetalhesParams struct {
	ID          string
	Observacoes *string
	Prioridade  *models.Prioridade
}

// UpdateDetalhes patches non-workflow fields together with an audit entry.
func (r *PedidoRepository) UpdateDetalhes(ctx context.Context, params UpdateDetalhesParams, log models.AuditoriaLog) error {
	setParts := []string{"data_ultima_alteracao = $1"}
	args := []interface{}{time.Now().UTC()}
	if params.Observacoes != nil {
		args = append(args, *params.Observacoes)
		setParts = append(setParts, fmt.Sprintf("observacoes = $%d", len(args)))
	}
	if params.Prioridade != nil {
		args = append(args, *params.Prioridade)
		setParts = append(setParts, fmt.Sprintf("prioridade = $%d", len(args)))
	}
	args = append(args, params.ID)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin detalhes tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(`UPDATE pedidos SET %s WHERE id = $%d AND excluido = FALSE`,
		strings.Join(setParts, ", "), len(args))
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update pedido detalhes: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check detalhes update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	if err := appendPedidoLog(ctx, tx, log); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit detalhes tx: %w", err)
	}
	return nil
}

// EscalateParams moves a pedido one tier up. FromNivel is the tier read by
// the scan; the update applies only while it still holds.
type EscalateParams struct {
	ID            string
	FromNivel     models.Nivel
	ToNivel       models.Nivel
	ResponsavelID string
	NovoPrazo     time.Time
}

// Escalate applies one escalation hop with compare-and-swap semantics and
// appends the escalation audit entry in the same transaction. A concurrent
// status change or earlier escalation yields sql.ErrNoRows.
func (r *PedidoRepository) Escalate(ctx context.Context, params EscalateParams, log models.AuditoriaLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin escalate tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`UPDATE pedidos SET nivel_atual = $1, cooperativa_responsavel_id = $2, prazo_atual = $3, data_ultima_alteracao = $4
		 WHERE id = $5 AND nivel_atual = $6 AND status IN ($7, $8) AND excluido = FALSE`,
		params.ToNivel, params.ResponsavelID, params.NovoPrazo, time.Now().UTC(),
		params.ID, params.FromNivel, models.StatusNovo, models.StatusEmAndamento,
	)
	if err != nil {
		return fmt.Errorf("escalate pedido: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check escalate rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	if err := appendPedidoLog(ctx, tx, log); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit escalate tx: %w", err)
	}
	return nil
}

// SoftDelete marks a pedido as excluded. The row and its audit trail are
// retained; active views filter it out.
func (r *PedidoRepository) SoftDelete(ctx context.Context, id string, log models.AuditoriaLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`UPDATE pedidos SET excluido = TRUE, data_ultima_alteracao = $1 WHERE id = $2 AND excluido = FALSE`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("soft delete pedido: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	if err := appendPedidoLog(ctx, tx, log); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}
