package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniodonto/urede-api/internal/models"
)

// AuditRepository exposes the append-only trails. There is deliberately no
// update or delete path; history rows are immutable once written. Appends
// that belong to a larger mutation run inside that mutation's transaction
// via the package-level helpers.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func appendPedidoLog(ctx context.Context, ext sqlx.ExtContext, log models.AuditoriaLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	if _, err := ext.ExecContext(ctx,
		`INSERT INTO auditoria_logs (id, pedido_id, usuario_id, usuario_nome, acao, detalhes, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID, log.PedidoID, log.UsuarioID, log.UsuarioNome, log.Acao, log.Detalhes, log.Timestamp,
	); err != nil {
		return fmt.Errorf("append auditoria log: %w", err)
	}
	return nil
}

func appendCoberturaLog(ctx context.Context, ext sqlx.ExtContext, log models.CoberturaLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	if _, err := ext.ExecContext(ctx,
		`INSERT INTO cobertura_logs (id, cidade_id, cooperativa_origem, cooperativa_destino, usuario_email, usuario_nome, usuario_papel, detalhes, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		log.ID, log.CidadeID, log.CooperativaOrigem, log.CooperativaDestino,
		log.UsuarioEmail, log.UsuarioNome, log.UsuarioPapel, log.Detalhes, log.Timestamp,
	); err != nil {
		return fmt.Errorf("append cobertura log: %w", err)
	}
	return nil
}

// AppendPedidoLog writes a standalone pedido history entry.
func (r *AuditRepository) AppendPedidoLog(ctx context.Context, log models.AuditoriaLog) error {
	return appendPedidoLog(ctx, r.db, log)
}

// ListPedidoLogs returns a pedido's history, newest first.
func (r *AuditRepository) ListPedidoLogs(ctx context.Context, pedidoID string, limit int) ([]models.AuditoriaLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var logs []models.AuditoriaLog
	if err := r.db.SelectContext(ctx, &logs,
		`SELECT id, pedido_id, usuario_id, usuario_nome, acao, detalhes, timestamp
		 FROM auditoria_logs WHERE pedido_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		pedidoID, limit,
	); err != nil {
		return nil, fmt.Errorf("list auditoria logs: %w", err)
	}
	return logs, nil
}

// ListCoberturaLogs returns coverage history filtered by city or by
// cooperative (either side of the change), newest first.
func (r *AuditRepository) ListCoberturaLogs(ctx context.Context, filter models.CoberturaLogFilter) ([]models.CoberturaLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	if filter.CidadeID != "" {
		args = append(args, filter.CidadeID)
		conditions = append(conditions, fmt.Sprintf("cidade_id = $%d", len(args)))
	}
	if filter.CooperativaID != "" {
		args = append(args, filter.CooperativaID)
		conditions = append(conditions, fmt.Sprintf("(cooperativa_origem = $%d OR cooperativa_destino = $%d)", len(args), len(args)))
	}

	query := `SELECT id, cidade_id, cooperativa_origem, cooperativa_destino, usuario_email, usuario_nome, usuario_papel, detalhes, timestamp FROM cobertura_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args))

	var logs []models.CoberturaLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list cobertura logs: %w", err)
	}
	return logs, nil
}
