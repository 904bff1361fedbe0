package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/uniodonto/urede-api/internal/models"
)

func newAuditRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAuditRepositoryAppendPedidoLogFillsDefaults(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auditoria_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.AppendPedidoLog(context.Background(), models.AuditoriaLog{
		PedidoID:    "ped-1",
		UsuarioID:   models.SystemActorID,
		UsuarioNome: models.SystemActorNome,
		Acao:        models.EscalationAcao(models.NivelFederacao),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListPedidoLogsNewestFirst(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	rows := sqlmock.NewRows([]string{"id", "pedido_id", "usuario_id", "usuario_nome", "acao", "detalhes", "timestamp"}).
		AddRow("log-2", "ped-1", "user-1", "Ana", models.AcaoStatusAlterado, nil, time.Now()).
		AddRow("log-1", "ped-1", "user-1", "Ana", models.AcaoPedidoCriado, nil, time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, pedido_id, usuario_id")).
		WithArgs("ped-1", 200).
		WillReturnRows(rows)

	logs, err := repo.ListPedidoLogs(context.Background(), "ped-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "log-2", logs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListCoberturaLogsByCooperativa(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	destino := "coop-1"
	rows := sqlmock.NewRows([]string{
		"id", "cidade_id", "cooperativa_origem", "cooperativa_destino",
		"usuario_email", "usuario_nome", "usuario_papel", "detalhes", "timestamp",
	}).AddRow("log-1", "3550308", nil, destino, "ana@uniodonto.coop.br", "Ana", "confederacao", "assign", time.Now())

	mock.ExpectQuery(`SELECT .+ FROM cobertura_logs WHERE \(cooperativa_origem = \$1 OR cooperativa_destino = \$1\)`).
		WithArgs("coop-1", 50).
		WillReturnRows(rows)

	logs, err := repo.ListCoberturaLogs(context.Background(), models.CoberturaLogFilter{
		CooperativaID: "coop-1",
		Limit:         50,
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "coop-1", *logs[0].CooperativaDestino)
	require.NoError(t, mock.ExpectationsWereMet())
}
