package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/uniodonto/urede-api/internal/models"
)

// Settings keys in the key/value system_settings table.
const (
	settingPrazoSingularFederacao     = "prazo_singular_federacao_dias"
	settingPrazoFederacaoConfederacao = "prazo_federacao_confederacao_dias"
	settingEscalonamentoAtivo         = "escalonamento_ativo"
)

// SettingsRepository reads and writes the escalation tuning. Missing or
// malformed rows fall back to defaults so the engine never stalls on config.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

type settingRow struct {
	Chave string `db:"chave"`
	Valor string `db:"valor"`
}

// Get loads the system settings, applying defaults for absent keys.
func (r *SettingsRepository) Get(ctx context.Context) (models.SystemSettings, error) {
	settings := models.DefaultSystemSettings()

	var rows []settingRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT chave, valor FROM system_settings WHERE chave IN ($1, $2, $3)`,
		settingPrazoSingularFederacao, settingPrazoFederacaoConfederacao, settingEscalonamentoAtivo,
	); err != nil {
		return settings, fmt.Errorf("load system settings: %w", err)
	}

	for _, row := range rows {
		switch row.Chave {
		case settingPrazoSingularFederacao:
			if v, err := strconv.Atoi(row.Valor); err == nil && v > 0 {
				settings.PrazoSingularFederacaoDias = v
			}
		case settingPrazoFederacaoConfederacao:
			if v, err := strconv.Atoi(row.Valor); err == nil && v > 0 {
				settings.PrazoFederacaoConfederacaoDias = v
			}
		case settingEscalonamentoAtivo:
			if v, err := strconv.ParseBool(row.Valor); err == nil {
				settings.EscalonamentoAtivo = v
			}
		}
	}

	return settings, nil
}

// Save upserts the full settings document.
func (r *SettingsRepository) Save(ctx context.Context, settings models.SystemSettings) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	pairs := []settingRow{
		{Chave: settingPrazoSingularFederacao, Valor: strconv.Itoa(settings.PrazoSingularFederacaoDias)},
		{Chave: settingPrazoFederacaoConfederacao, Valor: strconv.Itoa(settings.PrazoFederacaoConfederacaoDias)},
		{Chave: settingEscalonamentoAtivo, Valor: strconv.FormatBool(settings.EscalonamentoAtivo)},
	}
	for _, pair := range pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO system_settings (chave, valor) VALUES ($1, $2)
			 ON CONFLICT (chave) DO UPDATE SET valor = EXCLUDED.valor`,
			pair.Chave, pair.Valor,
		); err != nil {
			return fmt.Errorf("save setting %s: %w", pair.Chave, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings tx: %w", err)
	}
	return nil
}
