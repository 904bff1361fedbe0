package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/uniodonto/urede-api/internal/models"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
)

type settingsStore interface {
	Get(ctx context.Context) (models.SystemSettings, error)
	Save(ctx context.Context, settings models.SystemSettings) error
}

// SettingsService exposes the escalation tuning knobs to confederação
// administrators.
type SettingsService struct {
	repo   settingsStore
	logger *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(repo settingsStore, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, logger: logger}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context, claims *models.JWTClaims) (*models.SystemSettings, error) {
	if err := requireConfederacao(claims); err != nil {
		return nil, err
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao carregar configurações")
	}
	return &settings, nil
}

// Update persists new settings after bounds checks.
func (s *SettingsService) Update(ctx context.Context, claims *models.JWTClaims, settings models.SystemSettings) (*models.SystemSettings, error) {
	if err := requireConfederacao(claims); err != nil {
		return nil, err
	}
	if settings.PrazoSingularFederacaoDias < 1 || settings.PrazoFederacaoConfederacaoDias < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "prazos devem ser de pelo menos 1 dia")
	}
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao salvar configurações")
	}
	s.logger.Info("system settings updated",
		zap.Int("prazo_singular_federacao_dias", settings.PrazoSingularFederacaoDias),
		zap.Int("prazo_federacao_confederacao_dias", settings.PrazoFederacaoConfederacaoDias),
		zap.Bool("escalonamento_ativo", settings.EscalonamentoAtivo))
	return &settings, nil
}

func requireConfederacao(claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Papel != models.PapelConfederacao {
		return appErrors.Clone(appErrors.ErrForbidden, "apenas a confederação pode gerenciar configurações")
	}
	return nil
}
