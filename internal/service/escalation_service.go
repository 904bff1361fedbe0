package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/repository"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
)

type escalationPedidoStore interface {
	ListVencidos(ctx context.Context, now time.Time) ([]models.Pedido, error)
	Escalate(ctx context.Context, params repository.EscalateParams, log models.AuditoriaLog) error
}

type escalationCoopStore interface {
	GetByID(ctx context.Context, id string) (*models.Cooperativa, error)
	FindConfederacao(ctx context.Context) (*models.Cooperativa, error)
	FindFederacaoByNome(ctx context.Context, nome string) (*models.Cooperativa, error)
}

// EscalationService climbs overdue pedidos one responsibility level at a
// time: singular to its federação, federação to the confederação. Each hop
// rewrites the responsible cooperative, stamps a fresh deadline and records
// a system-actor audit entry. Deleted, closed and cancelled pedidos never
// move.
type EscalationService struct {
	pedidos  escalationPedidoStore
	coops    escalationCoopStore
	settings settingsGetter
	logger   *zap.Logger
	now      func() time.Time
}

// EscalationServiceOption configures the service.
type EscalationServiceOption func(*EscalationService)

// WithEscalationClock overrides the time source.
func WithEscalationClock(now func() time.Time) EscalationServiceOption {
	return func(s *EscalationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewEscalationService constructs the service.
func NewEscalationService(pedidos escalationPedidoStore, coops escalationCoopStore, settings settingsGetter, logger *zap.Logger, opts ...EscalationServiceOption) *EscalationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EscalationService{
		pedidos:  pedidos,
		coops:    coops,
		settings: settings,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Run scans all overdue open pedidos and escalates each eligible one.
// A failure on one pedido never blocks the rest; the summary reports what
// happened to every candidate. The system-settings kill switch short
// circuits the whole sweep.
func (s *EscalationService) Run(ctx context.Context) (*models.EscalationSummary, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Warn("failed to load system settings, using defaults", zap.Error(err))
		settings = models.DefaultSystemSettings()
	}
	if !settings.EscalonamentoAtivo {
		s.logger.Info("escalation disabled by system settings, skipping sweep")
		return &models.EscalationSummary{}, nil
	}

	now := s.now()
	vencidos, err := s.pedidos.ListVencidos(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao buscar pedidos vencidos")
	}

	summary := &models.EscalationSummary{Scanned: len(vencidos)}
	for i := range vencidos {
		pedido := &vencidos[i]
		switch err := s.escalateOne(ctx, pedido, settings, now); {
		case err == nil:
			summary.Escalated++
		case errors.Is(err, errAtTop):
			summary.AlreadyAtTop++
			summary.NoTopoIDs = append(summary.NoTopoIDs, pedido.ID)
		case errors.Is(err, sql.ErrNoRows):
			// someone else moved the pedido between scan and write
			summary.Conflicts++
		default:
			summary.Failed++
			s.logger.Error("failed to escalate pedido",
				zap.String("pedido_id", pedido.ID),
				zap.String("nivel", string(pedido.NivelAtual)),
				zap.Error(err))
		}
	}

	s.logger.Info("escalation sweep finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("escalated", summary.Escalated),
		zap.Int("already_at_top", summary.AlreadyAtTop),
		zap.Int("conflicts", summary.Conflicts),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

var errAtTop = errors.New("pedido já está na confederação")

func (s *EscalationService) escalateOne(ctx context.Context, pedido *models.Pedido, settings models.SystemSettings, now time.Time) error {
	destino, ok := models.NextNivel(pedido.NivelAtual)
	if !ok {
		return errAtTop
	}

	responsavel, destino, err := s.resolveDestino(ctx, pedido, destino)
	if err != nil {
		return err
	}

	novoPrazo := now.AddDate(0, 0, settings.PrazoFederacaoConfederacaoDias)
	detalhes := fmt.Sprintf("Pedido escalonado automaticamente de %s para %s por prazo vencido", pedido.NivelAtual, destino)
	log := models.AuditoriaLog{
		PedidoID:    pedido.ID,
		UsuarioID:   models.SystemActorID,
		UsuarioNome: models.SystemActorNome,
		Acao:        models.EscalationAcao(destino),
		Detalhes:    &detalhes,
		Timestamp:   now,
	}

	params := repository.EscalateParams{
		ID:            pedido.ID,
		FromNivel:     pedido.NivelAtual,
		ToNivel:       destino,
		ResponsavelID: responsavel,
		NovoPrazo:     novoPrazo,
	}
	return s.pedidos.Escalate(ctx, params, log)
}

// resolveDestino picks the cooperative that takes over at the target level.
// A singular whose federação cannot be resolved skips straight to the
// confederação so the pedido still lands on someone accountable.
func (s *EscalationService) resolveDestino(ctx context.Context, pedido *models.Pedido, destino models.Nivel) (string, models.Nivel, error) {
	if destino == models.NivelFederacao {
		solicitante, err := s.coops.GetByID(ctx, pedido.CooperativaSolicitanteID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", destino, err
		}
		if solicitante != nil && solicitante.Federacao != "" {
			federacao, err := s.coops.FindFederacaoByNome(ctx, solicitante.Federacao)
			if err == nil {
				return federacao.IDSingular, models.NivelFederacao, nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return "", destino, err
			}
			s.logger.Warn("federação not found by name, escalating straight to confederação",
				zap.String("pedido_id", pedido.ID),
				zap.String("federacao", solicitante.Federacao))
		}
		destino = models.NivelConfederacao
	}

	confederacao, err := s.coops.FindConfederacao(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", destino, errors.New("confederação não cadastrada")
		}
		return "", destino, err
	}
	return confederacao.IDSingular, models.NivelConfederacao, nil
}
