package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniodonto/urede-api/internal/dto"
	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/repository"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
)

type pedidoStore interface {
	Create(ctx context.Context, pedido *models.Pedido, log models.AuditoriaLog) error
	GetByID(ctx context.Context, id string) (*models.Pedido, error)
	List(ctx context.Context, filter models.PedidoFilter) ([]models.Pedido, error)
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams, log models.AuditoriaLog) error
	UpdateDetalhes(ctx context.Context, params repository.UpdateDetalhesParams, log models.AuditoriaLog) error
	SoftDelete(ctx context.Context, id string, log models.AuditoriaLog) error
}

type cidadeGetter interface {
	GetByID(ctx context.Context, id string) (*models.Cidade, error)
}

type settingsGetter interface {
	Get(ctx context.Context) (models.SystemSettings, error)
}

type pedidoAuditStore interface {
	ListPedidoLogs(ctx context.Context, pedidoID string, limit int) ([]models.AuditoriaLog, error)
}

// PedidoService orchestrates the accreditation request lifecycle: creation
// with coverage-based responsibility resolution, authorization-gated status
// transitions and soft deletion. Every mutation carries its audit entry in
// the same storage transaction.
type PedidoService struct {
	repo      pedidoStore
	cidades   cidadeGetter
	settings  settingsGetter
	audit     pedidoAuditStore
	scope     scopeResolver
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// PedidoServiceOption configures the service.
type PedidoServiceOption func(*PedidoService)

// WithPedidoClock overrides the time source.
func WithPedidoClock(now func() time.Time) PedidoServiceOption {
	return func(s *PedidoService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPedidoService constructs the service with defaults.
func NewPedidoService(repo pedidoStore, cidades cidadeGetter, settings settingsGetter, audit pedidoAuditStore, scope scopeResolver, validate *validator.Validate, logger *zap.Logger, opts ...PedidoServiceOption) *PedidoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &PedidoService{
		repo:      repo,
		cidades:   cidades,
		settings:  settings,
		audit:     audit,
		scope:     scope,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create opens a pedido. Responsibility resolves to the city's covering
// cooperative; an uncovered city falls back to the requester's own
// cooperative so the pedido is self-serviced rather than dropped.
func (s *PedidoService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreatePedidoRequest) (*dto.PedidoResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.Papel != models.PapelOperador && claims.Papel != models.PapelAdmin && claims.Papel != models.PapelConfederacao {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "sem permissão para criar pedidos")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "payload de pedido inválido")
	}

	prioridade := req.Prioridade
	if prioridade == "" {
		prioridade = models.PrioridadeMedia
	}
	if !models.ValidPrioridade(prioridade) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "prioridade desconhecida")
	}

	cidade, err := s.cidades.GetByID(ctx, req.CidadeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cidade não cadastrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao carregar cidade")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Warn("failed to load system settings, using defaults", zap.Error(err))
		settings = models.DefaultSystemSettings()
	}

	responsavel := cidade.Owner()
	selfService := responsavel == ""
	if selfService {
		responsavel = claims.CooperativaID
	}

	now := s.now()
	criadoPor := claims.UserID
	var observacoes *string
	if req.Observacoes != "" {
		observacoes = &req.Observacoes
	}

	pedido := &models.Pedido{
		Titulo:                   req.Titulo,
		CriadoPorUser:            &criadoPor,
		CooperativaSolicitanteID: claims.CooperativaID,
		CooperativaResponsavelID: responsavel,
		CidadeID:                 req.CidadeID,
		Especialidades:           models.StringList(req.Especialidades),
		Quantidade:               req.Quantidade,
		Observacoes:              observacoes,
		Prioridade:               prioridade,
		NivelAtual:               models.NivelSingular,
		Status:                   models.StatusNovo,
		DataCriacao:              now,
		DataUltimaAlteracao:      now,
		PrazoAtual:               now.AddDate(0, 0, settings.PrazoSingularFederacaoDias),
	}

	detalhes := fmt.Sprintf("Pedido criado: %s", req.Titulo)
	if selfService {
		detalhes += " (cidade sem cobertura, responsabilidade atribuída à solicitante)"
	}
	log := models.AuditoriaLog{
		UsuarioID:   claims.UserID,
		UsuarioNome: claims.Nome,
		Acao:        models.AcaoPedidoCriado,
		Detalhes:    &detalhes,
		Timestamp:   now,
	}

	if err := s.repo.Create(ctx, pedido, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao criar pedido")
	}

	return s.decorate(*pedido, claims), nil
}

// Get returns a pedido the actor is allowed to see.
func (s *PedidoService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*dto.PedidoResponse, error) {
	pedido, err := s.load(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(ctx, claims, pedido) {
		return nil, appErrors.ErrForbidden
	}
	return s.decorate(*pedido, claims), nil
}

// List returns the pedidos visible to the actor's papel: operador sees its
// cooperative's sent and received pedidos, federação its federation slice,
// admin and confederação everything.
func (s *PedidoService) List(ctx context.Context, claims *models.JWTClaims, filter models.PedidoFilter) ([]dto.PedidoResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter.IncluirExcludo = false
	pedidos, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao listar pedidos")
	}

	visible := make([]dto.PedidoResponse, 0, len(pedidos))
	var scope *models.Scope
	for i := range pedidos {
		pedido := &pedidos[i]
		switch claims.Papel {
		case models.PapelAdmin, models.PapelConfederacao:
			// full visibility
		case models.PapelOperador:
			if pedido.CooperativaSolicitanteID != claims.CooperativaID && pedido.CooperativaResponsavelID != claims.CooperativaID {
				continue
			}
		case models.PapelFederacao:
			if scope == nil {
				resolved, err := s.scope.Resolve(ctx, claims)
				if err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao resolver escopo")
				}
				scope = &resolved
			}
			if !scope.CanManage(pedido.CooperativaSolicitanteID) && !scope.CanManage(pedido.CooperativaResponsavelID) {
				continue
			}
		default:
			continue
		}
		visible = append(visible, *s.decorate(*pedido, claims))
	}
	return visible, nil
}

// Update applies status transitions and detail edits. Status moves through
// the state machine only, with compare-and-swap on the previously read
// value; one conflict triggers a single re-read and retry before surfacing.
func (s *PedidoService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdatePedidoRequest) (*dto.PedidoResponse, error) {
	pedido, err := s.load(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if !s.canEdit(claims, pedido) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "acesso negado para editar este pedido")
	}

	if req.Status != nil {
		pedido, err = s.transition(ctx, claims, pedido, *req.Status, true)
		if err != nil {
			return nil, err
		}
	}

	if req.Observacoes != nil || req.Prioridade != nil {
		if req.Prioridade != nil && !models.ValidPrioridade(*req.Prioridade) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "prioridade desconhecida")
		}
		detalhes := "Dados do pedido atualizados"
		log := models.AuditoriaLog{
			PedidoID:    pedido.ID,
			UsuarioID:   claims.UserID,
			UsuarioNome: claims.Nome,
			Acao:        models.AcaoPedidoEditado,
			Detalhes:    &detalhes,
			Timestamp:   s.now(),
		}
		params := repository.UpdateDetalhesParams{ID: pedido.ID, Observacoes: req.Observacoes, Prioridade: req.Prioridade}
		if err := s.repo.UpdateDetalhes(ctx, params, log); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao atualizar pedido")
		}
		if req.Observacoes != nil {
			pedido.Observacoes = req.Observacoes
		}
		if req.Prioridade != nil {
			pedido.Prioridade = *req.Prioridade
		}
	}

	return s.decorate(*pedido, claims), nil
}

func (s *PedidoService) transition(ctx context.Context, claims *models.JWTClaims, pedido *models.Pedido, to models.PedidoStatus, retry bool) (*models.Pedido, error) {
	if !s.canTransitionStatus(claims, pedido) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "somente a cooperativa responsável ou a solicitante podem alterar o status")
	}
	if !models.CanTransition(pedido.Status, to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("transição de status inválida: %s -> %s", pedido.Status, to))
	}

	now := s.now()
	params := repository.UpdateStatusParams{ID: pedido.ID, From: pedido.Status, To: to}
	if to == models.StatusConcluido {
		conclusao := now
		params.DataConclusao = &conclusao
	}

	detalhes := fmt.Sprintf("Status alterado de %s para %s", pedido.Status, to)
	log := models.AuditoriaLog{
		PedidoID:    pedido.ID,
		UsuarioID:   claims.UserID,
		UsuarioNome: claims.Nome,
		Acao:        models.AcaoStatusAlterado,
		Detalhes:    &detalhes,
		Timestamp:   now,
	}

	if err := s.repo.UpdateStatus(ctx, params, log); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if retry {
				fresh, loadErr := s.load(ctx, claims, pedido.ID)
				if loadErr != nil {
					return nil, loadErr
				}
				return s.transition(ctx, claims, fresh, to, false)
			}
			return nil, appErrors.ErrConflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao atualizar status")
	}

	pedido.Status = to
	pedido.DataUltimaAlteracao = now
	if params.DataConclusao != nil {
		pedido.DataConclusao = params.DataConclusao
	}
	return pedido, nil
}

// Delete soft-deletes a pedido. Legacy rows without a recorded creator fall
// back to requesting-cooperative membership for operador actors.
func (s *PedidoService) Delete(ctx context.Context, claims *models.JWTClaims, id string) error {
	pedido, err := s.load(ctx, claims, id)
	if err != nil {
		return err
	}

	allowed := false
	switch {
	case claims.Papel == models.PapelConfederacao:
		allowed = true
	case claims.Papel == models.PapelAdmin && pedido.CooperativaSolicitanteID == claims.CooperativaID:
		allowed = true
	case claims.Papel == models.PapelOperador:
		if pedido.CreatorKnown() {
			allowed = *pedido.CriadoPorUser == claims.UserID
		} else {
			// legacy rows predate criado_por_user
			allowed = pedido.CooperativaSolicitanteID == claims.CooperativaID
		}
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, "acesso negado para apagar este pedido")
	}

	detalhes := "Pedido excluído"
	log := models.AuditoriaLog{
		PedidoID:    pedido.ID,
		UsuarioID:   claims.UserID,
		UsuarioNome: claims.Nome,
		Acao:        models.AcaoPedidoExcluido,
		Detalhes:    &detalhes,
		Timestamp:   s.now(),
	}
	if err := s.repo.SoftDelete(ctx, id, log); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao excluir pedido")
	}
	return nil
}

// Auditoria returns a pedido's history trail.
func (s *PedidoService) Auditoria(ctx context.Context, claims *models.JWTClaims, id string, limit int) ([]models.AuditoriaLog, error) {
	pedido, err := s.load(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(ctx, claims, pedido) {
		return nil, appErrors.ErrForbidden
	}
	logs, err := s.audit.ListPedidoLogs(ctx, pedido.ID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao buscar auditoria")
	}
	return logs, nil
}

func (s *PedidoService) load(ctx context.Context, claims *models.JWTClaims, id string) (*models.Pedido, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	pedido, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao carregar pedido")
	}
	if pedido.Excluido {
		return nil, appErrors.ErrNotFound
	}
	return pedido, nil
}

func (s *PedidoService) canView(ctx context.Context, claims *models.JWTClaims, pedido *models.Pedido) bool {
	switch claims.Papel {
	case models.PapelAdmin, models.PapelConfederacao:
		return true
	case models.PapelOperador:
		return pedido.CooperativaSolicitanteID == claims.CooperativaID || pedido.CooperativaResponsavelID == claims.CooperativaID
	case models.PapelFederacao:
		scope, err := s.scope.Resolve(ctx, claims)
		if err != nil {
			s.logger.Warn("failed to resolve scope for visibility", zap.Error(err))
			return false
		}
		return scope.CanManage(pedido.CooperativaSolicitanteID) || scope.CanManage(pedido.CooperativaResponsavelID)
	}
	return false
}

func (s *PedidoService) canEdit(claims *models.JWTClaims, pedido *models.Pedido) bool {
	switch {
	case claims.Papel == models.PapelConfederacao:
		return true
	case claims.Papel == models.PapelAdmin && pedido.CooperativaSolicitanteID == claims.CooperativaID:
		return true
	case pedido.CooperativaResponsavelID == claims.CooperativaID:
		return true
	case claims.Papel == models.PapelOperador && pedido.CreatorKnown() && *pedido.CriadoPorUser == claims.UserID:
		return true
	}
	return false
}

// canTransitionStatus restricts workflow moves to the responsible
// cooperative's members, or the requester side when the actor is its admin,
// the creator, or a confederação user.
func (s *PedidoService) canTransitionStatus(claims *models.JWTClaims, pedido *models.Pedido) bool {
	if claims.Papel == models.PapelConfederacao {
		return true
	}
	if pedido.CooperativaResponsavelID == claims.CooperativaID {
		return true
	}
	if pedido.CooperativaSolicitanteID == claims.CooperativaID {
		if claims.Papel == models.PapelAdmin {
			return true
		}
		if pedido.CreatorKnown() && *pedido.CriadoPorUser == claims.UserID {
			return true
		}
	}
	return false
}

func (s *PedidoService) decorate(pedido models.Pedido, claims *models.JWTClaims) *dto.PedidoResponse {
	now := s.now()
	resp := &dto.PedidoResponse{
		Pedido:        pedido,
		DiasRestantes: pedido.DiasRestantes(now),
		Urgencia:      pedido.Urgencia(now),
	}
	if claims != nil && claims.CooperativaID != "" {
		resp.PontoDeVista = pedido.PontoDeVista(claims.CooperativaID)
	}
	return resp
}
