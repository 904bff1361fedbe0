package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/uniodonto/urede-api/internal/dto"
	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/repository"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
)

type cidadeStore interface {
	List(ctx context.Context) ([]models.Cidade, error)
	GetByID(ctx context.Context, id string) (*models.Cidade, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Cidade, error)
	ListByOwner(ctx context.Context, cooperativaID string) ([]models.Cidade, error)
	ApplyCobertura(ctx context.Context, destino string, assigns []repository.CoberturaAssign, removes []string, logs []models.CoberturaLog) error
}

type cooperativaGetter interface {
	GetByID(ctx context.Context, id string) (*models.Cooperativa, error)
}

type coberturaAuditStore interface {
	ListCoberturaLogs(ctx context.Context, filter models.CoberturaLogFilter) ([]models.CoberturaLog, error)
}

type scopeResolver interface {
	Resolve(ctx context.Context, claims *models.JWTClaims) (models.Scope, error)
}

type cacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CoberturaService owns the city-to-cooperative coverage ledger. A coverage
// update is a set reconciliation: the caller submits the desired final city
// set for one cooperative and the service computes assignments and releases,
// authorizes each against the actor's scope, and commits everything with the
// audit rows in a single transaction.
type CoberturaService struct {
	cidades cidadeStore
	coops   cooperativaGetter
	audit   coberturaAuditStore
	scope   scopeResolver
	cache   cacheInvalidator
	logger  *zap.Logger
}

// NewCoberturaService constructs the service.
func NewCoberturaService(cidades cidadeStore, coops cooperativaGetter, audit coberturaAuditStore, scope scopeResolver, cache cacheInvalidator, logger *zap.Logger) *CoberturaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoberturaService{cidades: cidades, coops: coops, audit: audit, scope: scope, cache: cache, logger: logger}
}

// Reassign reconciles the coverage of one cooperative against the submitted
// draft. The whole batch succeeds or fails together; any authorization
// failure names the offending cities and leaves every owner untouched.
func (s *CoberturaService) Reassign(ctx context.Context, claims *models.JWTClaims, cooperativaID string, cidadeIDs []string) (*dto.CoberturaResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}

	scope, err := s.scope.Resolve(ctx, claims)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao resolver escopo")
	}
	if !scope.CanManage(cooperativaID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "acesso negado para gerenciar cobertura desta cooperativa")
	}

	if _, err := s.coops.GetByID(ctx, cooperativaID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cooperativa não encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao carregar cooperativa")
	}

	desired := dedupe(cidadeIDs)

	current, err := s.cidades.ListByOwner(ctx, cooperativaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao carregar cobertura atual")
	}
	currentSet := make(map[string]struct{}, len(current))
	for _, cidade := range current {
		currentSet[cidade.CdMunicipio7] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		desiredSet[id] = struct{}{}
	}

	toAssign := make([]string, 0, len(desired))
	for _, id := range desired {
		if _, owned := currentSet[id]; !owned {
			toAssign = append(toAssign, id)
		}
	}
	toRemove := make([]string, 0)
	for _, cidade := range current {
		if _, keep := desiredSet[cidade.CdMunicipio7]; !keep {
			toRemove = append(toRemove, cidade.CdMunicipio7)
		}
	}
	sort.Strings(toRemove)

	if len(toAssign) == 0 && len(toRemove) == 0 {
		return &dto.CoberturaResult{Updated: []models.Cidade{}}, nil
	}

	assigns, err := s.authorizeAssignments(ctx, scope, cooperativaID, toAssign)
	if err != nil {
		return nil, err
	}

	logs := s.buildLogs(claims, cooperativaID, assigns, toRemove)

	if err := s.cidades.ApplyCobertura(ctx, cooperativaID, assigns, toRemove, logs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao atualizar cobertura")
	}

	s.invalidate(ctx)

	changed := make([]string, 0, len(assigns)+len(toRemove))
	for _, assign := range assigns {
		changed = append(changed, assign.CidadeID)
	}
	changed = append(changed, toRemove...)
	updated, err := s.cidades.GetByIDs(ctx, changed)
	if err != nil {
		s.logger.Warn("failed to reload changed cidades", zap.Error(err))
		updated = []models.Cidade{}
	}

	return &dto.CoberturaResult{
		Updated:  updated,
		Assigned: len(assigns),
		Released: len(toRemove),
	}, nil
}

// authorizeAssignments verifies the actor may release each city's current
// owner. Confederação releases anything; Federação releases unowned cities
// or Singulars of its own federation; Singular only takes unowned cities.
func (s *CoberturaService) authorizeAssignments(ctx context.Context, scope models.Scope, destino string, toAssign []string) ([]repository.CoberturaAssign, error) {
	if len(toAssign) == 0 {
		return nil, nil
	}

	cidades, err := s.cidades.GetByIDs(ctx, toAssign)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao carregar cidades")
	}
	byID := make(map[string]models.Cidade, len(cidades))
	for _, cidade := range cidades {
		byID[cidade.CdMunicipio7] = cidade
	}

	missing := make([]string, 0)
	rejected := make([]string, 0)
	assigns := make([]repository.CoberturaAssign, 0, len(toAssign))

	for _, id := range toAssign {
		cidade, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		owner := cidade.Owner()
		if owner != "" && owner != destino && !scope.Unrestricted() {
			if scope.Level == models.ScopeSingular || !scope.CanManage(owner) {
				rejected = append(rejected, id)
				continue
			}
		}
		assigns = append(assigns, repository.CoberturaAssign{CidadeID: id, Origem: cidade.IDSingular})
	}

	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("cidades não encontradas: %s", strings.Join(missing, ", ")))
	}
	if len(rejected) > 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("cidades atribuídas a cooperativas fora do seu alcance: %s", strings.Join(rejected, ", ")))
	}
	return assigns, nil
}

func (s *CoberturaService) buildLogs(claims *models.JWTClaims, destino string, assigns []repository.CoberturaAssign, removes []string) []models.CoberturaLog {
	assignDetail := "assign"
	unassignDetail := "unassign"

	logs := make([]models.CoberturaLog, 0, len(assigns)+len(removes))
	for _, assign := range assigns {
		dest := destino
		logs = append(logs, models.CoberturaLog{
			CidadeID:           assign.CidadeID,
			CooperativaOrigem:  assign.Origem,
			CooperativaDestino: &dest,
			UsuarioEmail:       claims.Email,
			UsuarioNome:        claims.Nome,
			UsuarioPapel:       string(claims.Papel),
			Detalhes:           &assignDetail,
		})
	}
	for _, cidadeID := range removes {
		origem := destino
		logs = append(logs, models.CoberturaLog{
			CidadeID:          cidadeID,
			CooperativaOrigem: &origem,
			UsuarioEmail:      claims.Email,
			UsuarioNome:       claims.Nome,
			UsuarioPapel:      string(claims.Papel),
			Detalhes:          &unassignDetail,
		})
	}
	return logs
}

func (s *CoberturaService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.CacheKeyCidades); err != nil {
		s.logger.Warn("failed to invalidate cidades cache", zap.Error(err))
	}
	if err := s.cache.DeleteByPattern(ctx, repository.CacheKeyDashboardPrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// History returns the coverage change trail for a city or cooperative,
// newest first.
func (s *CoberturaService) History(ctx context.Context, claims *models.JWTClaims, filter models.CoberturaLogFilter) ([]models.CoberturaLog, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	logs, err := s.audit.ListCoberturaLogs(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao buscar histórico de cobertura")
	}
	return logs, nil
}

// Coverage returns the cities currently covered by a cooperative.
func (s *CoberturaService) Coverage(ctx context.Context, claims *models.JWTClaims, cooperativaID string) ([]models.Cidade, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	cidades, err := s.cidades.ListByOwner(ctx, cooperativaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao carregar cobertura")
	}
	return cidades, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
