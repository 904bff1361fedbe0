package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/repository"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
)

type cidadeLister interface {
	List(ctx context.Context) ([]models.Cidade, error)
	GetByID(ctx context.Context, id string) (*models.Cidade, error)
	ListByOwner(ctx context.Context, cooperativaID string) ([]models.Cidade, error)
}

// CidadeService serves the municipality catalog. The full listing rarely
// changes and is large, so it sits behind the Redis cache and is
// invalidated on coverage writes.
type CidadeService struct {
	repo    cidadeLister
	cache   statsCache
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCidadeService constructs the service.
func NewCidadeService(repo cidadeLister, cache statsCache, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *CidadeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CidadeService{repo: repo, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

// List returns every known municipality, cache-first.
func (s *CidadeService) List(ctx context.Context) ([]models.Cidade, error) {
	if s.cache != nil {
		var cached []models.Cidade
		err := s.cache.Get(ctx, repository.CacheKeyCidades, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cidades cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	cidades, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao listar cidades")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.CacheKeyCidades, cidades, s.ttl); err != nil {
			s.logger.Warn("cidades cache write failed", zap.Error(err))
		}
	}
	return cidades, nil
}

// Get returns one municipality by its seven-digit IBGE code.
func (s *CidadeService) Get(ctx context.Context, id string) (*models.Cidade, error) {
	cidade, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao carregar cidade")
	}
	return cidade, nil
}

// ByCooperativa lists the municipalities covered by one cooperative.
func (s *CidadeService) ByCooperativa(ctx context.Context, cooperativaID string) ([]models.Cidade, error) {
	cidades, err := s.repo.ListByOwner(ctx, cooperativaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "falha ao listar cobertura")
	}
	return cidades, nil
}
