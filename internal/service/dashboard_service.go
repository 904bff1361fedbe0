package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uniodonto/urede-api/internal/dto"
	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/repository"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
)

type pedidoLister interface {
	List(ctx context.Context, claims *models.JWTClaims, filter models.PedidoFilter) ([]dto.PedidoResponse, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService aggregates per-viewer pedido statistics, cached briefly
// in Redis. Stats respect the same visibility rules as pedido listing, so
// the cache key carries the cooperative and papel.
type DashboardService struct {
	pedidos pedidoLister
	cache   statsCache
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(pedidos pedidoLister, cache statsCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		pedidos: pedidos,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Stats computes the dashboard counters for the authenticated viewer.
func (s *DashboardService) Stats(ctx context.Context, claims *models.JWTClaims) (*models.DashboardStats, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}

	key := fmt.Sprintf("%s%s:%s", repository.CacheKeyDashboardPrefix, claims.CooperativaID, claims.Papel)
	if s.cache != nil {
		var cached models.DashboardStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	pedidos, err := s.pedidos.List(ctx, claims, models.PedidoFilter{})
	if err != nil {
		return nil, err
	}

	stats := s.aggregate(pedidos)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *DashboardService) aggregate(pedidos []dto.PedidoResponse) *models.DashboardStats {
	stats := &models.DashboardStats{TotalPedidos: len(pedidos)}
	concluidosNoPrazo := 0
	for i := range pedidos {
		p := &pedidos[i]
		switch p.Status {
		case models.StatusEmAndamento:
			stats.PedidosEmAndamento++
		case models.StatusConcluido:
			stats.PedidosConcluidos++
			if p.DataConclusao != nil && !p.DataConclusao.After(p.PrazoAtual) {
				concluidosNoPrazo++
			}
		}
		if p.Aberto() && p.DiasRestantes <= 7 {
			stats.PedidosVencendo++
		}
	}
	if stats.PedidosConcluidos > 0 {
		stats.SLACumprido = float64(concluidosNoPrazo) / float64(stats.PedidosConcluidos) * 100
	}
	return stats
}
