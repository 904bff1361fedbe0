package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/uniodonto/urede-api/internal/middleware"
	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/repository"
	"github.com/uniodonto/urede-api/internal/service"
)

type cidadeStoreFake struct {
	cidades map[string]models.Cidade
	owned   map[string][]models.Cidade
	applied bool
}

func (s *cidadeStoreFake) List(ctx context.Context) ([]models.Cidade, error) {
	out := make([]models.Cidade, 0, len(s.cidades))
	for _, c := range s.cidades {
		out = append(out, c)
	}
	return out, nil
}

func (s *cidadeStoreFake) GetByID(ctx context.Context, id string) (*models.Cidade, error) {
	c, ok := s.cidades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (s *cidadeStoreFake) GetByIDs(ctx context.Context, ids []string) ([]models.Cidade, error) {
	out := make([]models.Cidade, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.cidades[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *cidadeStoreFake) ListByOwner(ctx context.Context, cooperativaID string) ([]models.Cidade, error) {
	return s.owned[cooperativaID], nil
}

func (s *cidadeStoreFake) ApplyCobertura(ctx context.Context, destino string, assigns []repository.CoberturaAssign, removes []string, logs []models.CoberturaLog) error {
	s.applied = true
	return nil
}

type coopRosterFake struct{}

func (coopRosterFake) GetByID(ctx context.Context, id string) (*models.Cooperativa, error) {
	return &models.Cooperativa{IDSingular: id, Tipo: models.TipoSingular}, nil
}

type coberturaAuditFake struct{}

func (coberturaAuditFake) ListCoberturaLogs(ctx context.Context, filter models.CoberturaLogFilter) ([]models.CoberturaLog, error) {
	return []models.CoberturaLog{{ID: "log-1", CidadeID: filter.CidadeID}}, nil
}

type rosterScopeFake struct {
	scopes map[string]models.Scope
}

func (s *rosterScopeFake) Resolve(ctx context.Context, claims *models.JWTClaims) (models.Scope, error) {
	if claims == nil {
		return models.NoneScope(), nil
	}
	scope, ok := s.scopes[claims.CooperativaID]
	if !ok {
		return models.NoneScope(), nil
	}
	return scope, nil
}

func buildCoberturaRouter(store *cidadeStoreFake) *gin.Engine {
	gin.SetMode(gin.TestMode)
	scopes := &rosterScopeFake{scopes: map[string]models.Scope{
		"conf-1": {Level: models.ScopeConfederacao},
		"coop-1": {Level: models.ScopeSingular, Manageable: map[string]struct{}{"coop-1": {}}},
	}}
	svc := service.NewCoberturaService(store, coopRosterFake{}, coberturaAuditFake{}, scopes, nil, zap.NewNop())
	h := NewCoberturaHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if coop := c.GetHeader("X-Test-Coop"); coop != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID:        "user-1",
				Email:         "teste@uniodonto.coop.br",
				Nome:          "Teste",
				CooperativaID: coop,
				Papel:         models.Papel(c.GetHeader("X-Test-Papel")),
			})
		}
		c.Next()
	})
	router.GET("/cooperativas/:id/cobertura", h.Coverage)
	router.PUT("/cooperativas/:id/cobertura", h.Reassign)
	router.GET("/cobertura/logs", h.History)
	return router
}

func TestCoberturaRoutes(t *testing.T) {
	owner := "coop-2"
	store := &cidadeStoreFake{
		cidades: map[string]models.Cidade{
			"3550308": {CdMunicipio7: "3550308", NmCidade: "São Paulo"},
			"3106200": {CdMunicipio7: "3106200", NmCidade: "Belo Horizonte", IDSingular: &owner},
		},
		owned: map[string][]models.Cidade{"coop-1": nil},
	}
	router := buildCoberturaRouter(store)

	t.Run("reassign free city as confederacao", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, "/cooperativas/coop-1/cobertura",
			bytes.NewBufferString(`{"cidade_ids":["3550308"]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Coop", "conf-1")
		req.Header.Set("X-Test-Papel", string(models.PapelConfederacao))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.True(t, store.applied)
		require.Contains(t, resp.Body.String(), `"assigned":1`)
	})

	t.Run("reassign owned city rejected for singular", func(t *testing.T) {
		store.applied = false
		req, _ := http.NewRequest(http.MethodPut, "/cooperativas/coop-1/cobertura",
			bytes.NewBufferString(`{"cidade_ids":["3106200"]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Coop", "coop-1")
		req.Header.Set("X-Test-Papel", string(models.PapelAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
		require.False(t, store.applied)
	})

	t.Run("reassign other cooperative forbidden", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, "/cooperativas/coop-9/cobertura",
			bytes.NewBufferString(`{"cidade_ids":["3550308"]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Coop", "coop-1")
		req.Header.Set("X-Test-Papel", string(models.PapelAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("coverage listing", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/cooperativas/coop-1/cobertura", nil)
		req.Header.Set("X-Test-Coop", "coop-1")
		req.Header.Set("X-Test-Papel", string(models.PapelAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("history filtered by city", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/cobertura/logs?cidade_id=3550308", nil)
		req.Header.Set("X-Test-Coop", "conf-1")
		req.Header.Set("X-Test-Papel", string(models.PapelConfederacao))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), "3550308")
	})

	t.Run("unauthorized without claims", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, "/cooperativas/coop-1/cobertura",
			bytes.NewBufferString(`{"cidade_ids":[]}`))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
