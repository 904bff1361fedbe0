package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/uniodonto/urede-api/internal/middleware"
	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/repository"
	"github.com/uniodonto/urede-api/internal/service"
)

type pedidoStoreFake struct {
	pedidos map[string]*models.Pedido
}

func (s *pedidoStoreFake) Create(ctx context.Context, pedido *models.Pedido, log models.AuditoriaLog) error {
	pedido.ID = "ped-new"
	s.pedidos[pedido.ID] = pedido
	return nil
}

func (s *pedidoStoreFake) GetByID(ctx context.Context, id string) (*models.Pedido, error) {
	p, ok := s.pedidos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *p
	return &clone, nil
}

func (s *pedidoStoreFake) List(ctx context.Context, filter models.PedidoFilter) ([]models.Pedido, error) {
	out := make([]models.Pedido, 0, len(s.pedidos))
	for _, p := range s.pedidos {
		out = append(out, *p)
	}
	return out, nil
}

func (s *pedidoStoreFake) UpdateStatus(ctx context.Context, params repository.UpdateStatusParams, log models.AuditoriaLog) error {
	p, ok := s.pedidos[params.ID]
	if !ok || p.Status != params.From {
		return sql.ErrNoRows
	}
	p.Status = params.To
	return nil
}

func (s *pedidoStoreFake) UpdateDetalhes(ctx context.Context, params repository.UpdateDetalhesParams, log models.AuditoriaLog) error {
	return nil
}

func (s *pedidoStoreFake) SoftDelete(ctx context.Context, id string, log models.AuditoriaLog) error {
	p, ok := s.pedidos[id]
	if !ok || p.Excluido {
		return sql.ErrNoRows
	}
	p.Excluido = true
	return nil
}

type cidadeGetterFake struct {
	cidades map[string]models.Cidade
}

func (s *cidadeGetterFake) GetByID(ctx context.Context, id string) (*models.Cidade, error) {
	c, ok := s.cidades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

type settingsFake struct{}

func (settingsFake) Get(ctx context.Context) (models.SystemSettings, error) {
	return models.DefaultSystemSettings(), nil
}

type auditFake struct{}

func (auditFake) ListPedidoLogs(ctx context.Context, pedidoID string, limit int) ([]models.AuditoriaLog, error) {
	return []models.AuditoriaLog{{ID: "log-1", PedidoID: pedidoID, Acao: models.AcaoPedidoCriado}}, nil
}

type scopeFake struct{}

func (scopeFake) Resolve(ctx context.Context, claims *models.JWTClaims) (models.Scope, error) {
	return models.NoneScope(), nil
}

func buildPedidoRouter(store *pedidoStoreFake) *gin.Engine {
	gin.SetMode(gin.TestMode)
	owner := "coop-sp"
	svc := service.NewPedidoService(store,
		&cidadeGetterFake{cidades: map[string]models.Cidade{
			"3550308": {CdMunicipio7: "3550308", NmCidade: "São Paulo", IDSingular: &owner},
		}},
		settingsFake{}, auditFake{}, scopeFake{}, nil, zap.NewNop())
	h := NewPedidoHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if coop := c.GetHeader("X-Test-Coop"); coop != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID:        "user-1",
				Nome:          "Teste",
				CooperativaID: coop,
				Papel:         models.Papel(c.GetHeader("X-Test-Papel")),
			})
		}
		c.Next()
	})
	router.POST("/pedidos", h.Create)
	router.GET("/pedidos", h.List)
	router.GET("/pedidos/:id", h.Get)
	router.PUT("/pedidos/:id", h.Update)
	router.DELETE("/pedidos/:id", h.Delete)
	router.GET("/pedidos/:id/auditoria", h.Auditoria)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPedidoRoutes(t *testing.T) {
	criador := "user-1"
	store := &pedidoStoreFake{pedidos: map[string]*models.Pedido{
		"ped-1": {
			ID:                       "ped-1",
			Titulo:                   "Existente",
			CriadoPorUser:            &criador,
			CooperativaSolicitanteID: "coop-rj",
			CooperativaResponsavelID: "coop-sp",
			CidadeID:                 "3550308",
			Prioridade:               models.PrioridadeMedia,
			NivelAtual:               models.NivelSingular,
			Status:                   models.StatusNovo,
			PrazoAtual:               time.Now().Add(720 * time.Hour),
		},
	}}
	router := buildPedidoRouter(store)

	t.Run("create success", func(t *testing.T) {
		payload := `{"titulo":"Credenciar ortodontista","cidade_id":"3550308","especialidades":["ortodontia"],"quantidade":1}`
		req, _ := http.NewRequest(http.MethodPost, "/pedidos", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Coop", "coop-rj")
		req.Header.Set("X-Test-Papel", string(models.PapelOperador))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"cooperativa_responsavel_id":"coop-sp"`)
	})

	t.Run("create unauthorized without claims", func(t *testing.T) {
		payload := `{"titulo":"x","cidade_id":"3550308","especialidades":["ortodontia"]}`
		req, _ := http.NewRequest(http.MethodPost, "/pedidos", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("create malformed payload", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/pedidos", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Coop", "coop-rj")
		req.Header.Set("X-Test-Papel", string(models.PapelOperador))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("get decorated with ponto de vista", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/pedidos/ped-1", nil)
		req.Header.Set("X-Test-Coop", "coop-sp")
		req.Header.Set("X-Test-Papel", string(models.PapelOperador))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)

		var envelope struct {
			Data struct {
				PontoDeVista  string `json:"ponto_de_vista"`
				DiasRestantes int    `json:"dias_restantes"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
		require.Equal(t, "recebida", envelope.Data.PontoDeVista)
		require.Equal(t, 30, envelope.Data.DiasRestantes)
	})

	t.Run("update invalid transition", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, "/pedidos/ped-1", bytes.NewBufferString(`{"status":"concluido"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Coop", "coop-sp")
		req.Header.Set("X-Test-Papel", string(models.PapelOperador))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("update forbidden for stranger", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, "/pedidos/ped-1", bytes.NewBufferString(`{"status":"em_andamento"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Coop", "coop-zz")
		req.Header.Set("X-Test-Papel", string(models.PapelOperador))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("auditoria", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/pedidos/ped-1/auditoria", nil)
		req.Header.Set("X-Test-Coop", "coop-rj")
		req.Header.Set("X-Test-Papel", string(models.PapelOperador))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), models.AcaoPedidoCriado)
	})

	t.Run("delete then not found", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, "/pedidos/ped-1", nil)
		req.Header.Set("X-Test-Coop", "coop-rj")
		req.Header.Set("X-Test-Papel", string(models.PapelOperador))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNoContent, resp.Code)

		req, _ = http.NewRequest(http.MethodGet, "/pedidos/ped-1", nil)
		req.Header.Set("X-Test-Coop", "coop-rj")
		req.Header.Set("X-Test-Papel", string(models.PapelOperador))
		resp = performRequest(router, req)
		require.Equal(t, http.StatusNotFound, resp.Code)
	})
}
