package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/repository"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
)

type cidadeStoreStub struct {
	cidades map[string]models.Cidade
	owned   map[string][]models.Cidade

	applied        bool
	appliedDestino string
	appliedAssigns []repository.CoberturaAssign
	appliedRemoves []string
	appliedLogs    []models.CoberturaLog
	applyErr       error
}

func (s *cidadeStoreStub) List(ctx context.Context) ([]models.Cidade, error) {
	out := make([]models.Cidade, 0, len(s.cidades))
	for _, c := range s.cidades {
		out = append(out, c)
	}
	return out, nil
}

func (s *cidadeStoreStub) GetByID(ctx context.Context, id string) (*models.Cidade, error) {
	c, ok := s.cidades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (s *cidadeStoreStub) GetByIDs(ctx context.Context, ids []string) ([]models.Cidade, error) {
	out := make([]models.Cidade, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.cidades[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *cidadeStoreStub) ListByOwner(ctx context.Context, cooperativaID string) ([]models.Cidade, error) {
	return s.owned[cooperativaID], nil
}

func (s *cidadeStoreStub) ApplyCobertura(ctx context.Context, destino string, assigns []repository.CoberturaAssign, removes []string, logs []models.CoberturaLog) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.applied = true
	s.appliedDestino = destino
	s.appliedAssigns = assigns
	s.appliedRemoves = removes
	s.appliedLogs = logs
	return nil
}

type coopGetterStub struct {
	ids map[string]struct{}
}

func knownCoops(ids ...string) *coopGetterStub {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &coopGetterStub{ids: set}
}

func (s *coopGetterStub) GetByID(ctx context.Context, id string) (*models.Cooperativa, error) {
	if _, ok := s.ids[id]; !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Cooperativa{IDSingular: id, Uniodonto: "Uniodonto " + id, Tipo: models.TipoSingular}, nil
}

type coberturaAuditStub struct {
	logs []models.CoberturaLog
}

func (s *coberturaAuditStub) ListCoberturaLogs(ctx context.Context, filter models.CoberturaLogFilter) ([]models.CoberturaLog, error) {
	return s.logs, nil
}

type scopeStub struct {
	scope models.Scope
}

func (s *scopeStub) Resolve(ctx context.Context, claims *models.JWTClaims) (models.Scope, error) {
	return s.scope, nil
}

type cacheStub struct {
	deleted  []string
	patterns []string
}

func (s *cacheStub) Delete(ctx context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	return nil
}

func (s *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func cidadeOwnedBy(id, nome string, owner string) models.Cidade {
	c := models.Cidade{CdMunicipio7: id, NmCidade: nome}
	if owner != "" {
		c.IDSingular = &owner
	}
	return c
}

func confederacaoClaims() *models.JWTClaims {
	return &models.JWTClaims{
		UserID:        "user-1",
		Email:         "gestora@uniodonto.coop.br",
		Nome:          "Gestora",
		CooperativaID: "conf-1",
		Papel:         models.PapelConfederacao,
	}
}

func TestCoberturaReassignReconcilesSet(t *testing.T) {
	store := &cidadeStoreStub{
		cidades: map[string]models.Cidade{
			"3550308": cidadeOwnedBy("3550308", "São Paulo", ""),
			"3304557": cidadeOwnedBy("3304557", "Rio de Janeiro", "coop-1"),
			"3106200": cidadeOwnedBy("3106200", "Belo Horizonte", "coop-2"),
		},
		owned: map[string][]models.Cidade{
			"coop-1": {cidadeOwnedBy("3304557", "Rio de Janeiro", "coop-1")},
		},
	}
	cache := &cacheStub{}
	svc := NewCoberturaService(store, knownCoops("coop-1"), &coberturaAuditStub{}, &scopeStub{scope: models.Scope{Level: models.ScopeConfederacao}}, cache, zap.NewNop())

	// declared set adds two cities and drops the currently owned one
	res, err := svc.Reassign(context.Background(), confederacaoClaims(), "coop-1", []string{"3550308", "3106200"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Assigned)
	require.Equal(t, 1, res.Released)

	require.True(t, store.applied)
	require.Equal(t, "coop-1", store.appliedDestino)
	require.Len(t, store.appliedAssigns, 2)
	require.Equal(t, []string{"3304557"}, store.appliedRemoves)

	// one audit row per changed city, no more
	require.Len(t, store.appliedLogs, 3)
	require.Contains(t, cache.deleted, repository.CacheKeyCidades)
	require.NotEmpty(t, cache.patterns)
}

func TestCoberturaReassignIdempotentNoOp(t *testing.T) {
	store := &cidadeStoreStub{
		cidades: map[string]models.Cidade{
			"3304557": cidadeOwnedBy("3304557", "Rio de Janeiro", "coop-1"),
		},
		owned: map[string][]models.Cidade{
			"coop-1": {cidadeOwnedBy("3304557", "Rio de Janeiro", "coop-1")},
		},
	}
	svc := NewCoberturaService(store, knownCoops("coop-1"), &coberturaAuditStub{}, &scopeStub{scope: models.Scope{Level: models.ScopeConfederacao}}, nil, zap.NewNop())

	res, err := svc.Reassign(context.Background(), confederacaoClaims(), "coop-1", []string{"3304557", "3304557"})
	require.NoError(t, err)
	require.Equal(t, 0, res.Assigned)
	require.Equal(t, 0, res.Released)
	require.False(t, store.applied, "no-op reassign must not touch storage")
}

func TestCoberturaReassignForbiddenOutsideScope(t *testing.T) {
	svc := NewCoberturaService(&cidadeStoreStub{}, knownCoops("coop-1", "coop-9"), &coberturaAuditStub{},
		&scopeStub{scope: models.Scope{Level: models.ScopeSingular, Manageable: map[string]struct{}{"coop-9": {}}}},
		nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "u", CooperativaID: "coop-9", Papel: models.PapelAdmin}
	_, err := svc.Reassign(context.Background(), claims, "coop-1", []string{"3550308"})
	appErr := appErrors.FromError(err)
	require.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestCoberturaReassignSingularCannotStealOwnedCity(t *testing.T) {
	store := &cidadeStoreStub{
		cidades: map[string]models.Cidade{
			"3106200": cidadeOwnedBy("3106200", "Belo Horizonte", "coop-2"),
		},
		owned: map[string][]models.Cidade{"coop-1": nil},
	}
	scope := models.Scope{Level: models.ScopeSingular, Manageable: map[string]struct{}{"coop-1": {}}}
	svc := NewCoberturaService(store, knownCoops("coop-1", "sing-campinas"), &coberturaAuditStub{}, &scopeStub{scope: scope}, nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "u", CooperativaID: "coop-1", Papel: models.PapelAdmin}
	_, err := svc.Reassign(context.Background(), claims, "coop-1", []string{"3106200"})
	appErr := appErrors.FromError(err)
	require.Equal(t, http.StatusForbidden, appErr.Status)
	require.Contains(t, appErr.Message, "3106200")
	require.False(t, store.applied, "batch must fail atomically")
}

func TestCoberturaReassignFederacaoMovesWithinFederation(t *testing.T) {
	store := &cidadeStoreStub{
		cidades: map[string]models.Cidade{
			"3509502": cidadeOwnedBy("3509502", "Campinas", "sing-santos"),
		},
		owned: map[string][]models.Cidade{"sing-campinas": nil},
	}
	scope := models.Scope{Level: models.ScopeFederacao, Manageable: map[string]struct{}{
		"fed-sp": {}, "sing-campinas": {}, "sing-santos": {},
	}}
	svc := NewCoberturaService(store, knownCoops("coop-1", "sing-campinas"), &coberturaAuditStub{}, &scopeStub{scope: scope}, nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "u", CooperativaID: "fed-sp", Papel: models.PapelFederacao}
	res, err := svc.Reassign(context.Background(), claims, "sing-campinas", []string{"3509502"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Assigned)
	require.Equal(t, "sing-santos", *store.appliedAssigns[0].Origem)
}

func TestCoberturaReassignFederacaoRejectedAcrossFederations(t *testing.T) {
	store := &cidadeStoreStub{
		cidades: map[string]models.Cidade{
			"3106200": cidadeOwnedBy("3106200", "Belo Horizonte", "sing-bh"),
		},
		owned: map[string][]models.Cidade{"sing-campinas": nil},
	}
	scope := models.Scope{Level: models.ScopeFederacao, Manageable: map[string]struct{}{
		"fed-sp": {}, "sing-campinas": {},
	}}
	svc := NewCoberturaService(store, knownCoops("coop-1", "sing-campinas"), &coberturaAuditStub{}, &scopeStub{scope: scope}, nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "u", CooperativaID: "fed-sp", Papel: models.PapelFederacao}
	_, err := svc.Reassign(context.Background(), claims, "sing-campinas", []string{"3106200"})
	appErr := appErrors.FromError(err)
	require.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestCoberturaReassignUnknownCity(t *testing.T) {
	store := &cidadeStoreStub{
		cidades: map[string]models.Cidade{},
		owned:   map[string][]models.Cidade{"coop-1": nil},
	}
	svc := NewCoberturaService(store, knownCoops("coop-1"), &coberturaAuditStub{}, &scopeStub{scope: models.Scope{Level: models.ScopeConfederacao}}, nil, zap.NewNop())

	_, err := svc.Reassign(context.Background(), confederacaoClaims(), "coop-1", []string{"0000000"})
	appErr := appErrors.FromError(err)
	require.Equal(t, http.StatusNotFound, appErr.Status)
	require.Contains(t, appErr.Message, "0000000")
}

func TestCoberturaReassignUnknownCooperativa(t *testing.T) {
	store := &cidadeStoreStub{
		cidades: map[string]models.Cidade{
			"3550308": cidadeOwnedBy("3550308", "São Paulo", ""),
		},
		owned: map[string][]models.Cidade{},
	}
	// an unrestricted scope passes the management check, so the target
	// must still be verified against the roster
	svc := NewCoberturaService(store, knownCoops(), &coberturaAuditStub{}, &scopeStub{scope: models.Scope{Level: models.ScopeConfederacao}}, nil, zap.NewNop())

	_, err := svc.Reassign(context.Background(), confederacaoClaims(), "coop-ghost", []string{"3550308"})
	appErr := appErrors.FromError(err)
	require.Equal(t, http.StatusNotFound, appErr.Status)
	require.False(t, store.applied)
}

func TestCoberturaHistoryRequiresAuth(t *testing.T) {
	svc := NewCoberturaService(&cidadeStoreStub{}, knownCoops(), &coberturaAuditStub{}, &scopeStub{}, nil, zap.NewNop())
	_, err := svc.History(context.Background(), nil, models.CoberturaLogFilter{})
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
