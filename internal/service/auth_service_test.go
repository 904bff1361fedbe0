package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/pkg/config"
	appErrors "github.com/uniodonto/urede-api/pkg/errors"
)

type userStoreStub struct {
	byEmail map[string]*models.User
	created *models.User
}

func (s *userStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) Create(ctx context.Context, user *models.User) error {
	s.created = user
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "urede-api"}
}

func newAuthFixture(t *testing.T) (*AuthService, *userStoreStub) {
	hash, err := bcrypt.GenerateFromPassword([]byte("segredo123"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &userStoreStub{byEmail: map[string]*models.User{
		"ana@uniodonto.coop.br": {
			ID:            "user-1",
			Nome:          "Ana",
			Email:         "ana@uniodonto.coop.br",
			PasswordHash:  string(hash),
			CooperativaID: "coop-1",
			Papel:         models.PapelAdmin,
			Ativo:         true,
		},
	}}
	return NewAuthService(store, testJWTConfig(), nil, zap.NewNop()), store
}

func TestAuthLoginAndValidateToken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@uniodonto.coop.br",
		Password: "segredo123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.Equal(t, "user-1", res.User.ID)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "coop-1", claims.CooperativaID)
	require.Equal(t, models.PapelAdmin, claims.Papel)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@uniodonto.coop.br",
		Password: "errada",
	})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ninguem@uniodonto.coop.br",
		Password: "segredo123",
	})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	svc, store := newAuthFixture(t)
	store.byEmail["ana@uniodonto.coop.br"].Ativo = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@uniodonto.coop.br",
		Password: "segredo123",
	})
	require.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestAuthRegisterDefaultsPapel(t *testing.T) {
	svc, store := newAuthFixture(t)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:         "novo@uniodonto.coop.br",
		Password:      "segredo123",
		Nome:          "Novo Operador",
		CooperativaID: "coop-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.PapelOperador, info.Papel)
	require.NotNil(t, store.created)
	require.True(t, store.created.Ativo)
	require.NotEqual(t, "segredo123", store.created.PasswordHash)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:         "ana@uniodonto.coop.br",
		Password:      "segredo123",
		Nome:          "Ana de novo",
		CooperativaID: "coop-1",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.ValidateToken("not-a-token")
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
