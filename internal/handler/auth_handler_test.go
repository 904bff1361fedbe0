package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	internalmiddleware "github.com/uniodonto/urede-api/internal/middleware"
	"github.com/uniodonto/urede-api/internal/models"
	"github.com/uniodonto/urede-api/internal/service"
	"github.com/uniodonto/urede-api/pkg/config"
)

type userStoreFake struct {
	users map[string]*models.User
}

func (s *userStoreFake) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *userStoreFake) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreFake) Create(ctx context.Context, user *models.User) error {
	s.users[user.Email] = user
	return nil
}

func buildAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("segredo123"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &userStoreFake{users: map[string]*models.User{
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
	authSvc := service.NewAuthService(store, config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "urede-api",
	}, nil, zap.NewNop())
	h := NewAuthHandler(authSvc)

	router := gin.New()
	router.POST("/auth/login", h.Login)
	router.POST("/auth/register", h.Register)
	router.GET("/auth/me", internalmiddleware.JWT(authSvc), h.Me)
	return router
}

func TestAuthRoutes(t *testing.T) {
	router := buildAuthRouter(t)

	var token string
	t.Run("login success", func(t *testing.T) {
		payload := `{"email":"ana@uniodonto.coop.br","password":"segredo123"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)

		var envelope struct {
			Data models.LoginResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
		require.NotEmpty(t, envelope.Data.AccessToken)
		token = envelope.Data.AccessToken
	})

	t.Run("login bad password", func(t *testing.T) {
		payload := `{"email":"ana@uniodonto.coop.br","password":"errada"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("me with bearer token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"ana@uniodonto.coop.br"`)
	})

	t.Run("me without token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("register then login", func(t *testing.T) {
		payload := `{"email":"novo@uniodonto.coop.br","password":"segredo123","nome":"Novo","cooperativa_id":"coop-2"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)

		login := `{"email":"novo@uniodonto.coop.br","password":"segredo123"}`
		req, _ = http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(login))
		req.Header.Set("Content-Type", "application/json")
		resp = performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
	})
}
