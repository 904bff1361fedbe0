package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// RegisterRequest creates a new operator account.
type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	Nome          string `json:"nome" validate:"required"`
	DisplayName   string `json:"display_name"`
	Telefone      string `json:"telefone"`
	Cargo         string `json:"cargo"`
	CooperativaID string `json:"cooperativa_id" validate:"required"`
	Papel         Papel  `json:"papel"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID            string `json:"id"`
	Nome          string `json:"nome"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	CooperativaID string `json:"cooperativa_id"`
	Papel         Papel  `json:"papel"`
}

// JWTClaims represents the JWT payload for access tokens. Handlers thread
// these claims explicitly into every service call; nothing in the core reads
// ambient session state.
type JWTClaims struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Nome          string `json:"nome"`
	CooperativaID string `json:"cooperativa_id"`
	Papel         Papel  `json:"papel"`
	jwt.RegisteredClaims
}
