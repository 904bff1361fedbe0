package models

import "time"

// Papel enumerates user roles. The papel drives scope resolution together
// with the tier of the user's cooperative.
type Papel string

const (
	PapelOperador     Papel = "operador"
	PapelAdmin        Papel = "admin"
	PapelFederacao    Papel = "federacao"
	PapelConfederacao Papel = "confederacao"
)

// ValidPapel reports whether the value is a known role.
func ValidPapel(p Papel) bool {
	switch p {
	case PapelOperador, PapelAdmin, PapelFederacao, PapelConfederacao:
		return true
	}
	return false
}

// User is an operator account tied to one cooperative.
type User struct {
	ID            string    `db:"id" json:"id"`
	Nome          string    `db:"nome" json:"nome"`
	DisplayName   string    `db:"display_name" json:"display_name"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	Telefone      string    `db:"telefone" json:"telefone"`
	Cargo         string    `db:"cargo" json:"cargo"`
	CooperativaID string    `db:"cooperativa_id" json:"cooperativa_id"`
	Papel         Papel     `db:"papel" json:"papel"`
	Ativo         bool      `db:"ativo" json:"ativo"`
	DataCadastro  time.Time `db:"data_cadastro" json:"data_cadastro"`
}
