package models

import "strings"

// CooperativaTipo enumerates the three hierarchy tiers of the network.
type CooperativaTipo string

const (
	TipoSingular     CooperativaTipo = "SINGULAR"
	TipoFederacao    CooperativaTipo = "FEDERACAO"
	TipoConfederacao CooperativaTipo = "CONFEDERACAO"
)

// Cooperativa is a network member. IDSingular is the stable short code used
// across every table (e.g. "020") regardless of tier. Federacao carries the
// uniodonto name of the parent: for a Singular that is its Federação, for a
// Federação the Confederação (e.g. "BRASIL").
type Cooperativa struct {
	IDSingular string          `db:"id_singular" json:"id_singular"`
	Uniodonto  string          `db:"uniodonto" json:"uniodonto"`
	RazSocial  string          `db:"raz_social" json:"raz_social"`
	CNPJ       string          `db:"cnpj" json:"cnpj"`
	CodigoANS  string          `db:"codigo_ans" json:"codigo_ans"`
	Federacao  string          `db:"federacao" json:"federacao"`
	Tipo       CooperativaTipo `db:"tipo" json:"tipo"`
}

// NormalizeTipo maps raw tier labels onto the canonical constants. Legacy
// rows carry the accented spelling "FEDERAÇÃO".
func NormalizeTipo(raw string) CooperativaTipo {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FEDERACAO", "FEDERAÇÃO":
		return TipoFederacao
	case "CONFEDERACAO", "CONFEDERAÇÃO":
		return TipoConfederacao
	default:
		return TipoSingular
	}
}

// IsFederacao reports whether the cooperative is a Federação, accepting the
// accented legacy label.
func (c Cooperativa) IsFederacao() bool {
	return NormalizeTipo(string(c.Tipo)) == TipoFederacao
}

// IsConfederacao reports whether the cooperative is the Confederação.
func (c Cooperativa) IsConfederacao() bool {
	return NormalizeTipo(string(c.Tipo)) == TipoConfederacao
}
