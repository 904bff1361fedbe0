package models

// Cidade is a municipality keyed by its 7-digit IBGE code. IDSingular is the
// cooperative currently covering the city; nil means unassigned.
type Cidade struct {
	CdMunicipio7  string  `db:"cd_municipio_7" json:"cd_municipio_7"`
	CdMunicipio   string  `db:"cd_municipio" json:"cd_municipio"`
	NmCidade      string  `db:"nm_cidade" json:"nm_cidade"`
	UfMunicipio   string  `db:"uf_municipio" json:"uf_municipio"`
	NmRegiao      string  `db:"nm_regiao" json:"nm_regiao"`
	RegionalSaude string  `db:"regional_saude" json:"regional_saude"`
	Habitantes    int     `db:"cidades_habitantes" json:"cidades_habitantes"`
	IDSingular    *string `db:"id_singular" json:"id_singular"`
}

// Owner returns the owning cooperative id or "" when unassigned.
func (c Cidade) Owner() string {
	if c.IDSingular == nil {
		return ""
	}
	return *c.IDSingular
}
