package models

// Default SLA windows in days, applied when the settings table has no row.
const (
	DefaultPrazoSingularFederacaoDias     = 30
	DefaultPrazoFederacaoConfederacaoDias = 30
)

// SystemSettings holds the escalation tuning read by the engine on every run.
type SystemSettings struct {
	PrazoSingularFederacaoDias     int  `json:"prazo_singular_federacao_dias"`
	PrazoFederacaoConfederacaoDias int  `json:"prazo_federacao_confederacao_dias"`
	EscalonamentoAtivo             bool `json:"escalonamento_ativo"`
}

// DefaultSystemSettings returns the fallback configuration.
func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		PrazoSingularFederacaoDias:     DefaultPrazoSingularFederacaoDias,
		PrazoFederacaoConfederacaoDias: DefaultPrazoFederacaoConfederacaoDias,
		EscalonamentoAtivo:             true,
	}
}
