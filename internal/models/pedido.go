package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// PedidoStatus captures the request workflow states.
type PedidoStatus string

const (
	StatusNovo        PedidoStatus = "novo"
	StatusEmAndamento PedidoStatus = "em_andamento"
	StatusConcluido   PedidoStatus = "concluido"
	StatusCancelado   PedidoStatus = "cancelado"
)

// Nivel is the hierarchy tier currently responsible for a pedido.
type Nivel string

const (
	NivelSingular     Nivel = "singular"
	NivelFederacao    Nivel = "federacao"
	NivelConfederacao Nivel = "confederacao"
)

// Prioridade classifies pedido urgency as reported by the requester.
type Prioridade string

const (
	PrioridadeBaixa   Prioridade = "baixa"
	PrioridadeMedia   Prioridade = "media"
	PrioridadeAlta    Prioridade = "alta"
	PrioridadeUrgente Prioridade = "urgente"
)

// ValidPrioridade reports whether the value is a known priority.
func ValidPrioridade(p Prioridade) bool {
	switch p {
	case PrioridadeBaixa, PrioridadeMedia, PrioridadeAlta, PrioridadeUrgente:
		return true
	}
	return false
}

// CanTransition validates the status state machine:
// novo -> em_andamento -> concluido, with cancelado reachable from
// novo or em_andamento. Terminal states accept nothing.
func CanTransition(from, to PedidoStatus) bool {
	switch from {
	case StatusNovo:
		return to == StatusEmAndamento || to == StatusCancelado
	case StatusEmAndamento:
		return to == StatusConcluido || to == StatusCancelado
	}
	return false
}

// NextNivel returns the tier above the given one and whether a hop exists.
// Confederação is the top; nothing escalates past it.
func NextNivel(n Nivel) (Nivel, bool) {
	switch n {
	case NivelSingular:
		return NivelFederacao, true
	case NivelFederacao:
		return NivelConfederacao, true
	}
	return n, false
}

// StringList stores a slice of strings as a JSON document, matching the
// legacy especialidades column format.
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (s *StringList) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported string list source %T", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(s))
}

// Pedido is an accreditation request raised against a city. Responsibility
// starts at the city's covering cooperative and climbs the hierarchy as
// deadlines lapse. Excluido soft-deletes the row; the audit trail survives.
type Pedido struct {
	ID                       string       `db:"id" json:"id"`
	Titulo                   string       `db:"titulo" json:"titulo"`
	CriadoPor                *string      `db:"criado_por" json:"criado_por,omitempty"`
	CriadoPorUser            *string      `db:"criado_por_user" json:"criado_por_user,omitempty"`
	CooperativaSolicitanteID string       `db:"cooperativa_solicitante_id" json:"cooperativa_solicitante_id"`
	CooperativaResponsavelID string       `db:"cooperativa_responsavel_id" json:"cooperativa_responsavel_id"`
	CidadeID                 string       `db:"cidade_id" json:"cidade_id"`
	Especialidades           StringList   `db:"especialidades" json:"especialidades"`
	Quantidade               int          `db:"quantidade" json:"quantidade"`
	Observacoes              *string      `db:"observacoes" json:"observacoes,omitempty"`
	Prioridade               Prioridade   `db:"prioridade" json:"prioridade"`
	NivelAtual               Nivel        `db:"nivel_atual" json:"nivel_atual"`
	Status                   PedidoStatus `db:"status" json:"status"`
	DataCriacao              time.Time    `db:"data_criacao" json:"data_criacao"`
	DataUltimaAlteracao      time.Time    `db:"data_ultima_alteracao" json:"data_ultima_alteracao"`
	PrazoAtual               time.Time    `db:"prazo_atual" json:"prazo_atual"`
	DataConclusao            *time.Time   `db:"data_conclusao" json:"data_conclusao,omitempty"`
	Excluido                 bool         `db:"excluido" json:"excluido"`
}

// Aberto reports whether the pedido still participates in escalation.
func (p Pedido) Aberto() bool {
	return !p.Excluido && (p.Status == StatusNovo || p.Status == StatusEmAndamento)
}

// DiasRestantes returns the whole days until the deadline, rounded up.
// Negative values mean the deadline already lapsed.
func (p Pedido) DiasRestantes(now time.Time) int {
	return int(math.Ceil(p.PrazoAtual.Sub(now).Hours() / 24))
}

// Urgencia bands for display purposes.
const (
	UrgenciaCritica = "critica"
	UrgenciaAlerta  = "alerta"
	UrgenciaNormal  = "normal"
)

// Urgencia classifies the remaining window: <=3 days critical, <=7 warning.
func (p Pedido) Urgencia(now time.Time) string {
	dias := p.DiasRestantes(now)
	switch {
	case dias <= 3:
		return UrgenciaCritica
	case dias <= 7:
		return UrgenciaAlerta
	default:
		return UrgenciaNormal
	}
}

// PontoDeVista classifies how a pedido relates to the viewer's cooperative.
const (
	PontoFeita          = "feita"
	PontoRecebida       = "recebida"
	PontoInterna        = "interna"
	PontoAcompanhamento = "acompanhamento"
)

// PontoDeVista returns the viewpoint of the given cooperative over the pedido.
func (p Pedido) PontoDeVista(cooperativaID string) string {
	solicitante := p.CooperativaSolicitanteID == cooperativaID
	responsavel := p.CooperativaResponsavelID == cooperativaID
	switch {
	case solicitante && responsavel:
		return PontoInterna
	case solicitante:
		return PontoFeita
	case responsavel:
		return PontoRecebida
	default:
		return PontoAcompanhamento
	}
}

// CreatorKnown reports whether the creating user was recorded. Legacy rows
// predate the criado_por_user column and fall back to cooperative-level
// authorization on deletion.
func (p Pedido) CreatorKnown() bool {
	return p.CriadoPorUser != nil && *p.CriadoPorUser != ""
}

// PedidoFilter constrains listing queries.
type PedidoFilter struct {
	Status         []PedidoStatus
	CidadeID       string
	SolicitanteID  string
	ResponsavelID  string
	IncluirExcludo bool
	Limit          int
	Offset         int
}
