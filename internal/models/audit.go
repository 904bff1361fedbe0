package models

import "time"

// Audit actions recorded against pedidos. Escalation actions carry the
// destination tier suffix, e.g. "escalated_to_federacao".
const (
	AcaoPedidoCriado   = "pedido_criado"
	AcaoStatusAlterado = "status_changed"
	AcaoPedidoEditado  = "pedido_editado"
	AcaoPedidoExcluido = "pedido_excluido"
)

// SystemActorID marks audit rows written by the escalation engine rather
// than a user.
const SystemActorID = "system"

// SystemActorNome is the display name the legacy system used for automatic
// escalation entries.
const SystemActorNome = "Sistema Automático"

// EscalationAcao builds the audit action label for an escalation hop.
func EscalationAcao(destino Nivel) string {
	return "escalated_to_" + string(destino)
}

// AuditoriaLog is an append-only history entry for a pedido. Rows are never
// updated or deleted.
type AuditoriaLog struct {
	ID          string    `db:"id" json:"id"`
	PedidoID    string    `db:"pedido_id" json:"pedido_id"`
	UsuarioID   string    `db:"usuario_id" json:"usuario_id"`
	UsuarioNome string    `db:"usuario_nome" json:"usuario_nome"`
	Acao        string    `db:"acao" json:"acao"`
	Detalhes    *string   `db:"detalhes" json:"detalhes,omitempty"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
}

// CoberturaLog records one city ownership change. Origem/Destino are nil for
// assignment from, or release to, the unassigned state.
type CoberturaLog struct {
	ID                 string    `db:"id" json:"id"`
	CidadeID           string    `db:"cidade_id" json:"cidade_id"`
	CooperativaOrigem  *string   `db:"cooperativa_origem" json:"cooperativa_origem"`
	CooperativaDestino *string   `db:"cooperativa_destino" json:"cooperativa_destino"`
	UsuarioEmail       string    `db:"usuario_email" json:"usuario_email"`
	UsuarioNome        string    `db:"usuario_nome" json:"usuario_nome"`
	UsuarioPapel       string    `db:"usuario_papel" json:"usuario_papel"`
	Detalhes           *string   `db:"detalhes" json:"detalhes,omitempty"`
	Timestamp          time.Time `db:"timestamp" json:"timestamp"`
}

// CoberturaLogFilter selects coverage history by city or by cooperative
// (matching either side of the change).
type CoberturaLogFilter struct {
	CidadeID      string
	CooperativaID string
	Limit         int
}
