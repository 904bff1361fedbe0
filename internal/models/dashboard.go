package models

// DashboardStats aggregates pedido counters for the authenticated actor's
// visible slice of the network. SLACumprido is the percentage of completed
// pedidos closed before their deadline.
type DashboardStats struct {
	TotalPedidos       int     `json:"total_pedidos"`
	PedidosVencendo    int     `json:"pedidos_vencendo"`
	PedidosEmAndamento int     `json:"pedidos_em_andamento"`
	PedidosConcluidos  int     `json:"pedidos_concluidos"`
	SLACumprido        float64 `json:"sla_cumprido"`
}
