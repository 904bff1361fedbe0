package models

// EscalationSummary reports the outcome of one engine pass. NoTopoIDs lists
// pedidos whose deadline lapsed while already at the Confederação; they need
// operator attention and are never escalated further.
type EscalationSummary struct {
	Scanned      int      `json:"scanned"`
	Escalated    int      `json:"escalated"`
	AlreadyAtTop int      `json:"already_at_top"`
	Conflicts    int      `json:"conflicts"`
	Failed       int      `json:"failed"`
	NoTopoIDs    []string `json:"no_topo_ids,omitempty"`
}
