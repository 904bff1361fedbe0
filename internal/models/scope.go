package models

// ScopeLevel ranks how much of the network an actor may administer.
type ScopeLevel string

const (
	ScopeNone         ScopeLevel = "none"
	ScopeSingular     ScopeLevel = "singular"
	ScopeFederacao    ScopeLevel = "federacao"
	ScopeConfederacao ScopeLevel = "confederacao"
)

// Scope is the set of cooperatives an actor may manage. Manageable is nil
// for the unrestricted Confederação scope.
type Scope struct {
	Level      ScopeLevel
	Manageable map[string]struct{}
}

// NoneScope denies everything.
func NoneScope() Scope {
	return Scope{Level: ScopeNone, Manageable: map[string]struct{}{}}
}

// CanManage reports whether the scope covers the given cooperative.
func (s Scope) CanManage(cooperativaID string) bool {
	if s.Level == ScopeConfederacao {
		return true
	}
	if s.Level == ScopeNone {
		return false
	}
	_, ok := s.Manageable[cooperativaID]
	return ok
}

// Unrestricted reports whether the scope covers the whole network.
func (s Scope) Unrestricted() bool {
	return s.Level == ScopeConfederacao
}
