package service

import (
	"context"

	"github.com/uniodonto/urede-api/internal/models"
)

// BuildScope computes the administrative scope of an actor from its role,
// its cooperative and the full roster. It is a pure function of its inputs
// and never fails: unknown or missing data resolves to the none scope.
//
// Determination order, first match wins:
//  1. confederação papel or cooperative tier -> unrestricted
//  2. federação papel or tier -> the federation's own id plus every
//     cooperative whose federacao column names this federation's uniodonto
//  3. admin papel at a Singular -> that Singular only
//  4. anything else -> none
//
// Federation membership is keyed by display name because the legacy schema
// has no federation foreign key: a Singular's federacao column carries the
// uniodonto name of its parent Federação (and a Federação's carries the
// confederação's). Colliding names would merge scopes.
func BuildScope(papel models.Papel, cooperativaID string, roster []models.Cooperativa) models.Scope {
	var own *models.Cooperativa
	for i := range roster {
		if roster[i].IDSingular == cooperativaID {
			own = &roster[i]
			break
		}
	}

	if papel == models.PapelConfederacao || (own != nil && own.IsConfederacao()) {
		return models.Scope{Level: models.ScopeConfederacao, Manageable: nil}
	}

	if papel == models.PapelFederacao || (own != nil && own.IsFederacao()) {
		manageable := map[string]struct{}{}
		if own != nil {
			manageable[own.IDSingular] = struct{}{}
			if own.Uniodonto != "" {
				for _, coop := range roster {
					if coop.Federacao == own.Uniodonto {
						manageable[coop.IDSingular] = struct{}{}
					}
				}
			}
		}
		return models.Scope{Level: models.ScopeFederacao, Manageable: manageable}
	}

	if papel == models.PapelAdmin && own != nil && models.NormalizeTipo(string(own.Tipo)) == models.TipoSingular {
		return models.Scope{Level: models.ScopeSingular, Manageable: map[string]struct{}{own.IDSingular: {}}}
	}

	return models.NoneScope()
}

type cooperativaLister interface {
	List(ctx context.Context) ([]models.Cooperativa, error)
}

// ScopeService resolves actor scopes against the stored roster.
type ScopeService struct {
	coops cooperativaLister
}

// NewScopeService constructs the service.
func NewScopeService(coops cooperativaLister) *ScopeService {
	return &ScopeService{coops: coops}
}

// Resolve loads the roster and computes the actor's scope.
func (s *ScopeService) Resolve(ctx context.Context, claims *models.JWTClaims) (models.Scope, error) {
	if claims == nil {
		return models.NoneScope(), nil
	}
	roster, err := s.coops.List(ctx)
	if err != nil {
		return models.NoneScope(), err
	}
	return BuildScope(claims.Papel, claims.CooperativaID, roster), nil
}
