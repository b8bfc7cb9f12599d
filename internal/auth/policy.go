package auth

import (
	"fmt"

	"communities.ooo/internal/apperr"
	"communities.ooo/internal/identity"
	"communities.ooo/internal/store"
)

// ErrForbidden is returned when a caller lacks the role an action needs.
var ErrForbidden = fmt.Errorf("%w: missing role", apperr.ErrUnauthorized)

// Policy answers role questions from the store. It only reads.
type Policy struct {
	st *store.Store
}

func NewPolicy(st *store.Store) *Policy { return &Policy{st: st} }

// HasRole reports whether profileID is linked to a role of kind.
func (p *Policy) HasRole(profileID uint64, kind store.RoleKind) bool {
	for _, r := range p.st.RolesOf(profileID) {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// PrincipalHasRole resolves principal to its profile first.
func (p *Policy) PrincipalHasRole(principal identity.Principal, kind store.RoleKind) bool {
	if principal.IsAnonymous() {
		return false
	}
	prof, err := p.st.ProfileByPrincipal(principal)
	if err != nil {
		return false
	}
	return p.HasRole(prof.ID, kind)
}

// Require returns ErrForbidden unless principal holds kind.
func (p *Policy) Require(principal identity.Principal, kind store.RoleKind) error {
	if !p.PrincipalHasRole(principal, kind) {
		return ErrForbidden
	}
	return nil
}
