package store

import (
	"time"

	"communities.ooo/internal/ids"
)

// GrantRole creates a role of kind bound to tokenID and links it to profileID.
func (s *Store) GrantRole(profileID uint64, kind RoleKind, tokenID ids.TokenID, now time.Time) (Role, error) {
	if _, ok := s.profiles[profileID]; !ok {
		return Role{}, ErrProfileNotFound
	}
	r := &Role{ID: s.NextID(), Kind: kind, TokenID: tokenID, GrantedAt: now}
	s.roles[r.ID] = r
	s.profileRoles.Insert(profileID, r.ID)
	return *r, nil
}

// MoveRole relinks roleID to profileID.
func (s *Store) MoveRole(roleID, profileID uint64) error {
	if _, ok := s.roles[roleID]; !ok {
		return ErrRoleNotFound
	}
	if _, ok := s.profiles[profileID]; !ok {
		return ErrProfileNotFound
	}
	for _, prev := range s.profileRoles.Backward(roleID) {
		s.profileRoles.Remove(prev, roleID)
	}
	s.profileRoles.Insert(profileID, roleID)
	return nil
}

// RevokeRole unlinks roleID from its profile. The role record is kept.
func (s *Store) RevokeRole(roleID uint64) error {
	if _, ok := s.roles[roleID]; !ok {
		return ErrRoleNotFound
	}
	for _, prev := range s.profileRoles.Backward(roleID) {
		s.profileRoles.Remove(prev, roleID)
	}
	return nil
}

func (s *Store) Role(id uint64) (Role, error) {
	r, ok := s.roles[id]
	if !ok {
		return Role{}, ErrRoleNotFound
	}
	return *r, nil
}

// RolesOf lists the roles currently linked to profileID.
func (s *Store) RolesOf(profileID uint64) []Role {
	roleIDs := s.profileRoles.Forward(profileID)
	out := make([]Role, 0, len(roleIDs))
	for _, id := range roleIDs {
		r, ok := s.roles[id]
		if !ok {
			panic("store: profile linked to unknown role")
		}
		out = append(out, *r)
	}
	return out
}

// RoleHolder returns the profile a role is linked to.
func (s *Store) RoleHolder(roleID uint64) (uint64, error) {
	return single(s.profileRoles.Backward(roleID), ErrRoleNotFound)
}
