package store

import (
	"strings"
	"time"
	"unicode/utf8"

	"communities.ooo/internal/identity"
)

// Login returns the profile bound to auth, creating it on first sight, and
// makes principal its active principal. A principal maps to at most one
// profile: if it was active on another profile, that binding is dropped.
func (s *Store) Login(auth identity.Authentication, principal identity.Principal, now time.Time) (Profile, bool) {
	id, ok := s.byAuth[auth]
	created := false
	if !ok {
		id = s.NextID()
		s.profiles[id] = &Profile{
			ID:             id,
			Authentication: auth,
			CreatedAt:      now,
		}
		s.byAuth[auth] = id
		created = true
	}
	p := s.profiles[id]
	s.bindPrincipal(p, principal)
	p.LastSeenAt = now
	return *p, created
}

// EnsureProfile returns the profile whose active principal is principal,
// creating an IC-bound profile when there is none. Ledger recipients are
// resolved this way.
func (s *Store) EnsureProfile(principal identity.Principal, now time.Time) Profile {
	if id, ok := s.byPrincipal[principal]; ok {
		return *s.profiles[id]
	}
	p, _ := s.Login(identity.IC{Principal: principal}, principal, now)
	return p
}

func (s *Store) bindPrincipal(p *Profile, principal identity.Principal) {
	if p.ActivePrincipal == principal {
		s.byPrincipal[principal] = p.ID
		return
	}
	if prev, ok := s.byPrincipal[principal]; ok && prev != p.ID {
		s.profiles[prev].ActivePrincipal = ""
	}
	if p.ActivePrincipal != "" {
		delete(s.byPrincipal, p.ActivePrincipal)
	}
	p.ActivePrincipal = principal
	s.byPrincipal[principal] = p.ID
}

func (s *Store) Profile(id uint64) (Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return *p, nil
}

func (s *Store) ProfileByPrincipal(principal identity.Principal) (Profile, error) {
	id, ok := s.byPrincipal[principal]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return *s.profiles[id], nil
}

func (s *Store) ProfileByAuthentication(auth identity.Authentication) (Profile, error) {
	id, ok := s.byAuth[auth]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return *s.profiles[id], nil
}

// UpdateProfile replaces name and description. Surrounding whitespace is
// trimmed; over-long values are rejected.
func (s *Store) UpdateProfile(id uint64, name, description string) (Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(name) > MaxNameRunes || utf8.RuneCountInString(description) > MaxDescriptionRunes {
		return Profile{}, ErrInvalidText
	}
	p.Name = name
	p.Description = description
	return *p, nil
}

// ProfileIDs lists every profile id in ascending order.
func (s *Store) ProfileIDs() []uint64 {
	return sortedKeys(s.profiles)
}
