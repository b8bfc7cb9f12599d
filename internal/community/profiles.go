package community

import (
	"context"

	"github.com/sirupsen/logrus"

	"communities.ooo/internal/identity"
	"communities.ooo/internal/store"
	"communities.ooo/internal/stream"
)

// Login records a verified sign-in: the profile for auth is created on first
// use and principal becomes its active principal.
func (s *Service) Login(ctx context.Context, auth identity.Authentication, principal identity.Principal) (ProfileView, bool, error) {
	if auth == nil {
		return ProfileView{}, false, ErrAnonymous
	}
	if principal.IsAnonymous() {
		return ProfileView{}, false, ErrAnonymous
	}
	var (
		p       store.Profile
		created bool
		view    ProfileView
	)
	counts, _ := s.write(func() error {
		p, created = s.st.Login(auth, principal, s.clock())
		view = s.profileView(p)
		return nil
	})

	if created {
		s.publishCounts(counts)
		s.log.WithFields(logrus.Fields{
			"profile_id": p.ID,
			"kind":       string(auth.Kind()),
		}).Info("profile created")
	}
	s.record(ctx, "auth.login", map[string]any{
		"profile_id": p.ID,
		"principal":  principal.String(),
		"created":    created,
	})
	return view, created, nil
}

// Me returns the caller's profile.
func (s *Service) Me(principal identity.Principal) (ProfileView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.caller(principal)
	if err != nil {
		return ProfileView{}, err
	}
	return s.profileView(p), nil
}

func (s *Service) Profile(id uint64) (ProfileView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.st.Profile(id)
	if err != nil {
		return ProfileView{}, err
	}
	return s.profileView(p), nil
}

// ProfileByAuthentication looks a profile up by verified identity.
func (s *Service) ProfileByAuthentication(auth identity.Authentication) (ProfileView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.st.ProfileByAuthentication(auth)
	if err != nil {
		return ProfileView{}, err
	}
	return s.profileView(p), nil
}

// UpdateProfile changes the caller's name and description.
func (s *Service) UpdateProfile(ctx context.Context, principal identity.Principal, name, description string) (ProfileView, error) {
	var view ProfileView
	_, err := s.write(func() error {
		p, err := s.caller(principal)
		if err == nil {
			p, err = s.st.UpdateProfile(p.ID, name, description)
		}
		if err != nil {
			return err
		}
		view = s.profileView(p)
		return nil
	})
	if err != nil {
		return ProfileView{}, err
	}

	s.publish(stream.ProfileUpdated, view)
	s.record(ctx, "profile.update", map[string]any{"profile_id": view.ID})
	return view, nil
}

// viewer is the profile id of principal, or 0.
func (s *Service) viewer(principal identity.Principal) uint64 {
	if principal.IsAnonymous() {
		return 0
	}
	p, err := s.st.ProfileByPrincipal(principal)
	if err != nil {
		return 0
	}
	return p.ID
}
