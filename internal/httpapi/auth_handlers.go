package httpapi

import (
	"errors"
	"net/http"
	"time"

	"communities.ooo/internal/community"
	"communities.ooo/internal/identity"
)

type loginRequest struct {
	Principal identity.Principal  `json:"principal" validate:"required,max=128"`
	Proof     identity.LoginProof `json:"proof"`
}

type loginResponse struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	Created   bool                  `json:"created"`
	Profile   community.ProfileView `json:"profile"`
}

// login verifies a wallet proof, records the sign-in and issues a session
// bound to the presented principal.
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	if a.issuer == nil {
		writeError(w, r, http.StatusServiceUnavailable, "sessions disabled")
		return
	}
	var req loginRequest
	if err := a.decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	verified, err := a.verifier.Verify(r.Context(), req.Principal, req.Proof)
	if err != nil {
		if errors.Is(err, identity.ErrUnverified) {
			writeError(w, r, http.StatusUnauthorized, "identity could not be verified")
			return
		}
		handleError(w, r, err)
		return
	}
	profile, created, err := a.svc.Login(r.Context(), verified, req.Principal)
	if err != nil {
		handleError(w, r, err)
		return
	}
	token, exp, err := a.issuer.Issue(req.Principal, verified)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, loginResponse{Token: token, ExpiresAt: exp, Created: created, Profile: profile})
}
