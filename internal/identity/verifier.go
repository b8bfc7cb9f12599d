package identity

import (
	"context"
	"errors"
)

// LoginProof is what a client presents to prove control of a wallet.
type LoginProof struct {
	Kind      Kind   `json:"kind" validate:"required,oneof=evm svm ic"`
	Address   string `json:"address" validate:"required,max=128"`
	Message   string `json:"message,omitempty" validate:"max=1024"`
	Signature string `json:"signature,omitempty" validate:"max=1024"`
}

// Verifier turns a proof into a verified Authentication. Verification itself
// happens outside this service.
type Verifier interface {
	Verify(ctx context.Context, principal Principal, proof LoginProof) (Authentication, error)
}

var ErrUnverified = errors.New("identity could not be verified")

// Passthrough trusts the proof's address. IC proofs must name the calling
// principal. It is meant for local development and tests.
type Passthrough struct{}

func (Passthrough) Verify(_ context.Context, principal Principal, proof LoginProof) (Authentication, error) {
	if principal.IsAnonymous() {
		return nil, ErrUnverified
	}
	auth, err := New(proof.Kind, proof.Address)
	if err != nil {
		return nil, errors.Join(ErrUnverified, err)
	}
	if ic, ok := auth.(IC); ok && ic.Principal != principal {
		return nil, ErrUnverified
	}
	return auth, nil
}
