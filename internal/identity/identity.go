// Package identity holds caller identities and ledger accounts.
package identity

import (
	"fmt"
	"strings"
)

// Principal is the textual id of a request's caller.
type Principal string

// Anonymous is the principal of unauthenticated callers.
const Anonymous Principal = "2vxsx-fae"

func (p Principal) IsAnonymous() bool { return p == "" || p == Anonymous }

func (p Principal) String() string { return string(p) }

// Kind names an Authentication variant.
type Kind string

const (
	KindEvm Kind = "evm"
	KindSvm Kind = "svm"
	KindIC  Kind = "ic"
)

// Authentication is an already-verified identity. The set of variants is
// closed: Evm, Svm and IC. Values are comparable and can be used as map keys.
type Authentication interface {
	Kind() Kind
	// Address is the wallet address or principal text shown to other users.
	Address() string
	sealed()
}

// Evm is an Ethereum style account address.
type Evm struct{ Addr string }

// Svm is a Solana style account address.
type Svm struct{ Addr string }

// IC is an Internet Computer principal.
type IC struct{ Principal Principal }

func (Evm) Kind() Kind { return KindEvm }
func (Svm) Kind() Kind { return KindSvm }
func (IC) Kind() Kind  { return KindIC }

func (a Evm) Address() string { return a.Addr }
func (a Svm) Address() string { return a.Addr }
func (a IC) Address() string  { return string(a.Principal) }

func (Evm) sealed() {}
func (Svm) sealed() {}
func (IC) sealed()  {}

// New builds the variant for kind. EVM addresses are case-insensitive and are
// stored lower-cased.
func New(kind Kind, address string) (Authentication, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("empty %s address", kind)
	}
	switch kind {
	case KindEvm:
		return Evm{Addr: strings.ToLower(address)}, nil
	case KindSvm:
		return Svm{Addr: address}, nil
	case KindIC:
		return IC{Principal: Principal(address)}, nil
	}
	return nil, fmt.Errorf("unknown authentication kind %q", kind)
}

// Wire is the serialized form of an Authentication.
type Wire struct {
	Kind    Kind   `json:"kind"`
	Address string `json:"address"`
}

func Encode(a Authentication) Wire {
	return Wire{Kind: a.Kind(), Address: a.Address()}
}

func (w Wire) Decode() (Authentication, error) {
	return New(w.Kind, w.Address)
}
