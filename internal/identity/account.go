package identity

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Subaccount distinguishes accounts of one owner. The zero value is the
// default subaccount.
type Subaccount [32]byte

// DefaultSubaccount is used whenever a request omits the subaccount.
var DefaultSubaccount Subaccount

// BurnSubaccount receives burned tokens.
var BurnSubaccount = func() Subaccount {
	var s Subaccount
	copy(s[:], "BURN SUBACCOUNT")
	return s
}()

func (s Subaccount) IsDefault() bool { return s == DefaultSubaccount }

func (s Subaccount) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(s[:])), nil
}

func (s *Subaccount) UnmarshalText(b []byte) error {
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return fmt.Errorf("subaccount: %w", err)
	}
	if len(raw) > len(s) {
		return fmt.Errorf("subaccount longer than %d bytes", len(s))
	}
	*s = Subaccount{}
	copy(s[len(s)-len(raw):], raw)
	return nil
}

// Account is a ledger account: an owner principal plus a subaccount.
// Account values compare structurally.
type Account struct {
	Owner      Principal  `json:"owner"`
	Subaccount Subaccount `json:"subaccount"`
}

// NewAccount normalizes a missing subaccount to the default one.
func NewAccount(owner Principal, sub *Subaccount) Account {
	a := Account{Owner: owner}
	if sub != nil {
		a.Subaccount = *sub
	}
	return a
}

// Less orders accounts by owner, then subaccount.
func (a Account) Less(b Account) bool {
	if a.Owner != b.Owner {
		return a.Owner < b.Owner
	}
	return bytes.Compare(a.Subaccount[:], b.Subaccount[:]) < 0
}

func (a Account) String() string {
	if a.Subaccount.IsDefault() {
		return string(a.Owner)
	}
	return fmt.Sprintf("%s.%x", a.Owner, a.Subaccount[:])
}
