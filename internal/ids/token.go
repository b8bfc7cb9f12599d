package ids

import (
	"fmt"
	"math/big"
	"strconv"
)

// TokenID is an unsigned 128-bit token identifier.
type TokenID struct {
	Hi uint64
	Lo uint64
}

// TokenIDFrom64 widens v to a TokenID.
func TokenIDFrom64(v uint64) TokenID { return TokenID{Lo: v} }

// ParseTokenID parses a base-10 token id.
func ParseTokenID(s string) (TokenID, error) {
	if s == "" {
		return TokenID{}, fmt.Errorf("empty token id")
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return TokenID{Lo: v}, nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 128 {
		return TokenID{}, fmt.Errorf("invalid token id %q", s)
	}
	lo := new(big.Int).And(n, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(n, 64)
	return TokenID{Hi: hi.Uint64(), Lo: lo.Uint64()}, nil
}

// Less orders token ids numerically.
func (t TokenID) Less(o TokenID) bool {
	if t.Hi != o.Hi {
		return t.Hi < o.Hi
	}
	return t.Lo < o.Lo
}

func (t TokenID) IsZero() bool { return t.Hi == 0 && t.Lo == 0 }

func (t TokenID) String() string {
	if t.Hi == 0 {
		return strconv.FormatUint(t.Lo, 10)
	}
	n := new(big.Int).SetUint64(t.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(t.Lo))
	return n.String()
}

// MarshalText encodes the id as a decimal string so JSON clients never lose
// precision.
func (t TokenID) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TokenID) UnmarshalText(b []byte) error {
	v, err := ParseTokenID(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
