package ids

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Generator produces surrogate ids from a counter. The counter is the only
// source of uniqueness; the mixer is a keyed bijection on uint64 so distinct
// counter values always yield distinct ids, even when many ids are drawn in
// the same clock instant.
//
// Generator is not safe for concurrent use; it belongs to the store that
// serializes access to it.
type Generator struct {
	counter uint64
	seed    []byte
	k0, k1  uint64
}

// State is the persisted form of a Generator.
type State struct {
	Counter uint64 `json:"counter"`
	Seed    []byte `json:"seed"`
}

// NewGenerator derives the mixing keys from seed. The seed has to be stored
// with the counter: restoring with a different seed may repeat ids.
func NewGenerator(seed []byte) *Generator {
	g := &Generator{seed: append([]byte(nil), seed...)}
	sum := blake2b.Sum256(seed)
	g.k0 = binary.BigEndian.Uint64(sum[0:8])
	g.k1 = binary.BigEndian.Uint64(sum[8:16])
	return g
}

// Restore rebuilds a Generator from its persisted state.
func Restore(st State) *Generator {
	g := NewGenerator(st.Seed)
	g.counter = st.Counter
	return g
}

// State returns the counter and seed for persistence.
func (g *Generator) State() State {
	return State{Counter: g.counter, Seed: append([]byte(nil), g.seed...)}
}

// Next returns a 64-bit id that was never returned before. Zero is reserved.
func (g *Generator) Next() uint64 {
	for {
		g.counter++
		if v := mix(g.counter ^ g.k0); v != 0 {
			return v
		}
	}
}

// NextToken returns a fresh 128-bit token id. The low half alone is unique.
func (g *Generator) NextToken() TokenID {
	for {
		g.counter++
		lo := mix(g.counter ^ g.k0)
		if lo == 0 {
			continue
		}
		return TokenID{Hi: mix(g.counter ^ g.k1) >> 1, Lo: lo}
	}
}

// mix is the splitmix64 finalizer. Every step is invertible.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
