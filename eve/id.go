package eve

import (
	"crypto/sha1"
	"encoding/binary"

	"github.com/wbrown/janus-eve/eve/codec"
)

// Id is an opaque, immutable entity/value identifier. Two Ids denote the
// same entity iff their underlying hashes are equal; the human-readable
// source string (when known) is carried alongside the hash but plays no
// role in equality.
//
// Id is the "minted identifier" spec.md §3 describes: it must survive
// save/load by decomposing into constituent parts (IdParts) and being
// reconstructed from them, since the original string isn't always known
// (e.g. an Id read back from a dump only has its hash).
//
// Every Id carries its L85 encoding from construction rather than caching
// it lazily on first use: Ids are copied by value constantly (through
// Quads, map keys, every index lookup), and a pointer-receiver cache
// written on first use would race the moment two evaluations share the
// same committed Id concurrently, which spec.md §5 explicitly allows.
type Id struct {
	hash   [20]byte
	l85    string
	source string
}

// NewId mints an identifier from a caller-supplied string. The string is
// remembered so String() can return something readable; it plays no role
// in equality, which is defined purely on the hash.
func NewId(s string) Id {
	return newId(sha1.Sum([]byte(s)), s)
}

// IdFromHash reconstructs an identifier from a raw hash with no known
// source string — the shape an Id takes after a save/load round trip.
func IdFromHash(hash [20]byte) Id {
	return newId(hash, "")
}

func newId(hash [20]byte, source string) Id {
	return Id{hash: hash, l85: codec.EncodeFixed20(hash), source: source}
}

// Hash returns the raw 20-byte hash.
func (id Id) Hash() [20]byte { return id.hash }

// L85 returns the lexicographically-sortable string encoding of the hash.
func (id Id) L85() string { return id.l85 }

// String returns the original source string if known, otherwise the L85
// encoding.
func (id Id) String() string {
	if id.source != "" {
		return id.source
	}
	return id.l85
}

// Numeric returns the first 8 bytes of the hash as a uint64, a cheap
// non-cryptographic key usable for map sharding or log correlation.
func (id Id) Numeric() uint64 {
	return binary.BigEndian.Uint64(id.hash[:8])
}

// Equal reports whether two Ids denote the same entity.
func (id Id) Equal(other Id) bool {
	return id.hash == other.hash
}

// Compare orders two Ids by their L85 encoding, giving a total, stable
// order usable for deterministic iteration (spec.md §4.1).
func (id Id) Compare(other Id) int {
	switch {
	case id.l85 < other.l85:
		return -1
	case id.l85 > other.l85:
		return 1
	default:
		return 0
	}
}

// Bytes returns the raw hash bytes.
func (id Id) Bytes() []byte { return id.hash[:] }

// IdParts is the decomposed, save/load-portable form of an Id: exactly
// what spec.md §4.8 requires for a dump that survives process boundaries.
type IdParts struct {
	Hash   [20]byte
	Source string // empty if the original string is not known
}

// Decompose returns the constituent parts of an Id for a save dump.
func (id Id) Decompose() IdParts {
	return IdParts{Hash: id.hash, Source: id.source}
}

// Recompose reconstructs an Id from its decomposed parts, as performed by
// load() for every entity/value slot that held a minted Id.
func Recompose(p IdParts) Id {
	if p.Source != "" {
		return NewId(p.Source)
	}
	return IdFromHash(p.Hash)
}
