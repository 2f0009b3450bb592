package address

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// Size is the byte length of an address and of a program id.
	Size = 32

	// MaxSeedLength is the longest single seed accepted by Derive.
	MaxSeedLength = 32

	// MaxSeeds is the most seeds accepted by Derive, bump excluded.
	MaxSeeds = 16

	// marker is appended after the program id in every derivation.
	marker = "ProgramDerivedAddress"

	// VoteTag prefixes the seeds of every vote record.
	VoteTag = "vote"
)

var (
	// ErrMaxSeedLength is returned when a seed exceeds MaxSeedLength.
	ErrMaxSeedLength = errors.New("seed exceeds max length")

	// ErrMaxSeeds is returned when more than MaxSeeds seeds are given.
	ErrMaxSeeds = errors.New("too many seeds")

	// ErrNoViableBump is returned when every bump lands on the curve.
	ErrNoViableBump = errors.New("no viable bump seed")
)

// Address is a derived record location.
type Address [Size]byte

// String returns the lowercase hex encoding.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Parse decodes a hex string produced by Address.String.
func Parse(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address: %w", err)
	}
	if len(b) != Size {
		return a, fmt.Errorf("parse address: got %d bytes, want %d", len(b), Size)
	}
	copy(a[:], b)
	return a, nil
}

// ProgramID namespaces every address a Deriver produces.
type ProgramID [Size]byte

// ProgramIDFromName hashes a human-readable program name into a ProgramID.
// Two stores configured with different names never share an address.
func ProgramIDFromName(name string) ProgramID {
	return ProgramID(sha256.Sum256([]byte(name)))
}

// String returns the lowercase hex encoding.
func (p ProgramID) String() string {
	return hex.EncodeToString(p[:])
}

// Deriver maps seed tuples to addresses under one program id.
// A Deriver is immutable and safe for concurrent use.
type Deriver struct {
	program ProgramID
}

// NewDeriver creates a Deriver for program.
func NewDeriver(program ProgramID) Deriver {
	return Deriver{program: program}
}

// Program returns the program id the deriver is bound to.
func (d Deriver) Program() ProgramID {
	return d.program
}

// Derive returns the canonical address for seeds and the bump that
// produced it. The result depends only on the seeds and the program id.
func (d Deriver) Derive(seeds ...[]byte) (Address, uint8, error) {
	if err := checkSeeds(seeds); err != nil {
		return Address{}, 0, err
	}
	for bump := 255; bump >= 0; bump-- {
		candidate := d.hash(seeds, uint8(bump))
		if !onCurve(candidate) {
			return candidate, uint8(bump), nil
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// Verify reports whether addr is the address derived from seeds with bump.
// It does not require bump to be the canonical one.
func (d Deriver) Verify(addr Address, bump uint8, seeds ...[]byte) bool {
	if checkSeeds(seeds) != nil {
		return false
	}
	candidate := d.hash(seeds, bump)
	return candidate == addr && !onCurve(candidate)
}

func (d Deriver) hash(seeds [][]byte, bump uint8) Address {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(d.program[:])
	h.Write([]byte(marker))
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

func checkSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return fmt.Errorf("%w: %d > %d", ErrMaxSeeds, len(seeds), MaxSeeds)
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(s))
		}
	}
	return nil
}

// onCurve reports whether b decodes as a point on the ed25519 curve.
func onCurve(b Address) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}

// U64Seed encodes v as 8 little-endian bytes.
func U64Seed(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// PollSeeds returns the seeds of the poll with pollID.
func PollSeeds(pollID uint64) [][]byte {
	return [][]byte{U64Seed(pollID)}
}

// CandidateSeeds returns the seeds of candidateID within pollID.
func CandidateSeeds(pollID, candidateID uint64) [][]byte {
	return [][]byte{U64Seed(pollID), U64Seed(candidateID)}
}

// VoteSeeds returns the seeds of the vote record of voter in pollID.
// The voter is seeded by its SHA-256 digest so every vote tuple is 44 bytes
// and cannot concatenate to the same bytes as a poll or candidate tuple.
func VoteSeeds(pollID uint64, voter []byte) [][]byte {
	digest := sha256.Sum256(voter)
	return [][]byte{[]byte(VoteTag), U64Seed(pollID), digest[:]}
}
