// Package keypath implements the BIP-32 derivation path notation: an ordered
// list of child indices that addresses a node in a key tree, and its
// human-readable form such as m/44'/0'/0'/0.
package keypath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// HardenedKeyStart is the index at which hardened child keys begin.
	// Every index at or above it has the top bit set.
	HardenedKeyStart = uint32(0x80000000) // 2^31

	// hardenedMarker is the canonical suffix used to render a hardened
	// segment.
	hardenedMarker = "'"
)

var (
	// ErrParse is returned when a path string does not follow the path
	// grammar.
	ErrParse = errors.New("invalid key path")

	// ErrIndexTooLarge is returned when an index that is to be hardened
	// already has the top bit set.
	ErrIndexTooLarge = errors.New("index does not fit in 31 bits")
)

// KeyPath is an ordered sequence of raw 32-bit child indices. Hardened
// indices already carry the high bit. The zero value is the root path.
//
// A KeyPath is a value: every method that returns a new path returns a fresh
// backing array, so paths never alias each other.
type KeyPath struct {
	indices []uint32
}

// Root is the empty path that addresses the master key.
var Root = KeyPath{}

// New creates a path from an explicit list of raw indices.
func New(indices ...uint32) KeyPath {
	if len(indices) == 0 {
		return KeyPath{}
	}

	return KeyPath{indices: append([]uint32(nil), indices...)}
}

// Hardened returns the hardened form of the 31-bit index n. It panics if n
// already has the top bit set, which can only be a programming error for a
// constant. Use HardenedChecked for untrusted input.
func Hardened(n uint32) uint32 {
	h, err := HardenedChecked(n)
	if err != nil {
		panic(err)
	}

	return h
}

// HardenedChecked returns n + 2^31, or ErrIndexTooLarge if n >= 2^31.
func HardenedChecked(n uint32) (uint32, error) {
	if n >= HardenedKeyStart {
		return 0, fmt.Errorf("%w: %d", ErrIndexTooLarge, n)
	}

	return n + HardenedKeyStart, nil
}

// IsHardened reports whether the raw index i selects a hardened child.
func IsHardened(i uint32) bool {
	return i >= HardenedKeyStart
}

// Parse parses the textual form of a path. An optional leading "m/" or "/"
// is stripped and an empty remainder, like "m" itself, denotes the root.
// Every segment must be one or more decimal digits below 2^31, optionally
// followed by a single ' marking it hardened.
func Parse(text string) (KeyPath, error) {
	switch {
	case text == "" || text == "m":
		return KeyPath{}, nil

	case strings.HasPrefix(text, "m/"):
		text = text[2:]

	case strings.HasPrefix(text, "/"):
		text = text[1:]
	}
	if text == "" {
		return KeyPath{}, nil
	}

	segments := strings.Split(text, "/")
	indices := make([]uint32, 0, len(segments))
	for pos, segment := range segments {
		index, err := parseSegment(segment)
		if err != nil {
			return KeyPath{}, fmt.Errorf("%w: segment %d (%q): %v",
				ErrParse, pos, segment, err)
		}

		indices = append(indices, index)
	}

	return KeyPath{indices: indices}, nil
}

// MustParse is like Parse but panics on malformed input. It is meant for
// package level constants and tests.
func MustParse(text string) KeyPath {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}

	return p
}

// parseSegment converts a single `[0-9]+'?` segment to a raw index.
func parseSegment(segment string) (uint32, error) {
	digits := segment
	hardened := false
	if strings.HasSuffix(segment, hardenedMarker) {
		digits = strings.TrimSuffix(segment, hardenedMarker)
		hardened = true
	}

	if digits == "" {
		return 0, errors.New("missing index digits")
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("unexpected character %q",
				digits[i])
		}
	}

	value, err := strconv.ParseUint(digits, 10, 31)
	if err != nil {
		return 0, errors.New("index does not fit in 31 bits")
	}

	index := uint32(value)
	if hardened {
		index += HardenedKeyStart
	}

	return index, nil
}

// Indices returns a copy of the raw indices of the path.
func (p KeyPath) Indices() []uint32 {
	return append([]uint32(nil), p.indices...)
}

// Len returns the number of segments, which is also the depth of the node the
// path addresses.
func (p KeyPath) Len() int {
	return len(p.indices)
}

// IsRoot reports whether the path addresses the master key.
func (p KeyPath) IsRoot() bool {
	return len(p.indices) == 0
}

// Index returns the raw index of segment i.
func (p KeyPath) Index(i int) uint32 {
	return p.indices[i]
}

// LastIndex returns the final index of the path, if any.
func (p KeyPath) LastIndex() fn.Option[uint32] {
	if len(p.indices) == 0 {
		return fn.None[uint32]()
	}

	return fn.Some(p.indices[len(p.indices)-1])
}

// Parent returns the path one level up. The root has no parent.
func (p KeyPath) Parent() fn.Option[KeyPath] {
	if len(p.indices) == 0 {
		return fn.None[KeyPath]()
	}

	return fn.Some(New(p.indices[:len(p.indices)-1]...))
}

// Derive returns a new path that extends p by a single child index.
func (p KeyPath) Derive(index uint32) KeyPath {
	indices := make([]uint32, len(p.indices)+1)
	copy(indices, p.indices)
	indices[len(p.indices)] = index

	return KeyPath{indices: indices}
}

// Append returns a new path that extends p by all the indices of other.
func (p KeyPath) Append(other KeyPath) KeyPath {
	indices := make([]uint32, 0, len(p.indices)+len(other.indices))
	indices = append(indices, p.indices...)
	indices = append(indices, other.indices...)

	return New(indices...)
}

// Equal reports whether both paths hold the same index sequence.
func (p KeyPath) Equal(other KeyPath) bool {
	if len(p.indices) != len(other.indices) {
		return false
	}
	for i := range p.indices {
		if p.indices[i] != other.indices[i] {
			return false
		}
	}

	return true
}

// String renders the path in canonical form, e.g. m/44'/0'/0'/0. The root
// renders as "m". The result parses back to an equal path, so it is also
// usable as a map key.
func (p KeyPath) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, index := range p.indices {
		b.WriteString("/")
		b.WriteString(FormatIndex(index))
	}

	return b.String()
}

// FormatIndex renders a single raw index as a path segment.
func FormatIndex(index uint32) string {
	if IsHardened(index) {
		return strconv.FormatUint(
			uint64(index-HardenedKeyStart), 10,
		) + hardenedMarker
	}

	return strconv.FormatUint(uint64(index), 10)
}
