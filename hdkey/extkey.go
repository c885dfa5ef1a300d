// Package hdkey implements BIP-32 hierarchical deterministic keys on
// secp256k1: master key generation from a seed, private and public child
// derivation, key fingerprints, and the checksummed base58 serialization
// (xprv/xpub/tprv/tpub).
//
// References:
//
//	[BIP32]: BIP0032 - Hierarchical Deterministic Wallets
//	https://github.com/bitcoin/bips/blob/master/bip-0032.mediawiki
package hdkey

import (
	"fmt"
	"log/slog"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/lightningnetwork/hdchain/keypath"
)

const (
	// KeyLen is the length of a serialized private scalar and of a chain
	// code.
	KeyLen = 32

	// PubKeyLen is the length of a compressed public key.
	PubKeyLen = btcec.PubKeyBytesLenCompressed

	// maxDepth is the largest depth the serialization can carry.
	maxDepth = 255

	// redacted is what a private key renders as in every textual form.
	redacted = "<extended_private_key>"
)

// ExtendedKey is the view shared by extended private and public keys.
type ExtendedKey interface {
	// ChainCode returns a copy of the chain code.
	ChainCode() [KeyLen]byte

	// Depth returns the number of ancestors of the key.
	Depth() uint8

	// ParentFingerprint returns the fingerprint of the parent key, zero
	// for a master key.
	ParentFingerprint() uint32

	// Index returns the child index that produced the key.
	Index() uint32

	// Path returns the tracked derivation path. Keys that were decoded
	// rather than derived report the root path unless WithPath was used.
	Path() keypath.KeyPath

	// IsPrivate reports whether the key carries a private scalar.
	IsPrivate() bool

	// Public returns the extended public key of this node.
	Public() *ExtendedPublicKey
}

// A compile time check to ensure both records implement ExtendedKey.
var (
	_ ExtendedKey = (*ExtendedPrivateKey)(nil)
	_ ExtendedKey = (*ExtendedPublicKey)(nil)
)

// meta is the tree position shared by both record types.
type meta struct {
	chainCode [KeyLen]byte
	depth     uint8
	parentFP  uint32
	index     uint32
	path      keypath.KeyPath
}

// ChainCode returns a copy of the chain code.
func (m *meta) ChainCode() [KeyLen]byte {
	return m.chainCode
}

// Depth returns the number of ancestors of the key.
func (m *meta) Depth() uint8 {
	return m.depth
}

// ParentFingerprint returns the fingerprint of the parent's public key.
func (m *meta) ParentFingerprint() uint32 {
	return m.parentFP
}

// Index returns the child index that produced the key.
func (m *meta) Index() uint32 {
	return m.index
}

// Path returns the tracked derivation path.
func (m *meta) Path() keypath.KeyPath {
	return m.path
}

// IsHardened reports whether the key was produced by hardened derivation.
func (m *meta) IsHardened() bool {
	return keypath.IsHardened(m.index)
}

// validate checks the tree position invariants that do not depend on the key
// material.
func (m *meta) validate() error {
	if m.depth == 0 && (m.parentFP != 0 || m.index != 0) {
		return ErrInvalidZeroDepth
	}

	return nil
}

// ExtendedPrivateKey is a node of the key tree holding a private scalar. It is
// immutable; every accessor returns a copy of the secret material, and the
// record never renders its secret through fmt, slog or btclog.
type ExtendedPrivateKey struct {
	meta

	key [KeyLen]byte
}

// NewExtendedPrivateKey builds a private record from its parts, enforcing
// 1 <= key < n and the depth 0 invariants.
func NewExtendedPrivateKey(key, chainCode []byte, depth uint8,
	parentFP, index uint32, path keypath.KeyPath) (*ExtendedPrivateKey,
	error) {

	if len(key) != KeyLen || len(chainCode) != KeyLen {
		return nil, fmt.Errorf("key and chain code must be %d bytes",
			KeyLen)
	}

	k := &ExtendedPrivateKey{
		meta: meta{
			depth:    depth,
			parentFP: parentFP,
			index:    index,
			path:     path,
		},
	}
	copy(k.chainCode[:], chainCode)
	copy(k.key[:], key)

	if err := k.validate(); err != nil {
		return nil, err
	}
	if !validScalar(&k.key) {
		return nil, ErrInvalidPrivateScalar
	}

	return k, nil
}

// IsPrivate always returns true for a private key.
func (k *ExtendedPrivateKey) IsPrivate() bool {
	return true
}

// SecretBytes returns a copy of the 32-byte big-endian private scalar.
func (k *ExtendedPrivateKey) SecretBytes() [KeyLen]byte {
	return k.key
}

// PrivateKey returns the private scalar as a btcec key.
func (k *ExtendedPrivateKey) PrivateKey() *btcec.PrivateKey {
	var scalar btcec.ModNScalar
	scalar.SetBytes(&k.key)

	return secp256k1.NewPrivateKey(&scalar)
}

// PublicKey returns the public point of the key.
func (k *ExtendedPrivateKey) PublicKey() *btcec.PublicKey {
	return k.PrivateKey().PubKey()
}

// SerializedPubKey returns the compressed public point of the key.
func (k *ExtendedPrivateKey) SerializedPubKey() [PubKeyLen]byte {
	return pubKeyFromScalar(&k.key)
}

// Public returns the extended public key of this node. It is the N((k, c))
// function of BIP-32: the point is computed from the scalar, every other
// field is copied unchanged.
func (k *ExtendedPrivateKey) Public() *ExtendedPublicKey {
	return &ExtendedPublicKey{
		meta:   k.meta,
		pubKey: pubKeyFromScalar(&k.key),
	}
}

// Neuter is an alias of Public, named after the btcutil convention.
func (k *ExtendedPrivateKey) Neuter() *ExtendedPublicKey {
	return k.Public()
}

// Fingerprint returns the fingerprint of the key's public point.
func (k *ExtendedPrivateKey) Fingerprint() uint32 {
	pub := pubKeyFromScalar(&k.key)

	return fingerprint(&pub)
}

// WithPath returns a copy of the key whose tracked path is replaced. It lets
// callers that know the ancestry of a decoded key restore it.
func (k *ExtendedPrivateKey) WithPath(path keypath.KeyPath) *ExtendedPrivateKey {
	c := *k
	c.path = path

	return &c
}

// Copy returns a deep copy of the key.
func (k *ExtendedPrivateKey) Copy() *ExtendedPrivateKey {
	c := *k

	return &c
}

// Equal reports whether both keys are identical, path included.
func (k *ExtendedPrivateKey) Equal(other *ExtendedPrivateKey) bool {
	return k.key == other.key && k.meta.equal(&other.meta)
}

// String never reveals the key. It always returns the same placeholder.
//
// The redaction methods use value receivers so that formatting a dereferenced
// record is covered too.
func (k ExtendedPrivateKey) String() string {
	return redacted
}

// GoString is used by the %#v verb and returns the placeholder as well.
func (k ExtendedPrivateKey) GoString() string {
	return redacted
}

// Format makes every fmt verb, including %x and %+v, print the placeholder.
func (k ExtendedPrivateKey) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}

// LogValue keeps the key out of structured log records.
func (k ExtendedPrivateKey) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// ExtendedPublicKey is a node of the key tree holding only a compressed public
// point. It can derive non-hardened descendants.
type ExtendedPublicKey struct {
	meta

	pubKey [PubKeyLen]byte
}

// NewExtendedPublicKey builds a public record from its parts. The key must be
// a valid compressed point.
func NewExtendedPublicKey(pubKey, chainCode []byte, depth uint8,
	parentFP, index uint32, path keypath.KeyPath) (*ExtendedPublicKey,
	error) {

	if len(chainCode) != KeyLen {
		return nil, fmt.Errorf("chain code must be %d bytes", KeyLen)
	}
	if err := checkCompressedPoint(pubKey); err != nil {
		return nil, err
	}

	k := &ExtendedPublicKey{
		meta: meta{
			depth:    depth,
			parentFP: parentFP,
			index:    index,
			path:     path,
		},
	}
	copy(k.chainCode[:], chainCode)
	copy(k.pubKey[:], pubKey)

	if err := k.validate(); err != nil {
		return nil, err
	}

	return k, nil
}

// IsPrivate always returns false for a public key.
func (k *ExtendedPublicKey) IsPrivate() bool {
	return false
}

// Public returns the key itself, public keys are immutable.
func (k *ExtendedPublicKey) Public() *ExtendedPublicKey {
	return k
}

// SerializedPubKey returns the compressed public point.
func (k *ExtendedPublicKey) SerializedPubKey() [PubKeyLen]byte {
	return k.pubKey
}

// PublicKey parses the point into a btcec key.
func (k *ExtendedPublicKey) PublicKey() (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(k.pubKey[:])
}

// Fingerprint returns the fingerprint of the key.
func (k *ExtendedPublicKey) Fingerprint() uint32 {
	return fingerprint(&k.pubKey)
}

// WithPath returns a copy of the key whose tracked path is replaced.
func (k *ExtendedPublicKey) WithPath(path keypath.KeyPath) *ExtendedPublicKey {
	c := *k
	c.path = path

	return &c
}

// Equal reports whether both keys are identical, path included.
func (k *ExtendedPublicKey) Equal(other *ExtendedPublicKey) bool {
	return k.pubKey == other.pubKey && k.meta.equal(&other.meta)
}

// String returns the mainnet xpub encoding of the key.
func (k *ExtendedPublicKey) String() string {
	return encode(XPub, &k.meta, k.pubKey[:])
}

// equal compares two tree positions.
func (m *meta) equal(other *meta) bool {
	return m.chainCode == other.chainCode && m.depth == other.depth &&
		m.parentFP == other.parentFP && m.index == other.index &&
		m.path.Equal(other.path)
}

// validScalar reports whether 1 <= key < n.
func validScalar(key *[KeyLen]byte) bool {
	var scalar btcec.ModNScalar
	overflow := scalar.SetBytes(key)
	valid := overflow == 0 && !scalar.IsZero()
	scalar.Zero()

	return valid
}

// pubKeyFromScalar computes the compressed point key*G.
func pubKeyFromScalar(key *[KeyLen]byte) [PubKeyLen]byte {
	var scalar btcec.ModNScalar
	scalar.SetBytes(key)

	var point btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&scalar, &point)
	point.ToAffine()
	scalar.Zero()

	var pub [PubKeyLen]byte
	copy(pub[:], btcec.NewPublicKey(&point.X, &point.Y).SerializeCompressed())

	return pub
}

// checkCompressedPoint makes sure b is a 33-byte compressed encoding of a
// point on the curve.
func checkCompressedPoint(b []byte) error {
	if len(b) != PubKeyLen {
		return fmt.Errorf("%w: length %d", ErrInvalidPublicKeyEncoding,
			len(b))
	}

	switch b[0] {
	case secp256k1.PubKeyFormatCompressedEven,
		secp256k1.PubKeyFormatCompressedOdd:

	default:
		return fmt.Errorf("%w: prefix 0x%02x",
			ErrInvalidPublicKeyEncoding, b[0])
	}

	if _, err := btcec.ParsePubKey(b); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPublicKeyEncoding, err)
	}

	return nil
}
