package hdkey

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/hdchain/keypath"
)

const (
	// MinSeedBytes is the minimum number of bytes allowed for a seed to a
	// master node.
	MinSeedBytes = 16 // 128 bits

	// MaxSeedBytes is the maximum number of bytes allowed for a seed to a
	// master node.
	MaxSeedBytes = 64 // 512 bits

	// RecommendedSeedLen is the recommended length in bytes for a seed to
	// a master node.
	RecommendedSeedLen = 32 // 256 bits

	// serializedChildLen is the length of the HMAC message used for child
	// derivation: 33 bytes of key data followed by a 4-byte index.
	serializedChildLen = PubKeyLen + 4
)

// masterKey is the HMAC key used to turn a seed into a master node.
var masterKey = []byte("Bitcoin seed")

// GenerateSeed returns a cryptographically secure random seed of n bytes.
func GenerateSeed(n uint8) ([]byte, error) {
	if n < MinSeedBytes || n > MaxSeedBytes {
		return nil, ErrInvalidSeedLen
	}

	seed := make([]byte, n)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}

	return seed, nil
}

// GenerateMaster creates the master node of a key tree from a seed. The left
// half of HMAC-SHA512("Bitcoin seed", seed) becomes the private scalar, the
// right half the chain code.
func GenerateMaster(seed []byte) (*ExtendedPrivateKey, error) {
	if len(seed) < MinSeedBytes || len(seed) > MaxSeedBytes {
		return nil, ErrInvalidSeedLen
	}

	il, ir := hmacSplit(masterKey, seed)
	defer zero(il[:])

	if !validScalar(&il) {
		return nil, ErrInvalidPrivateScalar
	}

	log.Tracef("Generated master key from %d byte seed", len(seed))

	return &ExtendedPrivateKey{
		meta: meta{
			chainCode: ir,
			path:      keypath.Root,
		},
		key: il,
	}, nil
}

// DerivePrivateKey returns the child of parent at the given index. Indices at
// or above keypath.HardenedKeyStart produce hardened children.
//
// If the derived scalar is out of range, which happens with a probability
// below 1 in 2^127, ErrInvalidPrivateScalar is returned and the caller is
// expected to move on to the next index.
func DerivePrivateKey(parent *ExtendedPrivateKey,
	index uint32) (*ExtendedPrivateKey, error) {

	if parent.depth == maxDepth {
		return nil, ErrMaxDepthExceeded
	}

	parentPub := pubKeyFromScalar(&parent.key)

	// The HMAC message is either 0x00 || ser256(k) || ser32(i) for a
	// hardened child or serP(point(k)) || ser32(i) for a normal one.
	var data [serializedChildLen]byte
	if keypath.IsHardened(index) {
		copy(data[1:], parent.key[:])
	} else {
		copy(data[:], parentPub[:])
	}
	binary.BigEndian.PutUint32(data[PubKeyLen:], index)
	defer zero(data[:])

	il, ir := hmacSplit(parent.chainCode[:], data[:])
	defer zero(il[:])

	var ilNum btcec.ModNScalar
	if overflow := ilNum.SetBytes(&il); overflow != 0 {
		return nil, ErrInvalidPrivateScalar
	}

	var keyNum btcec.ModNScalar
	keyNum.SetBytes(&parent.key)
	keyNum.Add(&ilNum)
	defer keyNum.Zero()
	defer ilNum.Zero()

	if keyNum.IsZero() {
		return nil, ErrInvalidPrivateScalar
	}

	child := &ExtendedPrivateKey{
		meta: meta{
			chainCode: ir,
			depth:     parent.depth + 1,
			parentFP:  fingerprint(&parentPub),
			index:     index,
			path:      parent.path.Derive(index),
		},
	}
	keyNum.PutBytes(&child.key)

	log.Tracef("Derived private child depth=%d index=%s", child.depth,
		keypath.FormatIndex(index))

	return child, nil
}

// DerivePublicKey returns the public child of parent at the given index. Only
// non-hardened indices can be derived from a public key.
//
// The result is identical to DerivePrivateKey(k, index).Public() for the
// private key k that parent is the projection of.
func DerivePublicKey(parent *ExtendedPublicKey,
	index uint32) (*ExtendedPublicKey, error) {

	if keypath.IsHardened(index) {
		return nil, ErrHardenedFromPublicKey
	}
	if parent.depth == maxDepth {
		return nil, ErrMaxDepthExceeded
	}

	var data [serializedChildLen]byte
	copy(data[:], parent.pubKey[:])
	binary.BigEndian.PutUint32(data[PubKeyLen:], index)

	il, ir := hmacSplit(parent.chainCode[:], data[:])

	var ilNum btcec.ModNScalar
	if overflow := ilNum.SetBytes(&il); overflow != 0 {
		return nil, ErrInvalidDerivedPoint
	}

	parentKey, err := btcec.ParsePubKey(parent.pubKey[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKeyEncoding,
			err)
	}

	// childKey = IL*G + K.
	var ilPoint, parentPoint, result btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&ilNum, &ilPoint)
	parentKey.AsJacobian(&parentPoint)
	btcec.AddNonConst(&ilPoint, &parentPoint, &result)

	if (result.X.IsZero() && result.Y.IsZero()) || result.Z.IsZero() {
		return nil, ErrInvalidDerivedPoint
	}
	result.ToAffine()

	child := &ExtendedPublicKey{
		meta: meta{
			chainCode: ir,
			depth:     parent.depth + 1,
			parentFP:  fingerprint(&parent.pubKey),
			index:     index,
			path:      parent.path.Derive(index),
		},
	}
	copy(
		child.pubKey[:],
		btcec.NewPublicKey(&result.X, &result.Y).SerializeCompressed(),
	)

	log.Tracef("Derived public child depth=%d index=%s", child.depth,
		keypath.FormatIndex(index))

	return child, nil
}

// DerivePrivatePath derives the descendant of parent reached by following
// path, one index at a time. The first failing step aborts the walk.
func DerivePrivatePath(parent *ExtendedPrivateKey,
	path keypath.KeyPath) (*ExtendedPrivateKey, error) {

	key := parent
	for i, index := range path.Indices() {
		child, err := DerivePrivateKey(key, index)
		if err != nil {
			return nil, fmt.Errorf("unable to derive index %s at "+
				"depth %d: %w", keypath.FormatIndex(index),
				int(parent.depth)+i+1, err)
		}

		key = child
	}

	return key, nil
}

// DerivePublicPath derives the public descendant of parent reached by
// following path. The path must not contain hardened indices.
func DerivePublicPath(parent *ExtendedPublicKey,
	path keypath.KeyPath) (*ExtendedPublicKey, error) {

	key := parent
	for i, index := range path.Indices() {
		child, err := DerivePublicKey(key, index)
		if err != nil {
			return nil, fmt.Errorf("unable to derive index %s at "+
				"depth %d: %w", keypath.FormatIndex(index),
				int(parent.depth)+i+1, err)
		}

		key = child
	}

	return key, nil
}

// DerivePrivateKeyPath parses path and derives the matching descendant of
// parent.
func DerivePrivateKeyPath(parent *ExtendedPrivateKey,
	path string) (*ExtendedPrivateKey, error) {

	p, err := keypath.Parse(path)
	if err != nil {
		return nil, err
	}

	return DerivePrivatePath(parent, p)
}

// DerivePublicKeyPath parses path and derives the matching public descendant
// of parent.
func DerivePublicKeyPath(parent *ExtendedPublicKey,
	path string) (*ExtendedPublicKey, error) {

	p, err := keypath.Parse(path)
	if err != nil {
		return nil, err
	}

	return DerivePublicPath(parent, p)
}

// hmacSplit computes HMAC-SHA512(key, data) and splits the result into its
// left and right 32-byte halves.
func hmacSplit(key, data []byte) ([KeyLen]byte, [KeyLen]byte) {
	mac := hmac.New(sha512.New, key)
	_, _ = mac.Write(data)
	sum := mac.Sum(nil)
	defer zero(sum)

	var il, ir [KeyLen]byte
	copy(il[:], sum[:KeyLen])
	copy(ir[:], sum[KeyLen:])

	return il, ir
}

// zero overwrites b with zeroes.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
