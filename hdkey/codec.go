package hdkey

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/lightningnetwork/hdchain/keypath"
)

const (
	// payloadLen is the length of a serialized key without its checksum:
	// version(4) || depth(1) || fingerprint(4) || index(4) ||
	// chain code(32) || key data(33).
	payloadLen = 4 + 1 + 4 + 4 + KeyLen + PubKeyLen

	// checksumLen is the number of double SHA-256 bytes appended to the
	// payload.
	checksumLen = 4

	// serializedKeyLen is the length of a decoded base58 string.
	serializedKeyLen = payloadLen + checksumLen
)

// encode serializes the tree position and key data under the given version
// and returns the base58 string.
func encode(version Version, m *meta, keyData []byte) string {
	serialized := make([]byte, 0, serializedKeyLen)

	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], uint32(version))
	serialized = append(serialized, scratch[:]...)
	serialized = append(serialized, m.depth)
	binary.BigEndian.PutUint32(scratch[:], m.parentFP)
	serialized = append(serialized, scratch[:]...)
	binary.BigEndian.PutUint32(scratch[:], m.index)
	serialized = append(serialized, scratch[:]...)
	serialized = append(serialized, m.chainCode[:]...)
	serialized = append(serialized, keyData...)

	checksum := chainhash.DoubleHashB(serialized)[:checksumLen]
	serialized = append(serialized, checksum...)
	defer zero(serialized)

	return base58.Encode(serialized)
}

// checkKind rejects a version of the wrong kind. Versions outside the table
// are accepted as is so that callers can use their own prefixes.
func (t *VersionTable) checkKind(version Version, kind KeyKind) error {
	info, ok := t.Lookup(version)
	if ok && info.Kind != kind {
		return fmt.Errorf("%w: %v is a %v version", ErrVersionKindMismatch,
			version, info.Kind)
	}

	return nil
}

// EncodePrivate serializes k under the given private version.
func EncodePrivate(k *ExtendedPrivateKey, version Version) (string, error) {
	return DefaultVersions.EncodePrivate(k, version)
}

// EncodePublic serializes k under the given public version.
func EncodePublic(k *ExtendedPublicKey, version Version) (string, error) {
	return DefaultVersions.EncodePublic(k, version)
}

// EncodePrivate serializes k under the given version, which must not be a
// public version of the table.
func (t *VersionTable) EncodePrivate(k *ExtendedPrivateKey,
	version Version) (string, error) {

	if err := t.checkKind(version, PrivateKind); err != nil {
		return "", err
	}

	var keyData [PubKeyLen]byte
	copy(keyData[1:], k.key[:])
	defer zero(keyData[:])

	return encode(version, &k.meta, keyData[:]), nil
}

// EncodePublic serializes k under the given version, which must not be a
// private version of the table.
func (t *VersionTable) EncodePublic(k *ExtendedPublicKey,
	version Version) (string, error) {

	if err := t.checkKind(version, PublicKind); err != nil {
		return "", err
	}

	return encode(version, &k.meta, k.pubKey[:]), nil
}

// Encode serializes the key with the private version of the given network.
func (k *ExtendedPrivateKey) Encode(net Network) (string, error) {
	info, err := VersionFor(net, PrivateKind)
	if err != nil {
		return "", err
	}

	return EncodePrivate(k, info.Version)
}

// Encode serializes the key with the public version of the given network.
func (k *ExtendedPublicKey) Encode(net Network) (string, error) {
	info, err := VersionFor(net, PublicKind)
	if err != nil {
		return "", err
	}

	return EncodePublic(k, info.Version)
}

// Decode parses a serialized extended key using DefaultVersions. The returned
// key is an *ExtendedPrivateKey or an *ExtendedPublicKey depending on the
// version, and its path is the root path.
func Decode(text string) (VersionInfo, ExtendedKey, error) {
	return DefaultVersions.Decode(text)
}

// DecodePrivate parses a serialized extended private key.
func DecodePrivate(text string) (*ExtendedPrivateKey, Version, error) {
	info, key, err := Decode(text)
	if err != nil {
		return nil, 0, err
	}

	priv, ok := key.(*ExtendedPrivateKey)
	if !ok {
		return nil, 0, fmt.Errorf("%w: expected a private key, got "+
			"%s", ErrVersionKindMismatch, info.Label)
	}

	return priv, info.Version, nil
}

// DecodePublic parses a serialized extended public key.
func DecodePublic(text string) (*ExtendedPublicKey, Version, error) {
	info, key, err := Decode(text)
	if err != nil {
		return nil, 0, err
	}

	pub, ok := key.(*ExtendedPublicKey)
	if !ok {
		return nil, 0, fmt.Errorf("%w: expected a public key, got "+
			"%s", ErrVersionKindMismatch, info.Label)
	}

	return pub, info.Version, nil
}

// Decode parses a serialized extended key. The checks are applied in a fixed
// order: length and checksum, version, depth 0 fields, then the key data.
func (t *VersionTable) Decode(text string) (VersionInfo, ExtendedKey,
	error) {

	// base58.Decode returns an empty slice for invalid characters, which
	// the length check below catches.
	decoded := base58.Decode(text)
	defer zero(decoded)

	if len(decoded) != serializedKeyLen {
		return VersionInfo{}, nil, fmt.Errorf("%w: length %d",
			ErrInvalidChecksum, len(decoded))
	}

	payload := decoded[:payloadLen]
	checksum := decoded[payloadLen:]
	expected := chainhash.DoubleHashB(payload)[:checksumLen]
	if !bytes.Equal(checksum, expected) {
		return VersionInfo{}, nil, ErrInvalidChecksum
	}

	version := Version(binary.BigEndian.Uint32(payload[:4]))
	info, ok := t.Lookup(version)
	if !ok {
		return VersionInfo{}, nil, fmt.Errorf("%w: %v",
			ErrUnknownVersion, version)
	}

	m := meta{
		depth:    payload[4],
		parentFP: binary.BigEndian.Uint32(payload[5:9]),
		index:    binary.BigEndian.Uint32(payload[9:13]),
		path:     keypath.Root,
	}
	copy(m.chainCode[:], payload[13:13+KeyLen])
	if err := m.validate(); err != nil {
		return VersionInfo{}, nil, err
	}

	keyData := payload[13+KeyLen:]

	switch info.Kind {
	case PrivateKind:
		if keyData[0] != 0x00 {
			return VersionInfo{}, nil, fmt.Errorf("%w: got 0x%02x",
				ErrKeyDataPrefixMismatch, keyData[0])
		}

		k := &ExtendedPrivateKey{meta: m}
		copy(k.key[:], keyData[1:])
		if !validScalar(&k.key) {
			return VersionInfo{}, nil, ErrInvalidPrivateScalar
		}

		log.Debugf("Decoded %s key at depth %d", info.Label, m.depth)

		return info, k, nil

	default:
		if err := checkCompressedPoint(keyData); err != nil {
			return VersionInfo{}, nil, err
		}

		k := &ExtendedPublicKey{meta: m}
		copy(k.pubKey[:], keyData)

		log.Debugf("Decoded %s key at depth %d", info.Label, m.depth)

		return info, k, nil
	}
}

// IsNotOnCurve reports whether err comes from a public key whose encoding is
// well formed but whose coordinates are not a point of secp256k1.
func IsNotOnCurve(err error) bool {
	return errors.Is(err, secp256k1.ErrPubKeyNotOnCurve)
}
