package hdkey

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil"
)

// IdentifierLen is the length of a key identifier.
const IdentifierLen = 20

// Identifier returns RIPEMD160(SHA256(serP(K))) of the extended public key,
// the 20-byte identifier BIP-32 uses to name a node.
func Identifier(pub *ExtendedPublicKey) [IdentifierLen]byte {
	return identifier(&pub.pubKey)
}

// Fingerprint returns the first 32 bits of the identifier of the key, read as
// a big-endian integer. It is the parent fingerprint of every direct child.
func Fingerprint(pub *ExtendedPublicKey) uint32 {
	return fingerprint(&pub.pubKey)
}

func identifier(pubKey *[PubKeyLen]byte) [IdentifierLen]byte {
	var id [IdentifierLen]byte
	copy(id[:], btcutil.Hash160(pubKey[:]))

	return id
}

func fingerprint(pubKey *[PubKeyLen]byte) uint32 {
	id := identifier(pubKey)

	return binary.BigEndian.Uint32(id[:4])
}
