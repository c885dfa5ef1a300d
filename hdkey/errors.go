package hdkey

import "errors"

var (
	// ErrInvalidPrivateScalar is returned when a private scalar is zero or
	// not below the order of the secp256k1 group. It can surface when
	// generating a master key, deriving a private child or decoding an
	// extended private key.
	ErrInvalidPrivateScalar = errors.New("private key is not in the " +
		"range [1, n-1]")

	// ErrInvalidDerivedPoint is returned when public derivation yields an
	// out of range tweak or the point at infinity.
	ErrInvalidDerivedPoint = errors.New("derived public key is invalid")

	// ErrHardenedFromPublicKey is returned when a hardened child is
	// requested from an extended public key.
	ErrHardenedFromPublicKey = errors.New("cannot derive a hardened key " +
		"from a public key")

	// ErrMaxDepthExceeded is returned when a child of a depth 255 key is
	// requested, since the depth field is a single byte.
	ErrMaxDepthExceeded = errors.New("cannot derive a key with more " +
		"than 255 indices in its path")

	// ErrInvalidSeedLen is returned when the seed passed to GenerateMaster
	// is shorter than MinSeedBytes or longer than MaxSeedBytes.
	ErrInvalidSeedLen = errors.New("seed length must be between 128 " +
		"and 512 bits")

	// ErrInvalidChecksum is returned when a serialized key has the wrong
	// length or its trailing checksum does not match its payload.
	ErrInvalidChecksum = errors.New("bad extended key checksum")

	// ErrUnknownVersion is returned when a serialized key carries a
	// version that is not in the version table.
	ErrUnknownVersion = errors.New("unknown extended key version")

	// ErrInvalidZeroDepth is returned when a serialized key at depth 0
	// has a non-zero parent fingerprint or child index.
	ErrInvalidZeroDepth = errors.New("zero depth with non-zero parent " +
		"fingerprint or index")

	// ErrKeyDataPrefixMismatch is returned when a private version carries
	// key data that does not start with 0x00.
	ErrKeyDataPrefixMismatch = errors.New("private key data must start " +
		"with 0x00")

	// ErrInvalidPublicKeyEncoding is returned when public key data is not
	// a compressed secp256k1 point.
	ErrInvalidPublicKeyEncoding = errors.New("invalid compressed public " +
		"key")

	// ErrVersionKindMismatch is returned when a version of one key kind is
	// used with a key of the other kind.
	ErrVersionKindMismatch = errors.New("version does not match the key " +
		"kind")

	// ErrUnknownNetwork is returned for a network that has no entry in the
	// version table.
	ErrUnknownNetwork = errors.New("unknown network")
)
