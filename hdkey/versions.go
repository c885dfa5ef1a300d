package hdkey

import (
	"fmt"
	"sort"
)

// Version is the 4-byte big-endian prefix of a serialized extended key. It
// determines both the network and whether the key is private or public, and
// it fixes the leading characters of the base58 string (xprv, tpub, ...).
type Version uint32

// String returns the version as a hex string, e.g. 0x0488ade4.
func (v Version) String() string {
	return fmt.Sprintf("0x%08x", uint32(v))
}

// Network identifies the chain a version belongs to.
type Network uint8

const (
	// Mainnet is the main Bitcoin network.
	Mainnet Network = iota

	// Testnet covers testnet, signet and regtest, which share versions.
	Testnet
)

// String returns a human readable name for the network.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	default:
		return fmt.Sprintf("network(%d)", uint8(n))
	}
}

// networkNames maps every accepted network name to its Network.
var networkNames = map[string]Network{
	"mainnet":  Mainnet,
	"main":     Mainnet,
	"bitcoin":  Mainnet,
	"testnet":  Testnet,
	"testnet3": Testnet,
	"testnet4": Testnet,
	"signet":   Testnet,
	"regtest":  Testnet,
}

// ParseNetwork maps a network name to a Network. The names accepted are the
// ones used in configuration files and on the command line.
func ParseNetwork(name string) (Network, error) {
	net, ok := networkNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}

	return net, nil
}

// NetworkNames returns the sorted list of names ParseNetwork accepts.
func NetworkNames() []string {
	names := make([]string, 0, len(networkNames))
	for name := range networkNames {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// KeyKind tells whether a version carries a private or a public key.
type KeyKind uint8

const (
	// PrivateKind marks versions that carry 0x00 || 32-byte scalar.
	PrivateKind KeyKind = iota

	// PublicKind marks versions that carry a 33-byte compressed point.
	PublicKind
)

// String returns a human readable name for the key kind.
func (k KeyKind) String() string {
	switch k {
	case PrivateKind:
		return "private"
	case PublicKind:
		return "public"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// VersionInfo is one entry of the version table.
type VersionInfo struct {
	// Label is the conventional prefix of the encoded string.
	Label string

	// Version is the raw 4-byte version.
	Version Version

	// Network is the network the version is used on.
	Network Network

	// Kind is the kind of key the version carries.
	Kind KeyKind
}

// The versions every implementation has to understand.
const (
	// XPrv is the mainnet private version.
	XPrv Version = 0x0488ade4

	// XPub is the mainnet public version.
	XPub Version = 0x0488b21e

	// TPrv is the testnet private version.
	TPrv Version = 0x04358394

	// TPub is the testnet public version.
	TPub Version = 0x043587cf
)

// VersionTable is an immutable lookup table of known versions.
type VersionTable struct {
	entries []VersionInfo
}

// NewVersionTable creates a table from the given entries. Duplicate versions
// are rejected, as are duplicate network/kind pairs, since either would make
// a lookup ambiguous.
func NewVersionTable(entries ...VersionInfo) (*VersionTable, error) {
	seen := make(map[Version]struct{}, len(entries))
	for i, entry := range entries {
		if _, ok := seen[entry.Version]; ok {
			return nil, fmt.Errorf("duplicate version %v",
				entry.Version)
		}
		seen[entry.Version] = struct{}{}

		for _, other := range entries[:i] {
			if other.Network == entry.Network &&
				other.Kind == entry.Kind {

				return nil, fmt.Errorf("duplicate %v %v "+
					"version", entry.Network, entry.Kind)
			}
		}
	}

	return &VersionTable{
		entries: append([]VersionInfo(nil), entries...),
	}, nil
}

// DefaultVersions is the table used by Decode and the Encode helpers.
var DefaultVersions = &VersionTable{
	entries: []VersionInfo{
		{Label: "xprv", Version: XPrv, Network: Mainnet,
			Kind: PrivateKind},
		{Label: "xpub", Version: XPub, Network: Mainnet,
			Kind: PublicKind},
		{Label: "tprv", Version: TPrv, Network: Testnet,
			Kind: PrivateKind},
		{Label: "tpub", Version: TPub, Network: Testnet,
			Kind: PublicKind},
	},
}

// Lookup returns the entry for the raw version v.
func (t *VersionTable) Lookup(v Version) (VersionInfo, bool) {
	for _, entry := range t.entries {
		if entry.Version == v {
			return entry, true
		}
	}

	return VersionInfo{}, false
}

// For returns the entry for the given network and key kind.
func (t *VersionTable) For(net Network, kind KeyKind) (VersionInfo, error) {
	for _, entry := range t.entries {
		if entry.Network == net && entry.Kind == kind {
			return entry, nil
		}
	}

	return VersionInfo{}, fmt.Errorf("%w: no %v version for %v",
		ErrUnknownNetwork, kind, net)
}

// Entries returns a copy of the table entries.
func (t *VersionTable) Entries() []VersionInfo {
	return append([]VersionInfo(nil), t.entries...)
}

// LookupVersion looks v up in DefaultVersions.
func LookupVersion(v Version) (VersionInfo, bool) {
	return DefaultVersions.Lookup(v)
}

// VersionFor returns the DefaultVersions entry for the network and kind.
func VersionFor(net Network, kind KeyKind) (VersionInfo, error) {
	return DefaultVersions.For(net, kind)
}
