package keypath

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestParse asserts that the accepted notations all produce the expected raw
// index sequence.
func TestParse(t *testing.T) {
	t.Parallel()

	bip44 := New(Hardened(44), Hardened(0), Hardened(0), 0)

	tests := []struct {
		name string
		text string
		want KeyPath
	}{
		{
			name: "leading m",
			text: "m/44'/0'/0'/0",
			want: bip44,
		},
		{
			name: "leading slash",
			text: "/44'/0'/0'/0",
			want: bip44,
		},
		{
			name: "no prefix",
			text: "44'/0'/0'/0",
			want: bip44,
		},
		{
			name: "first segment not hardened",
			text: "m/44/0'/0'/0",
			want: New(44, Hardened(0), Hardened(0), 0),
		},
		{
			name: "m is root",
			text: "m",
			want: Root,
		},
		{
			name: "empty is root",
			text: "",
			want: New(),
		},
		{
			name: "bare m prefix is root",
			text: "m/",
			want: Root,
		},
		{
			name: "bare slash is root",
			text: "/",
			want: Root,
		},
		{
			name: "largest indices",
			text: "2147483647/2147483647'",
			want: New(2147483647, 0xffffffff),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			path, err := Parse(test.text)
			require.NoError(t, err)
			require.True(
				t, path.Equal(test.want), "got %v want %v",
				path, test.want,
			)
		})
	}
}

// TestParseErrors asserts that malformed paths are rejected with ErrParse.
func TestParseErrors(t *testing.T) {
	t.Parallel()

	invalid := []string{
		"aa/1/2/3",
		"1/'2/3",
		"m//1",
		"1/2/",
		"1''",
		"-1",
		"+1",
		"1 ",
		"2147483648",
		"2147483648'",
		"99999999999999999999",
		"m/0x10",
		"M/1",
		"1h",
		"0H",
		"m/44h/0'",
	}

	for _, text := range invalid {
		_, err := Parse(text)
		require.ErrorIs(t, err, ErrParse, "path %q", text)
	}
}

// TestHardened checks the hardened helpers at the edges of the 31-bit range.
func TestHardened(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint32(0x80000000), Hardened(0))
	require.Equal(t, uint32(0xffffffff), Hardened(0x7fffffff))
	require.True(t, IsHardened(Hardened(44)))
	require.False(t, IsHardened(44))

	_, err := HardenedChecked(0x80000000)
	require.ErrorIs(t, err, ErrIndexTooLarge)

	require.Panics(t, func() {
		Hardened(0x80000000)
	})
}

// TestKeyPathValueSemantics makes sure derived paths never share storage with
// their parents.
func TestKeyPathValueSemantics(t *testing.T) {
	t.Parallel()

	// Give the base path spare capacity so that a naive append would
	// write into shared memory.
	raw := make([]uint32, 2, 8)
	raw[0], raw[1] = 1, 2
	base := New(raw...)
	raw[0] = 99
	require.Equal(t, uint32(1), base.Index(0))

	a := base.Derive(3)
	b := base.Derive(4)
	require.Equal(t, "m/1/2/3", a.String())
	require.Equal(t, "m/1/2/4", b.String())
	require.Equal(t, "m/1/2", base.String())

	indices := a.Indices()
	indices[0] = 42
	require.Equal(t, uint32(1), a.Index(0))

	joined := base.Append(New(Hardened(5), 6))
	require.Equal(t, "m/1/2/5'/6", joined.String())
	require.Equal(t, 4, joined.Len())
}

// TestParentAndLast exercises the optional accessors.
func TestParentAndLast(t *testing.T) {
	t.Parallel()

	require.True(t, Root.Parent().IsNone())
	require.True(t, Root.LastIndex().IsNone())
	require.True(t, Root.IsRoot())

	p := MustParse("m/0'/1/2'")
	require.Equal(t, Hardened(2), p.LastIndex().UnwrapOr(0))

	parent := p.Parent().UnwrapOr(Root)
	require.Equal(t, "m/0'/1", parent.String())
	require.True(t, parent.Derive(Hardened(2)).Equal(p))
}

// TestString checks canonical rendering.
func TestString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "m", Root.String())
	require.Equal(
		t, "m/0/2147483647'/1/2147483646'/2",
		New(
			0, Hardened(2147483647), 1, Hardened(2147483646), 2,
		).String(),
	)
	require.Equal(t, "7'", FormatIndex(Hardened(7)))
}

// TestStringRoundTrip asserts that rendering then parsing any path yields the
// same path.
func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		indices := rapid.SliceOfN(rapid.Uint32(), 0, 12).Draw(
			t, "indices",
		)
		path := New(indices...)

		parsed, err := Parse(path.String())
		require.NoError(t, err)
		require.True(t, parsed.Equal(path))
		require.Equal(t, path.String(), parsed.String())
	})
}
