package codec_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/molscreen/molscreen/pkg/codec"
	pkgerrors "github.com/molscreen/molscreen/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()

	items := []codec.Item{
		{ID: "lig-zz", Payload: []byte("REMARK zz")},
		{ID: "lig-aa", Payload: []byte("REMARK aa")},
		{ID: "lig-mm", Payload: []byte("REMARK mm")},
	}

	path := filepath.Join(t.TempDir(), "batch0001.cbor.gz")
	require.NoError(t, codec.EncodeUnit(path, items))

	decoded, err := codec.NewCBOR().Decode(codec.UnitRef(path))
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

func TestDecodeFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	notGzip := filepath.Join(dir, "garbage.dat")
	require.NoError(t, os.WriteFile(notGzip, []byte("this is not compressed"), 0o644))

	truncated := filepath.Join(dir, "truncated.cbor.gz")
	good := filepath.Join(dir, "good.cbor.gz")
	require.NoError(t, codec.EncodeUnit(good, []codec.Item{{ID: "a", Payload: []byte("x")}}))
	data, err := os.ReadFile(good)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(truncated, data[:len(data)/2], 0o644))

	empty := filepath.Join(dir, "empty.cbor.gz")
	require.NoError(t, codec.EncodeUnit(empty, []codec.Item{}))

	anonymous := filepath.Join(dir, "anonymous.cbor.gz")
	require.NoError(t, codec.EncodeUnit(anonymous, []codec.Item{{Payload: []byte("x")}}))

	tests := []struct {
		name    string
		ref     codec.UnitRef
		corrupt bool
	}{
		{name: "missing file", ref: codec.UnitRef(filepath.Join(dir, "nope.dat"))},
		{name: "empty ref", ref: codec.UnitRef("")},
		{name: "not gzip", ref: codec.UnitRef(notGzip), corrupt: true},
		{name: "truncated stream", ref: codec.UnitRef(truncated), corrupt: true},
		{name: "no items", ref: codec.UnitRef(empty)},
		{name: "item without ID", ref: codec.UnitRef(anonymous), corrupt: true},
	}

	c := codec.NewCBOR()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := c.Decode(tt.ref)
			assert.Error(t, err)
			if tt.corrupt {
				assert.ErrorIs(t, err, pkgerrors.ErrDecodeUnit)
			}
		})
	}
}
