// Package codec reads ligand batch files. A batch is a gzip-compressed CBOR
// array of items, each an item ID paired with an opaque ligand payload. The
// array order is preserved so a unit always yields its items in the same
// sequence.
package codec

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	pkgerrors "github.com/molscreen/molscreen/pkg/errors"
)

// Extensions recognized as ligand batch files when enumerating a library.
var Extensions = []string{".cbor.gz", ".dat"}

var (
	errEmptyRef  = errors.New("empty unit reference")
	errEmptyUnit = errors.New("unit contains no items")
)

// UnitRef points at one batch of scoreable items, typically a path inside
// the ligand library.
type UnitRef string

// Item is a single entry of a decoded unit.
type Item struct {
	ID      string `cbor:"id"`
	Payload []byte `cbor:"payload"`
}

// Codec decodes a unit reference into its ordered items.
type Codec interface {
	Decode(ref UnitRef) ([]Item, error)
}

type cborCodec struct{}

// NewCBOR returns the codec for gzip-compressed CBOR batch files.
func NewCBOR() Codec {
	return cborCodec{}
}

func (cborCodec) Decode(ref UnitRef) ([]Item, error) {
	if ref == "" {
		return nil, errEmptyRef
	}

	raw, err := os.ReadFile(string(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to read unit %s: %w", ref, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("unit %s: %w", ref, pkgerrors.ErrDecodeUnit), err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("unit %s: %w", ref, pkgerrors.ErrDecodeUnit), err)
	}

	var items []Item
	if err := cbor.Unmarshal(data, &items); err != nil {
		return nil, errors.Join(fmt.Errorf("unit %s: %w", ref, pkgerrors.ErrDecodeUnit), err)
	}
	if len(items) == 0 {
		return nil, errEmptyUnit
	}

	for _, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("unit %s: item with empty ID: %w", ref, pkgerrors.ErrDecodeUnit)
		}
	}

	return items, nil
}

// EncodeUnit writes items as a batch file at path. Used by the library
// packing path and by tests.
func EncodeUnit(path string, items []Item) error {
	data, err := cbor.Marshal(items)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}
