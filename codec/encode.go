package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"prollydb/block"
)

// ErrCodec wraps any failure to decode a block's bytes into the requested
// payload shape (a malformed or truncated block).
var ErrCodec = errors.New("codec: malformed block")

var (
	encModeOnce sync.Once
	encMode     cbor.EncMode
)

// encodeMode returns the shared canonical CBOR encoder: sorted map keys,
// deterministic integer/float widths, no indefinite-length items. Same
// logical payload always produces the same bytes, which is the property
// CID derivation depends on.
func encodeMode() cbor.EncMode {
	encModeOnce.Do(func() {
		opts := cbor.CanonicalEncOptions()
		m, err := opts.EncMode()
		if err != nil {
			panic(err) // fixed, valid options; cannot fail
		}
		encMode = m
	})
	return encMode
}

// Encode canonically serializes payload and derives its block CID.
func Encode(payload any) (block.Block, error) {
	b, err := encodeMode().Marshal(payload)
	if err != nil {
		return block.Block{}, fmt.Errorf("codec: encode: %w", err)
	}
	return block.New(b)
}

// Decode deserializes bytes into out, which must be a pointer to the
// expected payload shape.
func Decode(bytes []byte, out any) error {
	if err := cbor.Unmarshal(bytes, out); err != nil {
		return fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return nil
}
