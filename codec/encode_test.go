package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	A int    `cbor:"a"`
	B string `cbor:"b"`
}

func TestEncodeDeterministic(t *testing.T) {
	p := sample{A: 1, B: "x"}

	b1, err := Encode(p)
	require.NoError(t, err)
	b2, err := Encode(p)
	require.NoError(t, err)

	assert.Equal(t, b1.Bytes, b2.Bytes)
	assert.True(t, b1.CID.Equals(b2.CID))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := sample{A: 42, B: "hello"}
	blk, err := Encode(p)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Decode(blk.Bytes, &out))
	assert.Equal(t, p, out)
}

func TestDecodeMalformed(t *testing.T) {
	var out sample
	err := Decode([]byte{0xff, 0xff, 0xff}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCodec)
}
