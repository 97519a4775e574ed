// Package block defines the sole persistence unit of prollydb: an opaque
// byte slice addressed by the hash of its own contents.
package block

import (
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"lukechampine.com/blake3"
)

// Codec is the multicodec tag stamped on every CID minted by this package.
// 0x71 is dag-cbor in the multicodec table; we reuse it even though our
// payloads are CBOR-but-not-IPLD-DAG-CBOR, matching the convention the wider
// prolly-tree/IPLD ecosystem uses for content-addressed node blocks.
const Codec = 0x71

// MultihashCode selects blake3-256 as the digest function, matching the
// hash family used by the erigon and gloudx-ues examples in the pack.
const MultihashCode = mh.BLAKE3

// Block is the unit of persistence: a content identifier and its bytes.
type Block struct {
	CID   cid.Cid
	Bytes []byte
}

// New derives the CID of b via blake3 and returns the Block.
func New(b []byte) (Block, error) {
	c, err := Sum(b)
	if err != nil {
		return Block{}, err
	}
	return Block{CID: c, Bytes: b}, nil
}

// Sum computes the content identifier of b without constructing a Block.
func Sum(b []byte) (cid.Cid, error) {
	sum := blake3.Sum256(b)
	digest, err := mh.Encode(sum[:], MultihashCode)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(Codec, digest), nil
}

// Verify reports whether blk.CID is the correct content identifier for
// blk.Bytes, i.e. whether the block has not been tampered with in transit.
func Verify(blk Block) (bool, error) {
	want, err := Sum(blk.Bytes)
	if err != nil {
		return false, err
	}
	return want.Equals(blk.CID), nil
}
