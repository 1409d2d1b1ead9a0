// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sort"
	"time"

	"github.com/bchcore/bchd/blockchain/standalone"
	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
	"github.com/decred/dcrd/math/uint256"
)

// medianTimeBlocks is the number of previous blocks a block node's median
// time is calculated from, per spec.md §4.E's MTP definition.
const medianTimeBlocks = 11

// blockStatus marks the validity and main-chain membership state the chain
// index has established for a blockNode so already-validated work is never
// repeated across a reorganisation.
type blockStatus byte

const (
	statusNone blockStatus = 0

	// statusDataStored indicates the block's payload is available in the
	// store, as opposed to only its header having been accepted.
	statusDataStored blockStatus = 1 << iota

	// statusValid indicates the block has passed the full body validation
	// pipeline described in spec.md §4.E.
	statusValid

	// statusValidateFailed indicates the block failed body validation and
	// must never be reconsidered as a best-chain candidate.
	statusValidateFailed

	// statusInvalidAncestor indicates an ancestor of the block failed
	// validation, so the block itself can never become valid.
	statusInvalidAncestor
)

// KnownValid returns whether the block is known to have passed full
// validation.
func (s blockStatus) KnownValid() bool {
	return s&statusValid != 0
}

// KnownInvalid returns whether the block, or one of its ancestors, is known
// to have failed validation.
func (s blockStatus) KnownInvalid() bool {
	return s&(statusValidateFailed|statusInvalidAncestor) != 0
}

// blockNode is an in-memory representation of a block header plus the
// chain-relative metadata (height, cumulative work, status) that the chain
// index needs to pick the best chain and compute retarget/MTP values without
// re-reading block bodies, per spec.md §4.E.
type blockNode struct {
	parent *blockNode
	hash   chainhash.Hash
	height int64

	version    int32
	bits       uint32
	timestamp  int64
	nonce      uint32
	merkleRoot chainhash.Hash
	prevHash   chainhash.Hash

	// workSum is this node's own proof-of-work converted to a work value
	// plus the cumulative work of every ancestor back to genesis.
	workSum uint256.Uint256

	status blockStatus
}

// initBlockNode initializes node from the fields in the given header,
// attaching it to parent (nil for genesis).  The node's workSum is set here
// to parent's cumulative work plus the work its own bits represent.
func initBlockNode(node *blockNode, header *wire.BlockHeader, parent *blockNode) {
	*node = blockNode{
		hash:       header.BlockHash(),
		parent:     parent,
		version:    header.Version,
		bits:       header.Bits,
		timestamp:  header.Timestamp,
		nonce:      header.Nonce,
		merkleRoot: header.MerkleRoot,
		prevHash:   header.PrevBlock,
	}
	if parent != nil {
		node.height = parent.height + 1
		node.workSum.Add(&parent.workSum, workFromBits(header.Bits))
	} else {
		node.workSum = *workFromBits(header.Bits)
	}
}

// newBlockNode returns a new block node for the given header, connected to
// parent.
func newBlockNode(header *wire.BlockHeader, parent *blockNode) *blockNode {
	var node blockNode
	initBlockNode(&node, header, parent)
	return &node
}

// workFromBits converts a compact "bits" target into the work value it
// represents, expressed as the pack's fixed-width Uint256 rather than
// math/big, since chainwork is always a 256-bit quantity accumulated once
// per block.
func workFromBits(bits uint32) *uint256.Uint256 {
	return bigToUint256(standalone.CalcWork(bits))
}

// bigToUint256 converts a non-negative big.Int known to fit in 256 bits into
// the pack's fixed-width Uint256 type.  Uint256's SetBytes mirrors
// math/big.Int.SetBytes: buf is interpreted as a big-endian unsigned
// integer.
func bigToUint256(n *big.Int) *uint256.Uint256 {
	var u uint256.Uint256
	u.SetBytes(n.Bytes())
	return &u
}

// Header reconstructs the wire block header represented by node.
func (node *blockNode) Header() wire.BlockHeader {
	return wire.BlockHeader{
		Version:    node.version,
		PrevBlock:  node.prevHash,
		MerkleRoot: node.merkleRoot,
		Timestamp:  node.timestamp,
		Bits:       node.bits,
		Nonce:      node.nonce,
	}
}

// Ancestor returns the ancestor block node at the provided height by walking
// backwards through parent links.  A proper chain index keeps a height-based
// skip list to make this logarithmic; this repo's index is a straightforward
// linked list, so the walk is linear in the distance travelled.
func (node *blockNode) Ancestor(height int64) *blockNode {
	if height < 0 || height > node.height {
		return nil
	}

	n := node
	for n != nil && n.height > height {
		n = n.parent
	}
	return n
}

// RelativeAncestor returns the ancestor block node a relative distance
// blocks before node.
func (node *blockNode) RelativeAncestor(distance int64) *blockNode {
	return node.Ancestor(node.height - distance)
}

// CalcPastMedianTime calculates the median time of the previous few blocks
// prior to, and including, node, per spec.md §4.E's MTP definition.
func (node *blockNode) CalcPastMedianTime() time.Time {
	timestamps := make([]int64, 0, medianTimeBlocks)
	iterNode := node
	for i := 0; i < medianTimeBlocks && iterNode != nil; i++ {
		timestamps = append(timestamps, iterNode.timestamp)
		iterNode = iterNode.parent
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	medianTimestamp := timestamps[len(timestamps)/2]
	return time.Unix(medianTimestamp, 0)
}
