// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"

	"github.com/bchcore/bchd/chainhash"
	"github.com/decred/dcrd/lru"
)

// recentNodeCacheLimit bounds the number of block nodes the index's LRU
// recency set tracks, per spec.md §4.E's ChainEntry lifecycle note
// ("retained while any live branch references it"): every node reachable
// from a live branch tip is kept in the index's maps regardless, but this
// recency set is what an eventual headers-pruning pass would consult to
// decide which non-mainchain entries are safe to drop from memory first.
const recentNodeCacheLimit = 10000

// blockIndex is the hash-keyed table of every ChainEntry the chain has
// accepted, per spec.md §4.E and the "Cyclic references" design note in
// spec.md §9.  It holds no height index; ancestors are found by walking
// each node's parent pointer.
type blockIndex struct {
	sync.RWMutex

	index map[chainhash.Hash]*blockNode
	// recent tracks recently-touched node hashes as a bounded recency set
	// (see recentNodeCacheLimit), matching the teacher's practice of
	// bounding memory for frequently-revisited block data with
	// github.com/decred/dcrd/lru rather than letting every historical node
	// accumulate unbounded auxiliary state.
	recent *lru.Cache[chainhash.Hash]
}

// newBlockIndex returns a new, empty block index.
func newBlockIndex() *blockIndex {
	return &blockIndex{
		index:  make(map[chainhash.Hash]*blockNode),
		recent: lru.NewCache[chainhash.Hash](recentNodeCacheLimit),
	}
}

// HaveBlock returns whether the block index contains the provided hash.
func (bi *blockIndex) HaveBlock(hash *chainhash.Hash) bool {
	bi.RLock()
	defer bi.RUnlock()
	_, ok := bi.index[*hash]
	return ok
}

// LookupNode returns the block node identified by hash, or nil if the hash
// does not correspond to a node in the index.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blockNode {
	bi.RLock()
	defer bi.RUnlock()
	node := bi.index[*hash]
	if node != nil {
		bi.recent.Add(*hash)
	}
	return node
}

// AddNode adds node to the index, keyed by its own hash.  The node must
// already have its parent link and height populated (see newBlockNode).
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.Lock()
	defer bi.Unlock()
	bi.index[node.hash] = node
	bi.recent.Add(node.hash)
}

// NodeCount returns the number of entries the index currently holds.
func (bi *blockIndex) NodeCount() int {
	bi.RLock()
	defer bi.RUnlock()
	return len(bi.index)
}
