// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package database implements blockchain.ChainStore on top of
// github.com/syndtr/goleveldb, namespacing every key by the single-byte
// prefixes spec.md §6 assigns to the chain's logical tables.
package database

import (
	"encoding/binary"

	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
)

// Key prefixes, one byte each, matching spec.md §6's Store namespace table.
const (
	prefixVersion      = 'V' // schema version
	prefixOptions      = 'O' // chain options
	prefixTip          = 'R' // tip hash
	prefixHeightByHash = 'h' // hash -> height
	prefixHashByHeight = 'H' // height -> hash
	prefixNext         = 'n' // hash -> next hash (main chain pointer)
	prefixBranchTip    = 'p' // hash -> branch-tip flag
	prefixBlock        = 'b' // hash -> block bytes
	prefixUtxo         = 'c' // (hash, index) -> utxo entry
	prefixUndo         = 'u' // hash -> undo data
	prefixVersionBits  = 'v' // (bit, hash) -> versionbits state cache
)

// schemaVersionChain is the schema version persisted under prefixVersion for
// the primary chain database, per spec.md §6.
const schemaVersionChain = 5

// tipKey is the sole key under prefixTip: there is exactly one current tip.
func tipKey() []byte {
	return []byte{prefixTip}
}

// versionKey is the sole key under prefixVersion.
func versionKey() []byte {
	return []byte{prefixVersion}
}

func heightByHashKey(hash *chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixHeightByHash
	copy(key[1:], hash[:])
	return key
}

func hashByHeightKey(height int64) []byte {
	key := make([]byte, 1+8)
	key[0] = prefixHashByHeight
	binary.BigEndian.PutUint64(key[1:], uint64(height))
	return key
}

func nextKey(hash *chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixNext
	copy(key[1:], hash[:])
	return key
}

func branchTipKey(hash *chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixBranchTip
	copy(key[1:], hash[:])
	return key
}

func blockKey(hash *chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixBlock
	copy(key[1:], hash[:])
	return key
}

func undoKey(hash *chainhash.Hash) []byte {
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = prefixUndo
	copy(key[1:], hash[:])
	return key
}

// utxoKey builds the fixed-width, big-endian (hash, index) key a single
// unspent output is stored under.
func utxoKey(outpoint wire.OutPoint) []byte {
	key := make([]byte, 1+chainhash.HashSize+4)
	key[0] = prefixUtxo
	copy(key[1:], outpoint.Hash[:])
	binary.BigEndian.PutUint32(key[1+chainhash.HashSize:], outpoint.Index)
	return key
}
