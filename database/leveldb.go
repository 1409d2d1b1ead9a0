// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bchcore/bchd/blockchain"
	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
	"github.com/syndtr/goleveldb/leveldb"
)

// Store is a github.com/syndtr/goleveldb-backed implementation of
// blockchain.ChainStore, namespacing every record under the single-byte key
// prefixes keys.go defines, per spec.md §6.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) a leveldb database at path and returns
// a Store ready to back a blockchain.BlockChain.  On a brand new database it
// stamps the chain schema version.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", path, err)
	}
	s := &Store{db: db}

	if _, err := db.Get(versionKey(), nil); err == leveldb.ErrNotFound {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], schemaVersionChain)
		if err := db.Put(versionKey(), buf[:], nil); err != nil {
			return nil, fmt.Errorf("database: stamp schema version: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("database: read schema version: %w", err)
	}

	log.Infof("opened chain database %s (schema version %d)", path, schemaVersionChain)
	return s, nil
}

// Close releases the underlying leveldb handle.  Per spec.md §7's "Store
// failures are surfaced unchanged; the chain treats them as fatal and
// refuses further writes until reopened", no further Store method call is
// valid after Close.
func (s *Store) Close() error {
	log.Info("closing chain database")
	return s.db.Close()
}

// FetchUtxoEntry implements blockchain.UtxoFetcher.
func (s *Store) FetchUtxoEntry(outpoint wire.OutPoint) (*blockchain.UtxoEntry, error) {
	raw, err := s.db.Get(utxoKey(outpoint), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database: fetch utxo %v: %w", outpoint, err)
	}
	return decodeUtxoEntry(raw)
}

// FetchBlock implements blockchain.ChainStore.
func (s *Store) FetchBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	raw, err := s.db.Get(blockKey(hash), nil)
	if err != nil {
		return nil, fmt.Errorf("database: fetch block %v: %w", hash, err)
	}
	block := new(wire.MsgBlock)
	if err := block.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("database: decode block %v: %w", hash, err)
	}
	return block, nil
}

// StoreBlock implements blockchain.ChainStore.
func (s *Store) StoreBlock(block *wire.MsgBlock) error {
	hash := block.BlockHash()
	if err := s.db.Put(blockKey(&hash), block.Bytes(), nil); err != nil {
		return fmt.Errorf("database: store block %v: %w", hash, err)
	}
	return nil
}

// FetchUndo implements blockchain.ChainStore.
func (s *Store) FetchUndo(hash *chainhash.Hash) (*blockchain.BlockUndo, error) {
	raw, err := s.db.Get(undoKey(hash), nil)
	if err != nil {
		return nil, fmt.Errorf("database: fetch undo %v: %w", hash, err)
	}
	return decodeUndo(raw)
}

// CommitConnect implements blockchain.ChainStore: it applies view's dirty
// entries to the permanent UTXO set, stores undo, and advances the
// height/hash/next/tip pointers, all in a single atomic leveldb batch.
func (s *Store) CommitConnect(hash *chainhash.Hash, height int64, view *blockchain.UtxoViewpoint, undo *blockchain.BlockUndo) error {
	batch := new(leveldb.Batch)

	for outpoint, entry := range view.Entries() {
		if entry == nil {
			continue
		}
		if entry.IsSpent() {
			batch.Delete(utxoKey(outpoint))
			continue
		}
		batch.Put(utxoKey(outpoint), encodeUtxoEntry(entry))
	}

	batch.Put(undoKey(hash), encodeUndo(undo))
	batch.Put(heightByHashKey(hash), encodeHeight(height))
	batch.Put(hashByHeightKey(height), hash[:])
	batch.Put(tipKey(), hash[:])

	tipHash, _, err := s.tipLocked()
	if err == nil && tipHash != nil {
		batch.Put(nextKey(tipHash), hash[:])
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("database: commit connect %v: %w", hash, err)
	}
	return nil
}

// CommitDisconnect implements blockchain.ChainStore: it reapplies view's
// pre-connect entries to the permanent UTXO set and moves the tip pointer
// back to prevHash, all in a single atomic leveldb batch.
func (s *Store) CommitDisconnect(hash *chainhash.Hash, prevHash *chainhash.Hash, view *blockchain.UtxoViewpoint) error {
	batch := new(leveldb.Batch)

	for outpoint, entry := range view.Entries() {
		if entry == nil {
			batch.Delete(utxoKey(outpoint))
			continue
		}
		batch.Put(utxoKey(outpoint), encodeUtxoEntry(entry))
	}

	batch.Delete(nextKey(prevHash))
	batch.Put(tipKey(), prevHash[:])

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("database: commit disconnect %v: %w", hash, err)
	}
	return nil
}

// Tip implements blockchain.ChainStore.
func (s *Store) Tip() (*chainhash.Hash, int64, error) {
	return s.tipLocked()
}

func (s *Store) tipLocked() (*chainhash.Hash, int64, error) {
	raw, err := s.db.Get(tipKey(), nil)
	if err == leveldb.ErrNotFound {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("database: fetch tip: %w", err)
	}

	var hash chainhash.Hash
	copy(hash[:], raw)

	heightRaw, err := s.db.Get(heightByHashKey(&hash), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("database: fetch tip height: %w", err)
	}
	return &hash, decodeHeight(heightRaw), nil
}

func encodeHeight(height int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(height))
	return buf[:]
}

func decodeHeight(raw []byte) int64 {
	return int64(binary.BigEndian.Uint64(raw))
}
