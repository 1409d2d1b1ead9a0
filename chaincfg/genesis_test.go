// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"bytes"
	"testing"

	"github.com/bchcore/bchd/wire"
	"github.com/davecgh/go-spew/spew"
)

// TestGenesisBlock tests the genesis block of the main network for validity
// by round-tripping it through the wire encoding and checking the block
// hash matches the network's known-good genesis hash.
func TestGenesisBlock(t *testing.T) {
	var buf bytes.Buffer
	if err := MainNetParams.GenesisBlock.Serialize(&buf); err != nil {
		t.Fatalf("MainNetParams.GenesisBlock.Serialize: %v", err)
	}

	var decoded wire.MsgBlock
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("MsgBlock.Deserialize: %v", err)
	}
	if !reflectEqualBlocks(&decoded, MainNetParams.GenesisBlock) {
		t.Fatalf("TestGenesisBlock: decoded block does not round-trip - "+
			"got %v, want %v", spew.Sdump(decoded), spew.Sdump(MainNetParams.GenesisBlock))
	}

	hash := MainNetParams.GenesisBlock.BlockHash()
	if hash != *MainNetParams.GenesisHash {
		t.Fatalf("TestGenesisBlock: Genesis hash does not appear valid - "+
			"got %v, want %v", spew.Sdump(hash),
			spew.Sdump(MainNetParams.GenesisHash))
	}
}

// TestRegNetGenesisBlock tests the genesis block of the regression test
// network for validity by checking the hash.
func TestRegNetGenesisBlock(t *testing.T) {
	hash := RegNetParams.GenesisBlock.BlockHash()
	if hash != *RegNetParams.GenesisHash {
		t.Fatalf("TestRegNetGenesisBlock: Genesis hash does not appear "+
			"valid - got %v, want %v", spew.Sdump(hash),
			spew.Sdump(RegNetParams.GenesisHash))
	}
}

// TestTestNetGenesisBlock tests the genesis block of the test network for
// validity by checking the hash.
func TestTestNetGenesisBlock(t *testing.T) {
	hash := TestNetParams.GenesisBlock.BlockHash()
	if hash != *TestNetParams.GenesisHash {
		t.Fatalf("TestTestNetGenesisBlock: Genesis hash does not appear "+
			"valid - got %v, want %v", spew.Sdump(hash),
			spew.Sdump(TestNetParams.GenesisHash))
	}
}

// reflectEqualBlocks compares two genesis blocks field by field; genesis
// blocks carry no witness data or pointers beyond the single coinbase, so a
// shallow header-plus-coinbase-bytes comparison is sufficient.
func reflectEqualBlocks(a, b *wire.MsgBlock) bool {
	if a.Header != b.Header {
		return false
	}
	if len(a.Transactions) != len(b.Transactions) {
		return false
	}
	for i := range a.Transactions {
		if a.Transactions[i].TxHash() != b.Transactions[i].TxHash() {
			return false
		}
	}
	return true
}
