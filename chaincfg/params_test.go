// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import "testing"

// TestCalcBlockSubsidy checks the halving schedule spec.md §4.G defines:
// the full subsidy until the first halving interval, then successive
// right shifts, and zero once 33 halvings have passed.
func TestCalcBlockSubsidy(t *testing.T) {
	tests := []struct {
		name   string
		height int64
		want   int64
	}{
		{"genesis", 0, baseSubsidy},
		{"last block before first halving", MainNetParams.SubsidyHalvingInterval - 1, baseSubsidy},
		{"first halving", MainNetParams.SubsidyHalvingInterval, baseSubsidy / 2},
		{"second halving", MainNetParams.SubsidyHalvingInterval * 2, baseSubsidy / 4},
		{"far enough to reach zero", MainNetParams.SubsidyHalvingInterval * 33, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := MainNetParams.CalcBlockSubsidy(test.height)
			if got != test.want {
				t.Errorf("CalcBlockSubsidy(%d) = %d, want %d", test.height, got, test.want)
			}
		})
	}
}

// TestTotalSubsidy checks that the sum of every block's subsidy across the
// whole halving schedule equals the 21,000,000-coin cap spec.md §8 asserts.
func TestTotalSubsidy(t *testing.T) {
	got := MainNetParams.TotalSubsidy()
	want := int64(MaxMoney)
	if got != want {
		t.Errorf("TotalSubsidy() = %d, want %d", got, want)
	}
}

// TestGenesisBlockMerkleRoot checks that each network's genesis block
// merkle root is exactly its (sole) coinbase transaction's hash.
func TestGenesisBlockMerkleRoot(t *testing.T) {
	nets := []*Params{&MainNetParams, &TestNetParams, &RegNetParams}
	for _, params := range nets {
		t.Run(params.Name, func(t *testing.T) {
			coinbase := params.GenesisBlock.Transactions[0]
			want := coinbase.TxHash()
			if params.GenesisBlock.Header.MerkleRoot != want {
				t.Errorf("%s: merkle root = %v, want %v", params.Name, params.GenesisBlock.Header.MerkleRoot, want)
			}

			hash := params.GenesisBlock.BlockHash()
			if !params.GenesisHash.IsEqual(&hash) {
				t.Errorf("%s: GenesisHash = %v, want %v", params.Name, params.GenesisHash, hash)
			}
		})
	}
}
