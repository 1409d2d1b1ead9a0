// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"
)

// TestNetParams defines the network parameters for the test network.  It
// retains the legacy reduced-minimum-difficulty rule (spec.md §4.E) but
// otherwise tracks mainnet's retarget and activation schedule.
var testNetGenesisBlock = newGenesisBlock(1, 1296688602, 0x1d00ffff, 414098458)

var testNetGenesisHash = testNetGenesisBlock.BlockHash()

var TestNetParams = Params{
	Name:        "testnet",
	Net:         0xf4f3e5f4,
	DefaultPort: "18333",

	GenesisBlock: testNetGenesisBlock,
	GenesisHash:  &testNetGenesisHash,
	PowLimit:     mainPowLimit,
	PowLimitBits: 0x1d00ffff,

	RetargetAdjustmentFactor: 4,
	TargetTimespan:           14 * 24 * time.Hour,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetInterval:         2016,

	ReduceMinDifficulty:  true,
	MinDiffReductionTime: 20 * time.Minute,

	UseCashDAA:                    true,
	MagneticAnomalyActivationTime: 1557921600,

	CoinbaseMaturity:       100,
	SubsidyHalvingInterval: 210000,

	AddressParams: AddressParams{
		NetworkName:      "testnet",
		PubKeyHashAddrID: 0x6f,
		ScriptHashAddrID: 0xc4,
		CashAddrPrefix:   "bchtest",
	},
}
