// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"
)

// regNetPowLimit is wide open: regtest blocks only need to satisfy the
// lowest possible difficulty so that tests can mine blocks instantly.
var regNetPowLimit = standaloneCompactToBig(0x207fffff)

var regNetGenesisBlock = newGenesisBlock(1, 1296688602, 0x207fffff, 2)

var regNetGenesisHash = regNetGenesisBlock.BlockHash()

// RegNetParams defines the network parameters for the regression test
// network, used for local development and consensus-core testing.  Neither
// the legacy minimum-difficulty reduction rule nor the cash DAA apply; bits
// change only at RetargetInterval boundaries, under the legacy retarget
// rule.
var RegNetParams = Params{
	Name:        "regtest",
	Net:         0xdab5bffa,
	DefaultPort: "18444",

	GenesisBlock: regNetGenesisBlock,
	GenesisHash:  &regNetGenesisHash,
	PowLimit:     regNetPowLimit,
	PowLimitBits: 0x207fffff,

	RetargetAdjustmentFactor: 4,
	TargetTimespan:           14 * 24 * time.Hour,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetInterval:         2016,

	ReduceMinDifficulty:  false,
	MinDiffReductionTime: 0,

	UseCashDAA:                    false,
	MagneticAnomalyActivationTime: 1557921600,

	CoinbaseMaturity:       100,
	SubsidyHalvingInterval: 150,

	AddressParams: AddressParams{
		NetworkName:      "regtest",
		PubKeyHashAddrID: 0x6f,
		ScriptHashAddrID: 0xc4,
		CashAddrPrefix:   "bchreg",
	},
}
