// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"
)

// mainPowLimit is the highest proof of work value a block's hash can be for
// it to be accepted on mainnet (exponent 0x1d, full mantissa 0x00ffff).
var mainPowLimit = standaloneCompactToBig(0x1d00ffff)

// mainGenesisBlock is mainnet's genesis block, built once so its hash can be
// shared between GenesisBlock and GenesisHash below.
var mainGenesisBlock = newGenesisBlock(1, 1231006505, 0x1d00ffff, 2083236893)

var mainGenesisHash = mainGenesisBlock.BlockHash()

// MainNetParams defines the network parameters for the main bitcoin-cash-
// style network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         0xe8f3e1e3,
	DefaultPort: "8333",

	GenesisBlock: mainGenesisBlock,
	GenesisHash:  &mainGenesisHash,
	PowLimit:     mainPowLimit,
	PowLimitBits: 0x1d00ffff,

	RetargetAdjustmentFactor: 4,
	TargetTimespan:           14 * 24 * time.Hour,
	TargetTimePerBlock:       10 * time.Minute,
	RetargetInterval:         2016,

	ReduceMinDifficulty:  false,
	MinDiffReductionTime: 0,

	UseCashDAA:                    true,
	MagneticAnomalyActivationTime: 1557921600, // 2019-05-15T12:00:00Z

	CoinbaseMaturity:       100,
	SubsidyHalvingInterval: 210000,

	AddressParams: AddressParams{
		NetworkName:      "mainnet",
		PubKeyHashAddrID: 0x00,
		ScriptHashAddrID: 0x05,
		CashAddrPrefix:   "bitcoincash",
	},
}

// standaloneCompactToBig is a tiny local copy of the compact-target decoder
// used only to build the package-level PowLimit constants at init time,
// avoiding a dependency from chaincfg (which the rest of the tree, including
// blockchain/standalone, depends ON) back onto blockchain/standalone itself.
func standaloneCompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}
	if isNegative {
		bn = bn.Neg(bn)
	}
	return bn
}
