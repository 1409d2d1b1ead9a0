// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"bytes"
	"testing"
	"time"

	"github.com/bchcore/bchd/blockchain"
	"github.com/bchcore/bchd/chaincfg"
	"github.com/bchcore/bchd/chainhash"
	"github.com/bchcore/bchd/wire"
)

// opTrueScript is an anyone-can-spend output script (a lone OP_TRUE),
// used throughout this file to avoid needing real signatures: the
// assembler's dependency-graph walk and canonical sort are exercised
// independently of txscript's signature checks.
var opTrueScript = []byte{0x51}

// fakeUtxoFetcher implements blockchain.UtxoFetcher over a plain map, for
// use as the permanent UTXO set a fakeChainTip serves FetchUtxoView from.
type fakeUtxoFetcher map[wire.OutPoint]*blockchain.UtxoEntry

func (f fakeUtxoFetcher) FetchUtxoEntry(outpoint wire.OutPoint) (*blockchain.UtxoEntry, error) {
	return f[outpoint], nil
}

// fakeChainTip is a minimal ChainTip backed by an in-memory UTXO set,
// standing in for blockchain.BlockChain in tests that only exercise block
// assembly.
type fakeChainTip struct {
	tip          blockchain.MiningTipInfo
	utxos        fakeUtxoFetcher
	params       *chaincfg.Params
	preverifyErr error
}

func (f *fakeChainTip) MiningTip() blockchain.MiningTipInfo { return f.tip }

func (f *fakeChainTip) FetchUtxoView(block *wire.MsgBlock) (*blockchain.UtxoViewpoint, error) {
	view := blockchain.NewUtxoViewpoint()
	if err := view.FetchInputUtxos(block, f.utxos, f.tip.Height+1); err != nil {
		return nil, err
	}
	return view, nil
}

func (f *fakeChainTip) Params() *chaincfg.Params { return f.params }

func (f *fakeChainTip) CheckConnectBlock(block *wire.MsgBlock) error { return f.preverifyErr }

// fakeTxSource is a TxSource backed by a fixed slice of descriptors, used
// to control the exact order mempool entries are handed to the assembler.
type fakeTxSource []*TxDesc

func (f fakeTxSource) MiningDescs() []*TxDesc { return f }

func minimalTestParams() *chaincfg.Params {
	return &chaincfg.Params{
		Name:                   "mining-test",
		SubsidyHalvingInterval: 210000,
	}
}

// buildDependentTxs returns two transactions: tx1 spends fundingOutpoint
// and produces one anyone-can-spend output; tx2 spends tx1's sole output.
// Both pay a small fee to ensure CheckTransactionInputs accepts them.
func buildDependentTxs(fundingOutpoint wire.OutPoint, fundingValue int64) (tx1, tx2 *wire.MsgTx) {
	tx1 = wire.NewMsgTx(1)
	tx1.TxIn = append(tx1.TxIn, wire.NewTxIn(&fundingOutpoint, nil))
	tx1.TxOut = append(tx1.TxOut, wire.NewTxOut(fundingValue-1000, opTrueScript))

	tx1Hash := tx1.TxHash()
	tx2 = wire.NewMsgTx(1)
	tx2.TxIn = append(tx2.TxIn, wire.NewTxIn(&wire.OutPoint{Hash: tx1Hash, Index: 0}, nil))
	tx2.TxOut = append(tx2.TxOut, wire.NewTxOut(fundingValue-2000, opTrueScript))
	return tx1, tx2
}

// TestNewBlockTemplateOrdersDependentTransactions exercises spec.md §8
// scenario 7: given a parent-funded anyone-can-spend UTXO and two
// dependent transactions, NewBlockTemplate must select both regardless of
// the order they are handed to it, and once magnetic anomaly is active the
// assembled block's non-coinbase transactions must come out in ascending
// txid order even though tx2 can only ever be selected after tx1.
func TestNewBlockTemplateOrdersDependentTransactions(t *testing.T) {
	var fundingHash chainhash.Hash
	fundingHash[0] = 0x01
	fundingOutpoint := wire.OutPoint{Hash: fundingHash, Index: 0}
	const fundingValue = 5_000_000

	tx1, tx2 := buildDependentTxs(fundingOutpoint, fundingValue)

	for _, order := range [][2]*wire.MsgTx{{tx1, tx2}, {tx2, tx1}} {
		first, second := order[0], order[1]
		t.Run("", func(t *testing.T) {
			utxos := fakeUtxoFetcher{
				fundingOutpoint: blockchain.NewUtxoEntry(
					wire.TxOut{Value: fundingValue, PkScript: opTrueScript}, 0, false),
			}

			descByTx := map[*wire.MsgTx]*TxDesc{
				tx1: {Tx: tx1, Fee: 1000, Size: tx1.SerializeSize()},
				tx2: {Tx: tx2, Fee: 1000, Size: tx2.SerializeSize(), ParentTxs: []chainhash.Hash{tx1.TxHash()}},
			}
			source := fakeTxSource{descByTx[first], descByTx[second]}

			chain := &fakeChainTip{
				tip: blockchain.MiningTipInfo{
					Height:                0,
					MedianTime:            time.Unix(1700000000, 0),
					MagneticAnomalyActive: true,
				},
				utxos:  utxos,
				params: minimalTestParams(),
			}

			gen := NewBlkTmplGenerator(&Policy{BlockMaxSize: wire.MaxForkBlockSize}, source, chain, nil, func() time.Time {
				return time.Unix(1700000100, 0)
			})

			tmpl, err := gen.NewBlockTemplate(nil, false)
			if err != nil {
				t.Fatalf("NewBlockTemplate: %v", err)
			}

			if len(tmpl.Block.Transactions) != 3 {
				t.Fatalf("got %d transactions, want 3 (coinbase + tx1 + tx2)", len(tmpl.Block.Transactions))
			}

			seen := make(map[chainhash.Hash]bool)
			for _, tx := range tmpl.Block.Transactions[1:] {
				seen[tx.TxHash()] = true
			}
			if !seen[tx1.TxHash()] || !seen[tx2.TxHash()] {
				t.Fatal("template must contain both dependent transactions regardless of submission order")
			}

			for i := 2; i < len(tmpl.Block.Transactions); i++ {
				prevID := tmpl.Block.Transactions[i-1].TxHash()
				curID := tmpl.Block.Transactions[i].TxHash()
				if bytes.Compare(curID[:], prevID[:]) <= 0 {
					t.Fatalf("transactions out of canonical order: %v then %v", prevID, curID)
				}
			}
		})
	}
}

// TestNewBlockTemplateSkipsOversizedTemplate checks that a policy whose
// BlockMaxSize can't even hold the coinbase is rejected up front.
func TestNewBlockTemplateSkipsOversizedTemplate(t *testing.T) {
	chain := &fakeChainTip{
		tip:    blockchain.MiningTipInfo{MedianTime: time.Unix(1700000000, 0)},
		utxos:  fakeUtxoFetcher{},
		params: minimalTestParams(),
	}
	gen := NewBlkTmplGenerator(&Policy{BlockMaxSize: 10}, fakeTxSource{}, chain, nil, func() time.Time {
		return time.Unix(1700000100, 0)
	})

	if _, err := gen.NewBlockTemplate(nil, false); err != ErrTemplateTooLarge {
		t.Fatalf("err = %v, want ErrTemplateTooLarge", err)
	}
}

// TestCombinedRatePrefersDescendantRate checks the "max(entry.rate,
// entry.descRate)" fee-rate-phase sort key spec.md §4.F defines.
func TestCombinedRatePrefersDescendantRate(t *testing.T) {
	lowOwnRate := &TxDesc{Fee: 100, Size: 1000, DescendantRate: 5.0}
	if got := combinedRate(lowOwnRate); got != 5.0 {
		t.Fatalf("combinedRate = %v, want 5.0 (descendant rate should win)", got)
	}

	highOwnRate := &TxDesc{Fee: 10000, Size: 1000, DescendantRate: 0}
	if got := combinedRate(highOwnRate); got != 10.0 {
		t.Fatalf("combinedRate = %v, want 10.0 (own rate should win)", got)
	}
}
