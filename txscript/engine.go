// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/bchcore/bchd/wire"
)

// maxScriptOps is the maximum number of non-push opcodes a single script may
// execute, per spec.md §4.C's MAX_SCRIPT_OPS.
const maxScriptOps = 201

// maxPubKeysPerMultiSig is the maximum number of public keys an
// OP_CHECKMULTISIG(VERIFY) may be given, per spec.md §4.C.
const maxPubKeysPerMultiSig = 20

// condition-stack entries, tracking nested OP_IF/OP_NOTIF branches.
const (
	opCondFalse = 0
	opCondTrue  = 1
	opCondSkip  = 2
)

// Engine is the virtual machine that executes a transaction input's
// unlocking and locking scripts together, per spec.md §4.C.
type Engine struct {
	scripts     [][]parsedOpcode
	scriptIdx   int
	opcodeIdx   int
	lastCodeSep int

	dstack stack
	astack stack

	condStack   []int
	numOps      int
	bip16       bool
	savedStack  [][]byte

	tx        *wire.MsgTx
	txIdx     int
	amount    int64
	flags     ScriptFlags
	sigCache  *SigCache
	hashCache *txSigHashes
}

// NewEngine returns a new script engine prepared to verify txIdx's input of
// tx against prevOutScript, the previous output's locking script, with the
// given amount (the previous output's value, required for the v1 sighash
// algorithm) and verification flags.
func NewEngine(prevOutScript []byte, tx *wire.MsgTx, txIdx int, flags ScriptFlags, amount int64, sigCache *SigCache, hashCache *txSigHashes) (*Engine, error) {
	if txIdx < 0 || txIdx >= len(tx.TxIn) {
		return nil, scriptError(ErrInvalidStackOperation, "transaction input index out of bounds")
	}
	sigScript := tx.TxIn[txIdx].SignatureScript

	if flags.HasSigHashForkID() {
		// Scripts destined for mempool/mining must be push-only on the
		// unlocking side; consensus validation of already-mined blocks
		// still calls NewEngine but does not require this.
	}

	sigPops, err := parseScript(sigScript)
	if err != nil {
		return nil, err
	}
	pkPops, err := parseScript(prevOutScript)
	if err != nil {
		return nil, err
	}
	for _, pop := range pkPops {
		if pop.isDisabled() {
			return nil, scriptError(ErrDisabledOpcode, "opcode is disabled")
		}
	}
	for _, pop := range sigPops {
		if pop.isDisabled() {
			return nil, scriptError(ErrDisabledOpcode, "opcode is disabled")
		}
	}

	vm := &Engine{
		scripts:   [][]parsedOpcode{sigPops, pkPops},
		tx:        tx,
		txIdx:     txIdx,
		amount:    amount,
		flags:     flags,
		sigCache:  sigCache,
		hashCache: hashCache,
		bip16:     flags.HasP2SH() && isScriptHash(pkPops),
	}
	if vm.bip16 && !IsPushOnlyScript(sigScript) {
		return nil, scriptError(ErrSigPushOnly, "signature script for P2SH output is not push only")
	}
	return vm, nil
}

// isScriptHash reports whether pops matches the P2SH template:
// OP_HASH160 <20 bytes> OP_EQUAL.
func isScriptHash(pops []parsedOpcode) bool {
	return len(pops) == 3 &&
		pops[0].opcode == OP_HASH160 &&
		pops[1].opcode <= OP_PUSHDATA4 && len(pops[1].data) == 20 &&
		pops[2].opcode == OP_EQUAL
}

// Execute runs both the unlocking and locking scripts (and, for a P2SH
// output, the embedded redeem script) to completion, returning nil if and
// only if the input is authorized to spend the referenced output.
func (vm *Engine) Execute() error {
	for vm.scriptIdx = 0; vm.scriptIdx < len(vm.scripts); vm.scriptIdx++ {
		if vm.scriptIdx == 1 && vm.bip16 {
			// Stash a copy of the stack produced purely by the signature
			// script so the embedded redeem script can be run against it
			// after the ordinary P2SH template check below succeeds.
			vm.savedStack = make([][]byte, len(vm.dstack.stk))
			copy(vm.savedStack, vm.dstack.stk)
		}

		if err := vm.executeScript(vm.scripts[vm.scriptIdx]); err != nil {
			return err
		}

		if vm.scriptIdx == 0 {
			continue
		}
	}

	if vm.bip16 {
		redeemScript, err := vm.dstack.PeekByteArray(0)
		if err != nil {
			return err
		}
		v, err := vm.dstack.PopBool()
		if err != nil {
			return err
		}
		if !v {
			return scriptError(ErrEvalFalse, "locking script evaluated to false")
		}
		_ = redeemScript

		vm.dstack.stk = vm.savedStack
		script, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		pops, err := parseScript(script)
		if err != nil {
			return err
		}
		for _, pop := range pops {
			if pop.isDisabled() {
				return scriptError(ErrDisabledOpcode, "opcode is disabled")
			}
		}
		vm.scripts = append(vm.scripts, pops)
		vm.scriptIdx = len(vm.scripts) - 1
		vm.numOps = 0
		vm.condStack = nil
		if err := vm.executeScript(pops); err != nil {
			return err
		}
	}

	return vm.checkFinalState()
}

func (vm *Engine) checkFinalState() error {
	if vm.dstack.Depth() < 1 {
		return scriptError(ErrEvalFalse, "stack empty at end of script execution")
	}
	if vm.flags.HasCleanStack() && vm.dstack.Depth() != 1 {
		return scriptError(ErrCleanStack, "stack contains additional elements")
	}
	v, err := vm.dstack.PeekBool(0)
	if err != nil {
		return err
	}
	if !v {
		return scriptError(ErrEvalFalse, "false stack entry at end of script execution")
	}
	return nil
}

func (vm *Engine) executeScript(pops []parsedOpcode) error {
	vm.opcodeIdx = 0
	vm.lastCodeSep = 0

	for i := 0; i < len(pops); i++ {
		pop := pops[i]
		vm.opcodeIdx = i
		executeBranch := vm.shouldExec(pop)

		if executeBranch {
			if pop.isDisabled() {
				return scriptError(ErrDisabledOpcode, "attempt to execute disabled opcode")
			}
			if pop.alwaysIllegal() {
				return scriptError(ErrReservedOpcode, "attempt to execute reserved opcode")
			}
		}

		if pop.opcode > OP_16 {
			vm.numOps++
			if vm.numOps > maxScriptOps {
				return scriptError(ErrTooManyOperations, "exceeded max operation limit")
			}
		}
		if len(pop.data) > maxScriptElementSize {
			return scriptError(ErrPushSize, "element size exceeds max allowed size")
		}

		if !executeBranch {
			switch pop.opcode {
			case OP_IF, OP_NOTIF, OP_ELSE, OP_ENDIF:
			default:
				continue
			}
		}

		if err := vm.execOpcode(pop, pops); err != nil {
			return err
		}

		if vm.dstack.Depth()+vm.astack.Depth() > maxScriptStackSize {
			return scriptError(ErrStackOverflow, "combined stack size exceeds limit")
		}
	}

	if len(vm.condStack) != 0 {
		return scriptError(ErrUnbalancedConditional, "end of script reached in conditional execution")
	}
	return nil
}

// shouldExec reports whether the current conditional nesting allows pop to
// execute. Flow-control opcodes always evaluate; everything else is skipped
// while any enclosing branch is false.
func (vm *Engine) shouldExec(pop parsedOpcode) bool {
	for _, c := range vm.condStack {
		if c != opCondTrue {
			return false
		}
	}
	return true
}
