// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// ErrorCode identifies the kind of consensus-level failure a script
// interpreter run encountered, per spec.md §7 ("ScriptError(code)").
type ErrorCode int

// Error codes, per the table in spec.md §4.C and the catalogue in §7.
const (
	ErrInvalidStackOperation ErrorCode = iota
	ErrInvalidOperandSize
	ErrInvalidNumberRange
	ErrInvalidSplitRange
	ErrPushSize
	ErrImpossibleEncoding
	ErrDivByZero
	ErrModByZero
	ErrPubKeyType
	ErrSigDER
	ErrSigHighS
	ErrNullFail
	ErrCheckDataSigVerify
	ErrScriptSize
	ErrStackOverflow
	ErrTooManyOperations
	ErrUnbalancedConditional
	ErrDisabledOpcode
	ErrReservedOpcode
	ErrNotMinimalData
	ErrCleanStack
	ErrEvalFalse
	ErrScriptUnfinished
	ErrEarlyReturn
	ErrVerify
	ErrEqualVerify
	ErrNumEqualVerify
	ErrPubKeyFormat
	ErrSigDERAndS
	ErrSigNullDummy
	ErrSigPushOnly
	ErrWitnessPubKeyType
	ErrUnknownError
)

var errorCodeStrings = map[ErrorCode]string{
	ErrInvalidStackOperation:  "INVALID_STACK_OPERATION",
	ErrInvalidOperandSize:     "INVALID_OPERAND_SIZE",
	ErrInvalidNumberRange:     "INVALID_NUMBER_RANGE",
	ErrInvalidSplitRange:      "INVALID_SPLIT_RANGE",
	ErrPushSize:               "PUSH_SIZE",
	ErrImpossibleEncoding:     "IMPOSSIBLE_ENCODING",
	ErrDivByZero:              "DIV_BY_ZERO",
	ErrModByZero:              "MOD_BY_ZERO",
	ErrPubKeyType:             "PUBKEYTYPE",
	ErrSigDER:                 "SIG_DER",
	ErrSigHighS:               "SIG_HIGH_S",
	ErrNullFail:               "NULLFAIL",
	ErrCheckDataSigVerify:     "CHECKDATASIGVERIFY",
	ErrScriptSize:             "SCRIPT_SIZE",
	ErrStackOverflow:          "STACK_SIZE",
	ErrTooManyOperations:      "OP_COUNT",
	ErrUnbalancedConditional:  "UNBALANCED_CONDITIONAL",
	ErrDisabledOpcode:         "DISABLED_OPCODE",
	ErrReservedOpcode:         "BAD_OPCODE",
	ErrNotMinimalData:         "UNKNOWN_ERROR",
	ErrCleanStack:             "CLEANSTACK",
	ErrEvalFalse:              "EVAL_FALSE",
	ErrScriptUnfinished:       "UNKNOWN_ERROR",
	ErrEarlyReturn:            "OP_RETURN",
	ErrVerify:                 "VERIFY",
	ErrEqualVerify:            "EQUALVERIFY",
	ErrNumEqualVerify:         "NUMEQUALVERIFY",
	ErrPubKeyFormat:           "PUBKEYTYPE",
	ErrSigDERAndS:             "SIG_DER",
	ErrSigNullDummy:           "SIG_NULLDUMMY",
	ErrSigPushOnly:            "SIG_PUSHONLY",
	ErrWitnessPubKeyType:      "WITNESS_PUBKEYTYPE",
	ErrUnknownError:           "UNKNOWN_ERROR",
}

// String returns the stable error-code tag used in spec.md §7.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return "UNKNOWN_ERROR"
}

// Error implements the ScriptError described in spec.md §7: a code plus a
// human-readable description.
type Error struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e Error) Error() string {
	return e.Description
}

// Code returns the stable error-code tag for e.
func (e Error) Code() ErrorCode {
	return e.ErrorCode
}

func scriptError(c ErrorCode, desc string) Error {
	return Error{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err is a txscript.Error with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	serr, ok := err.(Error)
	return ok && serr.ErrorCode == c
}
