// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// maxScriptStackSize is the combined maximum number of elements allowed on
// the main stack and the alt stack at any point during execution, per
// spec.md §4.C.
const maxScriptStackSize = 1000

// maxScriptElementSize is the maximum number of bytes a single stack
// element may occupy, per spec.md §4.C's MAX_SCRIPT_PUSH.
const maxScriptElementSize = 520

// stack represents the data stack used by the script interpreter. Both the
// main stack and alt stack share this type; executeScript checks their
// combined depth against maxScriptStackSize after each opcode.
type stack struct {
	stk       [][]byte
	depthFunc func() int
}

func asBool(t []byte) bool {
	for i := range t {
		if t[i] != 0 {
			// Negative zero (sign bit set on the last nonzero byte with all
			// other bits clear) is still falsy.
			if i == len(t)-1 && t[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

func fromBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return nil
}

// Depth returns the number of elements on the stack.
func (s *stack) Depth() int32 {
	return int32(len(s.stk))
}

// PushByteArray pushes the given byte array onto the top of the stack.
func (s *stack) PushByteArray(so []byte) {
	s.stk = append(s.stk, so)
}

// PushInt converts n to the script number encoding and pushes it.
func (s *stack) PushInt(n scriptNum) {
	s.PushByteArray(n.Bytes())
}

// PushBool pushes the script-encoded boolean value of val.
func (s *stack) PushBool(val bool) {
	s.PushByteArray(fromBool(val))
}

// PopByteArray pops the value off the top of the stack and returns it.
func (s *stack) PopByteArray() ([]byte, error) {
	return s.nipN(0)
}

// PopInt pops the value off the top of the stack, converts it into a script
// number, and returns it.
func (s *stack) PopInt(maxNumLen int) (scriptNum, error) {
	so, err := s.PopByteArray()
	if err != nil {
		return 0, err
	}
	return makeScriptNum(so, true, maxNumLen)
}

// PopBool pops the value off the top of the stack, converts it into a bool,
// and returns it.
func (s *stack) PopBool() (bool, error) {
	so, err := s.PopByteArray()
	if err != nil {
		return false, err
	}
	return asBool(so), nil
}

// PeekByteArray returns the Nth item on the stack without removing it.
func (s *stack) PeekByteArray(idx int) ([]byte, error) {
	sz := len(s.stk)
	if idx < 0 || idx >= sz {
		return nil, scriptError(ErrInvalidStackOperation, "stack index out of range")
	}
	return s.stk[sz-idx-1], nil
}

// PeekBool returns the Nth item on the stack as a bool without removing it.
func (s *stack) PeekBool(idx int) (bool, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return false, err
	}
	return asBool(so), nil
}

// PeekInt returns the Nth item on the stack as a script number without
// removing it.
func (s *stack) PeekInt(idx int, maxNumLen int) (scriptNum, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return 0, err
	}
	return makeScriptNum(so, true, maxNumLen)
}

// nipN is an internal function that removes the nth item on the stack and
// returns it.
func (s *stack) nipN(idx int) ([]byte, error) {
	sz := len(s.stk)
	if idx < 0 || idx >= sz {
		return nil, scriptError(ErrInvalidStackOperation, "stack index out of range")
	}
	so := s.stk[sz-idx-1]
	if idx == 0 {
		s.stk = s.stk[:sz-1]
	} else if idx == sz-1 {
		s.stk = s.stk[1:]
	} else {
		copy(s.stk[sz-idx-1:], s.stk[sz-idx:])
		s.stk = s.stk[:sz-1]
	}
	return so, nil
}

// NipN removes the Nth object on the stack.
func (s *stack) NipN(idx int) error {
	_, err := s.nipN(idx)
	return err
}

// Tuck copies the item at the top of the stack and inserts it before the
// second to top item.
func (s *stack) Tuck() error {
	so2, err := s.PopByteArray()
	if err != nil {
		return err
	}
	so1, err := s.PopByteArray()
	if err != nil {
		return err
	}
	s.PushByteArray(so2)
	s.PushByteArray(so1)
	s.PushByteArray(so2)
	return nil
}

// DropN removes the top N items from the stack.
func (s *stack) DropN(n int) error {
	if n < 1 {
		return scriptError(ErrInvalidStackOperation, "attempt to drop fewer than one item from stack")
	}
	for ; n > 0; n-- {
		if _, err := s.PopByteArray(); err != nil {
			return err
		}
	}
	return nil
}

// DupN duplicates the top N items on the stack.
func (s *stack) DupN(n int) error {
	if n < 1 {
		return scriptError(ErrInvalidStackOperation, "attempt to dup fewer than one item from stack")
	}
	for i := n; i > 0; i-- {
		so, err := s.PeekByteArray(n - 1)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

// RotN rotates the top 3N items on the stack to the left N times.
func (s *stack) RotN(n int) error {
	if n < 1 {
		return scriptError(ErrInvalidStackOperation, "attempt to rotate fewer than one item from stack")
	}
	entry := 3*n - 1
	for i := n; i > 0; i-- {
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

// SwapN swaps the top N items on the stack with those below them.
func (s *stack) SwapN(n int) error {
	if n < 1 {
		return scriptError(ErrInvalidStackOperation, "attempt to swap fewer than one item from stack")
	}
	entry := 2*n - 1
	for i := n; i > 0; i-- {
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

// OverN copies N items N items back to the top of the stack.
func (s *stack) OverN(n int) error {
	if n < 1 {
		return scriptError(ErrInvalidStackOperation, "attempt to perform OverN on fewer than one item on stack")
	}
	entry := 2*n - 1
	for ; n > 0; n-- {
		so, err := s.PeekByteArray(entry)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

// PickN copies the item N items back in the stack to the top.
func (s *stack) PickN(n int) error {
	so, err := s.PeekByteArray(n)
	if err != nil {
		return err
	}
	s.PushByteArray(so)
	return nil
}

// RollN moves the item N items back in the stack to the top.
func (s *stack) RollN(n int) error {
	so, err := s.nipN(n)
	if err != nil {
		return err
	}
	s.PushByteArray(so)
	return nil
}
