// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2016-2020 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"sync"

	"github.com/bchcore/bchd/chainhash"
	"github.com/dchest/siphash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// sigCacheEntry holds the parsed signature and public key for a verified
// triple so a cache hit never needs to re-run elliptic curve math, per
// spec.md §4.C.
type sigCacheEntry struct {
	sig    *ecdsa.Signature
	pubKey *secp256k1.PublicKey
}

// SigCache memoizes ECDSA signature verification results keyed by a
// siphash digest over (sigHash || sig || pubkey). It is safe for concurrent
// use by the parallel input-verification path described in spec.md §5.
type SigCache struct {
	sync.RWMutex
	validSigs  map[uint64]sigCacheEntry
	maxEntries uint
	k0, k1     uint64
}

// NewSigCache returns an empty signature cache that holds at most
// maxEntries triples before evicting to make room for new ones.
func NewSigCache(maxEntries uint) *SigCache {
	return &SigCache{
		validSigs:  make(map[uint64]sigCacheEntry, maxEntries),
		maxEntries: maxEntries,
		k0:         0x4f1bc3ac4d1e8a27,
		k1:         0x6a09e667f3bcc908,
	}
}

func (s *SigCache) key(sigHash chainhash.Hash, sigBytes, pubKeyBytes []byte) uint64 {
	buf := make([]byte, 0, chainhash.HashSize+len(sigBytes)+len(pubKeyBytes))
	buf = append(buf, sigHash[:]...)
	buf = append(buf, sigBytes...)
	buf = append(buf, pubKeyBytes...)
	return siphash.Hash(s.k0, s.k1, buf)
}

// Exists returns whether a valid signature/pubkey/hash triple already
// resides in the cache.
func (s *SigCache) Exists(sigHash chainhash.Hash, sigBytes, pubKeyBytes []byte) bool {
	s.RLock()
	defer s.RUnlock()

	_, ok := s.validSigs[s.key(sigHash, sigBytes, pubKeyBytes)]
	return ok
}

// Add adds an entry for a valid signature/pubkey/hash triple to the cache,
// evicting an arbitrary entry first if the cache is at capacity.
func (s *SigCache) Add(sigHash chainhash.Hash, sig *ecdsa.Signature, pubKey *secp256k1.PublicKey, sigBytes, pubKeyBytes []byte) {
	if s == nil || s.maxEntries == 0 {
		return
	}

	s.Lock()
	defer s.Unlock()

	if uint(len(s.validSigs)) >= s.maxEntries {
		for k := range s.validSigs {
			delete(s.validSigs, k)
			break
		}
	}

	s.validSigs[s.key(sigHash, sigBytes, pubKeyBytes)] = sigCacheEntry{
		sig:    sig,
		pubKey: pubKey,
	}
}
