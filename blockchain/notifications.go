// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/bchcore/bchd/wire"

// NotificationType identifies the kind of chain state transition a
// Notification carries, per spec.md §6's event list.
type NotificationType int

// Notification types.
const (
	// NTBlockConnected indicates a new block has been connected to the main
	// chain.
	NTBlockConnected NotificationType = iota

	// NTBlockDisconnected indicates a block has been disconnected from the
	// main chain, e.g. as part of a reorganization.
	NTBlockDisconnected

	// NTChainReorgStarted indicates a reorg has begun rewinding the chain to
	// a common ancestor. bchd's teacher lineage does not emit this, but
	// spec.md §6 calls for a "reset(tip)" event marking a branch switch; it
	// is emitted once the reorg's disconnect phase has finished.
	NTChainReorgStarted

	// NTChainTipChanged indicates the current best chain tip has changed,
	// corresponding to spec.md §6's "tip(entry)".
	NTChainTipChanged
)

func (n NotificationType) String() string {
	switch n {
	case NTBlockConnected:
		return "NTBlockConnected"
	case NTBlockDisconnected:
		return "NTBlockDisconnected"
	case NTChainReorgStarted:
		return "NTChainReorgStarted"
	case NTChainTipChanged:
		return "NTChainTipChanged"
	default:
		return "Unknown Notification Type"
	}
}

// BlockConnectedData is the data attached to a NTBlockConnected
// notification, mirroring spec.md §6's connect(entry, block, view).
type BlockConnectedData struct {
	Block *wire.MsgBlock
	View  *UtxoViewpoint
}

// BlockDisconnectedData is the data attached to a NTBlockDisconnected
// notification, mirroring spec.md §6's disconnect(entry, block, view).
type BlockDisconnectedData struct {
	Block *wire.MsgBlock
	View  *UtxoViewpoint
}

// Notification defines an event delivered synchronously by the chain as it
// commits a state transition.  Per spec.md §5's ordering guarantees,
// successive NTBlockConnected deliveries occur in strict height order, and
// a reorganization delivers every NTBlockDisconnected (in reverse height
// order) before the first NTBlockConnected of the new branch.
type Notification struct {
	Type NotificationType
	Data interface{}
}

// NotificationCallback is the listener signature external collaborators
// (indexers, the mempool, a miner watching for a new tip) register with the
// chain.  Per spec.md §6, delivery is synchronous with respect to state
// transitions; a callback MUST NOT re-enter the chain lock (e.g. by calling
// back into BlockChain methods that acquire it) from within its own
// invocation.
type NotificationCallback func(*Notification)

// subscribeNotifications registers callback on b, returning nothing to
// unsubscribe by design: the core never needs to revoke a listener within
// the scope of this spec, and a handle-based unsubscribe API is left to
// whichever external package owns listener lifetime.
func (b *BlockChain) subscribeNotifications(callback NotificationCallback) {
	b.notificationsLock.Lock()
	defer b.notificationsLock.Unlock()
	b.notifications = append(b.notifications, callback)
}

// Subscribe registers a listener to be notified of chain state transitions,
// per spec.md §6.
func (b *BlockChain) Subscribe(callback NotificationCallback) {
	b.subscribeNotifications(callback)
}

// sendNotification delivers a notification to every registered listener,
// in registration order, synchronously on the calling goroutine.
func (b *BlockChain) sendNotification(typ NotificationType, data interface{}) {
	b.notificationsLock.RLock()
	listeners := make([]NotificationCallback, len(b.notifications))
	copy(listeners, b.notifications)
	b.notificationsLock.RUnlock()

	n := &Notification{Type: typ, Data: data}
	for _, callback := range listeners {
		callback(n)
	}
}
