// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/bchcore/bchd/chaincfg"

// deploymentState generalizes the teacher's per-deployment threshold state
// machine (which decides activation from stake-ticket voting, not
// applicable here) down to the pure "parent MTP crossed a fixed activation
// time" predicate spec.md §4.E's "Deployment / activation state" describes.
// Global mutable state is forbidden for this per spec.md §9's design notes,
// so activation is always recomputed from the parent node rather than
// cached on the chain.
type deploymentState struct {
	// magneticAnomalyActive is true iff parent.MTP >= params'
	// MagneticAnomalyActivationTime.
	magneticAnomalyActive bool
}

// calcDeploymentState derives the active feature set for a block being
// considered as a child of parent, per spec.md §4.E: "feature
// magneticAnomaly is active iff parent.MTP >= activationTime". A nil
// parent (i.e. the block under consideration is the genesis block) is
// never past any activation time.
func calcDeploymentState(parent *blockNode, params *chaincfg.Params) deploymentState {
	if parent == nil {
		return deploymentState{}
	}
	return deploymentState{
		magneticAnomalyActive: parent.CalcPastMedianTime().Unix() >= params.MagneticAnomalyActivationTime,
	}
}
