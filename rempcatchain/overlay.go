// Copyright 2024 The REMP Authors
// This file is part of the remp library.
//
// The remp library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The remp library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the remp library. If not, see <http://www.gnu.org/licenses/>.

// Package rempcatchain wraps one catchain instance per (validator set,
// shard) pair: it builds the node list and queue_id, drives the
// Start/Stop sequence against an Engine/PrivateOverlay collaborator
// pair, and serves as that instance's Listener, translating between
// catchain block payloads and messagecache.Record/Status values.
package rempcatchain

import (
	"github.com/ethereum/go-ethereum/common"
)

// Node is a single entry of a validator node list: its public key
// identity and the transport-level identifier used for dedup.
type Node struct {
	NodeIDShort   common.Hash
	TransportID   common.Hash
	AdnlID        common.Hash
	PublicKeyHash common.Hash
}

// Block is an opaque catchain block handed to the listener; Payload is
// the catchain-level envelope bytes (ts, state, actions) described at
// the wire-format boundary.
type Block interface {
	Payload() []byte
}

// CatchainHandle is the running catchain instance returned by a
// CatchainFactory. Stop and ProcessedBlock are the only operations the
// session needs from it.
type CatchainHandle interface {
	Stop(now bool)
	ProcessedBlock(payload []byte, mayBeSkipped, forceBlock bool)
}

// Listener is the callback contract the underlying catchain invokes,
// from its own thread pool, on every participating session.
type Listener interface {
	PreprocessBlock(block Block)
	ProcessBlocks(blocks []Block)
	Started()
	FinishedProcessing(block Block)
	ProcessBroadcast(srcID common.Hash, data []byte)
	ProcessQuery(srcID common.Hash, data []byte) []byte
	SetTime(ts int64)
}

// Engine is the collaborator contract for validator-list membership,
// the validator network and the database root; out of scope per the
// overall design, consumed only at this interface. The status-transition
// predicate is not part of it: that is messagecache.ValidTransition.
type Engine interface {
	SetValidatorList(nodeListID common.Hash, nodes []Node) (localKey common.Hash, ok bool)
	RemoveValidatorList(nodeListID common.Hash)
	ValidatorNetwork() PrivateOverlay
	DBRootDir() string
}

// PrivateOverlay is the transport collaborator a session's catchain
// instance is created against.
type PrivateOverlay interface {
	CreateCatchainClient(nodeListID, overlayShortID common.Hash, nodes []Node, listener Listener) (CatchainHandle, error)
	StopCatchainClient(overlayShortID common.Hash)
}

// CatchainOptions carries the tuning knobs passed opaquely through to
// CatchainFactory.Create; the core never inspects its fields.
type CatchainOptions struct {
	DBSuffix         string
	AllowUnsafeResync bool
}

// CatchainFactory constructs the underlying BFT broadcast primitive.
type CatchainFactory interface {
	Create(opts CatchainOptions, queueID common.Hash, nodes []Node, localKey common.Hash, dbRoot string, overlayManager OverlayManager, listener Listener) (CatchainHandle, error)
}

// OverlayManager is the thin, non-owning adapter that hands a
// session's catchain instance a start/stop hook into the private
// overlay without the session holding a strong reference back to the
// engine. Accessor is a closure rather than a weak pointer: this
// module's declared Go floor predates the weak-pointer stdlib package,
// and a closure capturing an *Engine by value gives the same "upgrade
// on every call, fail loudly if gone" semantics without pulling in an
// experimental API.
type OverlayManager struct {
	accessor func() (PrivateOverlay, bool)
}

// NewOverlayManager builds an OverlayManager whose accessor is called
// fresh on every StartOverlay/StopOverlay, mirroring the upgrade of a
// weak reference: if accessor's second return is false the engine's
// overlay has gone away.
func NewOverlayManager(accessor func() (PrivateOverlay, bool)) OverlayManager {
	return OverlayManager{accessor: accessor}
}

// StartOverlay upgrades the backing reference and creates a catchain
// client through it.
func (m OverlayManager) StartOverlay(nodeListID, overlayShortID common.Hash, nodes []Node, listener Listener) (CatchainHandle, error) {
	overlay, ok := m.accessor()
	if !ok {
		return nil, errOverlayGone
	}
	return overlay.CreateCatchainClient(nodeListID, overlayShortID, nodes, listener)
}

// StopOverlay upgrades the backing reference and stops the named
// catchain client. A vanished engine is not an error here: there is
// nothing left to stop.
func (m OverlayManager) StopOverlay(overlayShortID common.Hash) {
	overlay, ok := m.accessor()
	if !ok {
		return
	}
	overlay.StopCatchainClient(overlayShortID)
}
