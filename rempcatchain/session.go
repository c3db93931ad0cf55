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

package rempcatchain

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ever-remp/remp-core/internal/queue"
	"github.com/ever-remp/remp-core/messagecache"
	"github.com/ever-remp/remp-core/payload"
	"github.com/ever-remp/remp-core/rempstore"
)

// Pending is one record waiting to be drained into the next outbound
// round; it always leaves the session with status New, per the
// ProcessBlocks contract below.
type Pending struct {
	Record *messagecache.Record
}

// Inbound is one (record, status) pair unpacked from a peer's payload
// and handed to the higher-level poller. Status is always New: non-New
// statuses are dropped in PreprocessBlock before reaching this channel.
type Inbound struct {
	Record *messagecache.Record
	Status messagecache.Status
}

// Session is one CatchainSession instance: identity, the two unbounded
// SPSC queues, and the atomically-swappable catchain handle. It
// registers itself as its own catchain Listener.
type Session struct {
	QueueID     common.Hash
	NodeListID  common.Hash
	Shard       common.Hash
	CatchainSeq uint32
	LocalIdx    int
	LocalKeyID  common.Hash
	Nodes       []Node

	masterCC atomic.Uint32

	pending *queue.Unbounded[Pending]
	inbound *queue.Unbounded[Inbound]

	handle atomic.Pointer[CatchainHandle]

	engine         Engine
	overlayManager OverlayManager
	factory        CatchainFactory
	opts           CatchainOptions

	log log.Logger
}

// New builds a Session from: the catchain sequence number, the
// master-cycle number, the current and next validator sets, the local
// public key and the target shard. Returns ErrLocalIdentityNotFound if
// localKeyID is absent from the combined node list, a fatal
// construction error.
func New(engine Engine, factory CatchainFactory, overlayManager OverlayManager, opts CatchainOptions, catchainSeq, masterCC uint32, current, next []Node, localKeyID common.Hash, shard common.Hash) (*Session, error) {
	nodes := BuildNodeList(current, next)

	localIdx, ok := LocalIndex(nodes, localKeyID)
	if !ok {
		return nil, ErrLocalIdentityNotFound
	}

	queueID := ComputeQueueID(catchainSeq, current, next)
	nodeListID := ComputeNodeListID(shard, catchainSeq, nodes)

	s := &Session{
		QueueID:        queueID,
		NodeListID:     nodeListID,
		Shard:          shard,
		CatchainSeq:    catchainSeq,
		LocalIdx:       localIdx,
		LocalKeyID:     localKeyID,
		Nodes:          nodes,
		pending:        queue.New[Pending](),
		inbound:        queue.New[Inbound](),
		engine:         engine,
		overlayManager: overlayManager,
		factory:        factory,
		opts:           opts,
		log:            log.New("queue_id", queueID.Hex()),
	}
	s.masterCC.Store(masterCC)
	return s, nil
}

// IsSameCatchain reports equality on queue_id, node-list length,
// local_idx, local_key_id, node_list_id, master_cc_seqno and shard.
func (s *Session) IsSameCatchain(other *Session) bool {
	if other == nil {
		return false
	}
	return s.QueueID == other.QueueID &&
		len(s.Nodes) == len(other.Nodes) &&
		s.LocalIdx == other.LocalIdx &&
		s.LocalKeyID == other.LocalKeyID &&
		s.NodeListID == other.NodeListID &&
		s.masterCC.Load() == other.masterCC.Load() &&
		s.Shard == other.Shard
}

// SubmitOutbound enqueues record for the next outbound round. Never
// blocks: the pending queue is unbounded single-producer/single-consumer
// per message source.
func (s *Session) SubmitOutbound(record *messagecache.Record) {
	s.pending.Push(Pending{Record: record})
}

// PollInbound returns the next record delivered by a peer, if any,
// without blocking.
func (s *Session) PollInbound() (Inbound, bool) {
	return s.inbound.TryPop()
}

// Start registers the node list with the engine, constructs the
// underlying catchain instance with the overlay manager given to New and
// this session as its listener, and stores the returned handle. If the
// factory fails, the validator list is removed again.
func (s *Session) Start() error {
	localKey, ok := s.engine.SetValidatorList(s.NodeListID, s.Nodes)
	if !ok {
		return ErrEngineRefusedValidatorList
	}

	var listener Listener = s
	h, err := s.factory.Create(s.opts, s.QueueID, s.Nodes, localKey, s.engine.DBRootDir(), s.overlayManager, listener)
	if err != nil {
		s.engine.RemoveValidatorList(s.NodeListID)
		return err
	}
	s.handle.Store(&h)
	s.log.Info("rempcatchain: session started")
	return nil
}

// Stop tolerates never having started (trace only), asks the handle to
// stop if present, then unregisters the validator list. The engine's
// RemoveValidatorList reports no error, so Stop returns nothing and no
// engine failure is logged or surfaced.
func (s *Session) Stop() {
	if h := s.handle.Load(); h != nil {
		(*h).Stop(true)
		s.handle.Store(nil)
	} else {
		s.log.Trace("rempcatchain: stop called on session that never started")
	}
	s.engine.RemoveValidatorList(s.NodeListID)
	s.log.Info("rempcatchain: session stopped")
}

// PreprocessBlock decodes block's payload as a versioned Commit-action
// list; for each action it decodes the carried (record, status) pair
// and pushes it to the inbound queue only if the decoded status is
// exactly New. Non-New statuses from peers are untrusted and dropped
// with a log line; decode errors are logged and skipped.
func (s *Session) PreprocessBlock(block Block) {
	actions, err := decodeCommitActions(block.Payload())
	if err != nil {
		s.log.Error("rempcatchain: failed to decode block payload", "err", err)
		return
	}

	currentCC := s.masterCC.Load()
	for _, action := range actions {
		record, status, err := payload.Decode(action, currentCC)
		if err != nil {
			s.log.Error("rempcatchain: failed to decode commit action", "err", err)
			continue
		}
		if status.Kind != messagecache.KindNew {
			s.log.Trace("rempcatchain: dropping non-New status from peer", "status", status)
			continue
		}
		s.inbound.Push(Inbound{Record: record, Status: status})
	}
}

// ProcessBlocks ignores the blocks it's handed; it exists only to
// trigger draining the pending outbound queue. Every drained record is
// encoded with status New, wrapped as Commit actions and handed to the
// underlying catchain as this round's processed block. If the handle is
// absent, the batch is logged and dropped.
func (s *Session) ProcessBlocks(_ []Block) {
	drained := s.pending.DrainAll()
	if len(drained) == 0 {
		return
	}

	h := s.handle.Load()
	if h == nil {
		s.log.Error("rempcatchain: no catchain handle, dropping outbound batch", "count", len(drained))
		return
	}

	actions := make([][]byte, 0, len(drained))
	for _, p := range drained {
		encoded, err := payload.Encode(p.Record, messagecache.New())
		if err != nil {
			s.log.Error("rempcatchain: failed to encode outbound record", "err", err)
			continue
		}
		actions = append(actions, encoded)
	}

	envelope, err := encodeCommitActions(actions)
	if err != nil {
		s.log.Error("rempcatchain: failed to encode block envelope", "err", err)
		return
	}
	(*h).ProcessedBlock(envelope, false, false)
}

// Started, FinishedProcessing, ProcessBroadcast, ProcessQuery and
// SetTime are observational: accepted and ignored, trace only.
func (s *Session) Started() { s.log.Trace("rempcatchain: started callback") }

func (s *Session) FinishedProcessing(Block) { s.log.Trace("rempcatchain: finished processing callback") }

func (s *Session) ProcessBroadcast(srcID common.Hash, _ []byte) {
	s.log.Trace("rempcatchain: process broadcast callback", "src", srcID.Hex())
}

func (s *Session) ProcessQuery(srcID common.Hash, _ []byte) []byte {
	s.log.Trace("rempcatchain: process query callback", "src", srcID.Hex())
	return nil
}

func (s *Session) SetTime(ts int64) { s.log.Trace("rempcatchain: set time callback", "ts", ts) }

// SetMasterCC updates the master-cycle number new inbound records are
// stamped with, as the owning higher-level consumer advances it.
func (s *Session) SetMasterCC(cc uint32) { s.masterCC.Store(cc) }

// QueueIdentity and SameIdentity let *Session satisfy
// rempstore.CatchainSession, so the store can key its registry on
// queue_id and compare identities without importing this package.
func (s *Session) QueueIdentity() common.Hash { return s.QueueID }

func (s *Session) SameIdentity(other rempstore.CatchainSession) bool {
	o, ok := other.(*Session)
	if !ok {
		return false
	}
	return s.IsSameCatchain(o)
}
