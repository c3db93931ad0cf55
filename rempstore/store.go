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

// Package rempstore is the ref-counted registry that multiplexes many
// logical attach/detach callers onto one CatchainSession per queue_id,
// and drives its Created/Starting/Active/Stopping lifecycle. The
// registry's mutex is held only around state transitions; the actual
// Start/Stop I/O against a session runs outside the lock so one queue's
// slow start never blocks another's.
package rempstore

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// SessionStatus is the four-state lifecycle of one registry entry.
type SessionStatus uint8

const (
	StatusCreated SessionStatus = iota
	StatusStarting
	StatusActive
	StatusStopping
)

func (s SessionStatus) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusStarting:
		return "Starting"
	case StatusActive:
		return "Active"
	case StatusStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// CatchainSession is the subset of rempcatchain.Session the store
// needs to drive Start/Stop; kept as an interface here so the store
// package doesn't import rempcatchain and can be tested without it.
type CatchainSession interface {
	QueueIdentity() common.Hash
	SameIdentity(other CatchainSession) bool
	Start() error
	Stop()
}

type entry struct {
	session  CatchainSession
	status   SessionStatus
	refcount int
}

// Store is the CatchainStore: a queue_id-keyed registry guarded by one
// mutex, never held across a session's Start/Stop I/O.
type Store struct {
	mu      sync.Mutex
	entries map[common.Hash]*entry

	log log.Logger

	// Events reports lifecycle transitions (created/starting/active/
	// stopping) for telemetry, an out-of-scope collaborator consumed only
	// at this hand-off point. Removing an entry sends no event.
	Events event.Feed

	activeGauge metrics.Gauge
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithLogger attaches a logger other than log.Root().
func WithLogger(l log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithMetricsRegistry registers the store's gauges against r instead of
// metrics.DefaultRegistry.
func WithMetricsRegistry(r metrics.Registry) Option {
	return func(s *Store) {
		s.activeGauge = metrics.NewRegisteredGauge("remp/rempstore/active_sessions", r)
	}
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[common.Hash]*entry),
		log:     log.Root(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.activeGauge == nil {
		s.activeGauge = metrics.NewRegisteredGauge("remp/rempstore/active_sessions", metrics.DefaultRegistry)
	}
	return s
}

// StoreEvent classifies a lifecycle transition broadcast on Events.
type StoreEvent struct {
	QueueID common.Hash
	Status  SessionStatus
}

// Create registers session, or increments the refcount of an existing
// entry with the same queue_id if session.SameIdentity reports it's the
// same logical catchain. A different session colliding on the same
// queue_id is an invariant violation and fails.
func (s *Store) Create(session CatchainSession) (refcount int, err error) {
	id := session.QueueIdentity()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		if !e.session.SameIdentity(session) {
			return 0, ErrQueueIDCollision
		}
		e.refcount++
		return e.refcount, nil
	}

	s.entries[id] = &entry{session: session, status: StatusCreated, refcount: 1}
	s.log.Info("rempstore: session created", "queue_id", id.Hex())
	s.Events.Send(StoreEvent{QueueID: id, Status: StatusCreated})
	return 1, nil
}

// Start transitions a Created entry through Starting to Active,
// performing the session's actual Start outside the store's lock. Start
// on an already-Active entry succeeds immediately (idempotent); Start
// while Starting or Stopping fails.
func (s *Store) Start(queueID common.Hash) error {
	s.mu.Lock()
	e, ok := s.entries[queueID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}

	switch e.status {
	case StatusActive:
		s.mu.Unlock()
		return nil
	case StatusStarting, StatusStopping:
		s.mu.Unlock()
		return ErrBusy
	}

	e.status = StatusStarting
	session := e.session
	s.mu.Unlock()
	s.Events.Send(StoreEvent{QueueID: queueID, Status: StatusStarting})

	startErr := session.Start()

	s.mu.Lock()
	defer s.mu.Unlock()

	// The entry may have disappeared (a concurrent Stop ran the
	// refcount to zero and removed it) while Start's I/O was in
	// flight outside the lock. Surfaced as ErrVanishedDuringStart
	// rather than swallowed, so a caller can decide whether that's
	// acceptable for its own retry/cleanup policy.
	e, ok = s.entries[queueID]
	if !ok {
		if startErr != nil {
			return startErr
		}
		return ErrVanishedDuringStart
	}

	if startErr != nil {
		e.status = StatusCreated
		return startErr
	}

	e.status = StatusActive
	s.activeGauge.Inc(1)
	s.log.Info("rempstore: session active", "queue_id", queueID.Hex())
	s.Events.Send(StoreEvent{QueueID: queueID, Status: StatusActive})
	return nil
}

// Stop requires the entry to be Active; it decrements the refcount and,
// only once it reaches zero, flips to Stopping, runs the session's
// actual Stop outside the lock, then removes the entry. While the
// refcount stays positive the entry remains Active.
func (s *Store) Stop(queueID common.Hash) error {
	s.mu.Lock()
	e, ok := s.entries[queueID]
	if !ok {
		s.mu.Unlock()
		return ErrAlreadyRemoved
	}
	if e.status != StatusActive {
		s.mu.Unlock()
		return ErrNotActive
	}

	e.refcount--
	if e.refcount > 0 {
		s.mu.Unlock()
		return nil
	}

	e.status = StatusStopping
	session := e.session
	s.mu.Unlock()
	s.Events.Send(StoreEvent{QueueID: queueID, Status: StatusStopping})

	session.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, queueID)
	s.activeGauge.Dec(1)
	s.log.Info("rempstore: session removed", "queue_id", queueID.Hex())
	return nil
}

// GetSession peeks the registered session for queueID, if any.
func (s *Store) GetSession(queueID common.Hash) (CatchainSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[queueID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// GetStatus peeks the lifecycle state for queueID, if present.
func (s *Store) GetStatus(queueID common.Hash) (SessionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[queueID]
	if !ok {
		return 0, false
	}
	return e.status, true
}
