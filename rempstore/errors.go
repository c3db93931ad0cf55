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

package rempstore

import "errors"

// ErrNotFound is returned by Start for an unknown queue_id. GetSession
// and GetStatus report an unknown queue_id with a false second result.
var ErrNotFound = errors.New("rempstore: queue_id not found")

// ErrQueueIDCollision is returned by Create when a different session
// identity collides on an already-registered queue_id.
var ErrQueueIDCollision = errors.New("rempstore: queue_id collision between distinct sessions")

// ErrBusy is returned by Start when the entry is mid-transition
// (Starting or Stopping) for another caller.
var ErrBusy = errors.New("rempstore: entry busy (starting or stopping)")

// ErrNotActive is returned by Stop when the entry isn't Active.
var ErrNotActive = errors.New("rempstore: entry is not active")

// ErrAlreadyRemoved is returned by Stop when the queue_id is no longer
// registered at all.
var ErrAlreadyRemoved = errors.New("rempstore: queue_id already removed")

// ErrVanishedDuringStart is returned by Start when the entry was
// removed by a concurrent Stop while the session's own Start was
// running outside the lock, and that Start itself succeeded. Surfacing
// it lets a caller notice that the session it asked to start no longer
// has anywhere to record as Active, rather than losing track of it
// silently.
var ErrVanishedDuringStart = errors.New("rempstore: entry vanished while starting")
