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

package messagecache

import "github.com/ethereum/go-ethereum/common"

// EventKind classifies a CacheEvent. Telemetry sinks live outside this
// package; this is the concrete hand-off point one subscribes to
// instead of scraping logs.
type EventKind uint8

const (
	// EventInvariantViolation fires when a message_id is found with a
	// partial row across bodies/shards/statuses.
	EventInvariantViolation EventKind = iota
	// EventDuplicateDetected fires when UpdateStatus rewrites an
	// Accepted update into Duplicate.
	EventDuplicateDetected
	// EventExpired fires once per record returned by GetOldMessages that
	// has a status; a returned record with no status is reported as
	// EventInvariantViolation instead.
	EventExpired
	// EventDowngraded fires once per record downgraded by
	// DowngradeAcceptedByCollator.
	EventDowngraded
)

// CacheEvent is broadcast over MessageCache.Events for every
// noteworthy state change the cache makes on its own (as opposed to a
// caller-driven UpdateStatus call succeeding normally).
type CacheEvent struct {
	Kind      EventKind
	MessageID common.Hash
	Detail    string
}
