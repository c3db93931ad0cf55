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

import (
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

const defaultBodyCacheBytes = 32 * 1024 * 1024

// meta is everything about a Record except its body: small enough to
// sit comfortably in a plain Go map, unlike the body bytes themselves.
type meta struct {
	SourceKey     common.Hash
	SourceIdx     uint32
	Timestamp     int64
	MasterCCSeqno uint32
}

// MessageCache is the concurrent store keyed by message_id: three
// same-keyed mappings (bodies, shards, statuses) guarded by a single
// lock, enforcing the status transition table and the duplicate and
// expiry rules.
//
// Message bodies are held off the Go heap in a fastcache.Cache keyed by
// message_id, the same rationale a transaction-pool blob store would
// use: large externally-supplied byte strings shouldn't live in a
// GC-scanned map. meta, shards and statuses stay as ordinary maps since
// they need full iteration (ForMessagesInShard, All) and per-field
// mutation that a byte-cache can't offer.
type MessageCache struct {
	mu       sync.RWMutex
	meta     map[common.Hash]meta
	bodies   *fastcache.Cache
	shards   map[common.Hash]ShardIdent
	statuses map[common.Hash]Status

	// Events broadcasts CacheEvent values for duplicate detection,
	// invariant violations, expiry and downgrade sweeps. Telemetry
	// sinks live outside this package; this feed is the concrete hook
	// they subscribe to.
	Events event.Feed

	log              log.Logger
	sizeGauge        metrics.Gauge
	duplicateCounter metrics.Counter
	expiredCounter   metrics.Counter
}

// Option configures a MessageCache at construction time.
type Option func(*MessageCache)

// WithBodyCacheBytes overrides the default 32MiB fastcache body store
// size.
func WithBodyCacheBytes(n int) Option {
	return func(c *MessageCache) {
		c.bodies = fastcache.New(n)
	}
}

// WithLogger attaches a logger other than log.Root().
func WithLogger(l log.Logger) Option {
	return func(c *MessageCache) { c.log = l }
}

// WithMetricsRegistry registers the cache's gauges/counters against r
// instead of metrics.DefaultRegistry.
func WithMetricsRegistry(r metrics.Registry) Option {
	return func(c *MessageCache) {
		c.sizeGauge = metrics.NewRegisteredGauge("remp/messagecache/size", r)
		c.duplicateCounter = metrics.NewRegisteredCounter("remp/messagecache/duplicates", r)
		c.expiredCounter = metrics.NewRegisteredCounter("remp/messagecache/expired", r)
	}
}

// New constructs an empty MessageCache.
func New(opts ...Option) *MessageCache {
	c := &MessageCache{
		meta:     make(map[common.Hash]meta),
		bodies:   fastcache.New(defaultBodyCacheBytes),
		shards:   make(map[common.Hash]ShardIdent),
		statuses: make(map[common.Hash]Status),
		log:      log.Root(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sizeGauge == nil {
		c.sizeGauge = metrics.NewRegisteredGauge("remp/messagecache/size", metrics.DefaultRegistry)
		c.duplicateCounter = metrics.NewRegisteredCounter("remp/messagecache/duplicates", metrics.DefaultRegistry)
		c.expiredCounter = metrics.NewRegisteredCounter("remp/messagecache/expired", metrics.DefaultRegistry)
	}
	return c
}

func (c *MessageCache) putBody(id common.Hash, body []byte) {
	c.bodies.Set(id[:], body)
}

func (c *MessageCache) getBody(id common.Hash) ([]byte, bool) {
	if !c.bodies.Has(id[:]) {
		return nil, false
	}
	return c.bodies.Get(nil, id[:]), true
}

func (c *MessageCache) toRecord(id common.Hash, m meta) (*Record, bool) {
	body, ok := c.getBody(id)
	if !ok {
		return nil, false
	}
	return &Record{
		MessageID:     id,
		Body:          body,
		SourceKey:     m.SourceKey,
		SourceIdx:     m.SourceIdx,
		Timestamp:     m.Timestamp,
		MasterCCSeqno: m.MasterCCSeqno,
	}, true
}

// Insert adds record under shard with status New, unless message_id is
// already present, in which case it is left untouched. size is the
// cache's total message count after the call.
func (c *MessageCache) Insert(record *Record, shard ShardIdent) (inserted bool, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.meta[record.MessageID]; exists {
		return false, len(c.meta)
	}

	c.meta[record.MessageID] = meta{
		SourceKey:     record.SourceKey,
		SourceIdx:     record.SourceIdx,
		Timestamp:     record.Timestamp,
		MasterCCSeqno: record.MasterCCSeqno,
	}
	c.putBody(record.MessageID, record.Body)
	c.shards[record.MessageID] = shard
	c.statuses[record.MessageID] = New()

	c.sizeGauge.Update(int64(len(c.meta)))
	return true, len(c.meta)
}

// GetMessage returns the record for id, if present.
func (c *MessageCache) GetMessage(id common.Hash) (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.meta[id]
	if !ok {
		return nil, false
	}
	return c.toRecord(id, m)
}

// GetStatus returns the status for id, if present.
func (c *MessageCache) GetStatus(id common.Hash) (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.statuses[id]
	return s, ok
}

// GetWithStatus returns both the record and status for id. If exactly
// one of the two is present the key-set invariant has been violated:
// the violation is logged and reported via Events, and GetWithStatus
// returns false rather than a partial result.
func (c *MessageCache) GetWithStatus(id common.Hash) (*Record, Status, bool) {
	c.mu.RLock()
	m, hasMeta := c.meta[id]
	s, hasStatus := c.statuses[id]
	c.mu.RUnlock()

	switch {
	case hasMeta && hasStatus:
		rec, ok := c.toRecord(id, m)
		if !ok {
			c.reportInvariantViolation(id, "body missing for message with metadata and status")
			return nil, Status{}, false
		}
		return rec, s, true
	case !hasMeta && !hasStatus:
		return nil, Status{}, false
	default:
		c.reportInvariantViolation(id, "message present in exactly one of meta/status maps")
		return nil, Status{}, false
	}
}

func (c *MessageCache) reportInvariantViolation(id common.Hash, detail string) {
	c.log.Error("messagecache: invariant violation", "message_id", id.Hex(), "detail", detail)
	c.Events.Send(CacheEvent{Kind: EventInvariantViolation, MessageID: id, Detail: detail})
}

// UpdateStatus applies the duplicate-detection shortcut and the status
// transition table.
//
//   - id absent: ErrNotFound.
//   - current is Accepted{Collator, B_old} and new is
//     Accepted{Shardchain|Masterchain, B_new} with B_new != B_old: the
//     stored status becomes Duplicate{B_new}; that value is returned.
//   - current is already Duplicate{..} and new is any Accepted{..}: the
//     update is silently dropped (nil, nil).
//   - otherwise new must be a legal transition per ValidTransition, or
//     ErrIllegalTransition is returned and nothing changes.
func (c *MessageCache) UpdateStatus(id common.Hash, newStatus Status) (*Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.statuses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.Hex())
	}

	if newStatus.Kind == KindAccepted {
		if current.Kind == KindAccepted && current.Level == LevelCollator {
			if (newStatus.Level == LevelShardchain || newStatus.Level == LevelMasterchain) && newStatus.BlockID != current.BlockID {
				dup := Duplicate(newStatus.BlockID)
				c.statuses[id] = dup
				c.log.Trace("messagecache: message is duplicate", "message_id", id.Hex(), "status", newStatus)
				c.duplicateCounter.Inc(1)
				c.Events.Send(CacheEvent{Kind: EventDuplicateDetected, MessageID: id, Detail: dup.String()})
				return &dup, nil
			}
		} else if current.Kind == KindDuplicate {
			return nil, nil
		}
	}

	if !ValidTransition(current, newStatus) {
		return nil, fmt.Errorf("%w: message %s: %s -> %s", ErrIllegalTransition, id.Hex(), current, newStatus)
	}

	c.log.Trace("messagecache: changing status", "message_id", id.Hex(), "from", current, "to", newStatus)
	c.statuses[id] = newStatus
	return &newStatus, nil
}

// Remove deletes id from all three mappings. Idempotent.
func (c *MessageCache) Remove(id common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.meta, id)
	c.bodies.Del(id[:])
	delete(c.shards, id)
	delete(c.statuses, id)
	c.sizeGauge.Update(int64(len(c.meta)))
}

// Count returns the total number of messages currently cached.
func (c *MessageCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.meta)
}

// ForMessagesInShard invokes visit for every record whose recorded
// shard equals shard. Rows with a partial entry are skipped and
// reported via reportInvariantViolation rather than passed to visit.
func (c *MessageCache) ForMessagesInShard(shard ShardIdent, visit func(id common.Hash, record *Record, status Status)) {
	type row struct {
		id     common.Hash
		rec    *Record
		status Status
	}
	var rows []row
	var missing []common.Hash
	var partial []common.Hash

	c.mu.RLock()
	for id, msgShard := range c.shards {
		if msgShard != shard {
			continue
		}
		m, hasMeta := c.meta[id]
		status, hasStatus := c.statuses[id]
		if !hasMeta || !hasStatus {
			partial = append(partial, id)
			continue
		}
		rec, ok := c.toRecord(id, m)
		if !ok {
			missing = append(missing, id)
			continue
		}
		rows = append(rows, row{id: id, rec: rec, status: status})
	}
	c.mu.RUnlock()

	for _, id := range partial {
		c.reportInvariantViolation(id, "meta or status missing while iterating shard")
	}
	for _, id := range missing {
		c.reportInvariantViolation(id, "body missing while iterating shard")
	}
	for _, r := range rows {
		visit(r.id, r.rec, r.status)
	}
}

// MessagesInShard collects every (record, status) pair in shard.
func (c *MessageCache) MessagesInShard(shard ShardIdent) []struct {
	Record *Record
	Status Status
} {
	var out []struct {
		Record *Record
		Status Status
	}
	c.ForMessagesInShard(shard, func(_ common.Hash, record *Record, status Status) {
		out = append(out, struct {
			Record *Record
			Status Status
		}{record, status})
	})
	return out
}

// CountInShard counts messages in shard without materializing them.
func (c *MessageCache) CountInShard(shard ShardIdent) int {
	n := 0
	c.ForMessagesInShard(shard, func(common.Hash, *Record, Status) { n++ })
	return n
}

// Downgraded pairs a record with the status it was downgraded to.
type Downgraded struct {
	Record *Record
	Status Status
}

// DowngradeAcceptedByCollator transitions every Accepted{Collator,
// block_id} record in shard to Ignored{Collator, block_id}, returning
// the batch actually downgraded. Used when a new collation round
// supersedes tentative collator acceptances.
func (c *MessageCache) DowngradeAcceptedByCollator(shard ShardIdent) []Downgraded {
	var candidates []Downgraded
	c.ForMessagesInShard(shard, func(id common.Hash, record *Record, status Status) {
		if status.Kind == KindAccepted && status.Level == LevelCollator {
			candidates = append(candidates, Downgraded{Record: record, Status: Ignored(LevelCollator, status.BlockID)})
		}
	})

	var downgraded []Downgraded
	for _, d := range candidates {
		if _, err := c.UpdateStatus(d.Record.MessageID, d.Status); err != nil {
			c.log.Error("messagecache: error downgrading message", "message_id", d.Record.MessageID.Hex(), "err", err)
			continue
		}
		downgraded = append(downgraded, d)
		c.Events.Send(CacheEvent{Kind: EventDowngraded, MessageID: d.Record.MessageID, Detail: d.Status.String()})
	}
	return downgraded
}

// Expired pairs a record eligible for removal with the terminal status
// it should be set to first, if any. A nil Status means the record is
// already in a terminal state and only needs removing.
type Expired struct {
	Record *Record
	Status *Status
}

// GetOldMessages returns every record expired relative to currentCC
// (master_cc_seqno + 2 <= currentCC), along with the terminal status it
// should be moved to before removal: None for records already
// Accepted{Masterchain}, Rejected or Duplicate, else Timeout.
func (c *MessageCache) GetOldMessages(currentCC uint32) []Expired {
	type row struct {
		id     common.Hash
		rec    *Record
		status Status
		hasSt  bool
	}
	var rows []row
	var missingBody []common.Hash

	c.mu.RLock()
	for id, m := range c.meta {
		if m.MasterCCSeqno+2 > currentCC {
			continue
		}
		status, hasSt := c.statuses[id]
		rec, ok := c.toRecord(id, m)
		if !ok {
			missingBody = append(missingBody, id)
			continue
		}
		rows = append(rows, row{id: id, rec: rec, status: status, hasSt: hasSt})
	}
	c.mu.RUnlock()

	for _, id := range missingBody {
		c.reportInvariantViolation(id, "body missing while sweeping expiry")
	}

	var out []Expired
	for _, r := range rows {
		if !r.hasSt {
			c.reportInvariantViolation(r.id, "status missing while sweeping expiry")
			out = append(out, Expired{Record: r.rec, Status: nil})
			continue
		}
		switch {
		case r.status.Kind == KindAccepted && r.status.Level == LevelMasterchain,
			r.status.Kind == KindRejected,
			r.status.Kind == KindDuplicate:
			out = append(out, Expired{Record: r.rec, Status: nil})
		default:
			ts := Timeout()
			out = append(out, Expired{Record: r.rec, Status: &ts})
		}
		c.expiredCounter.Inc(1)
		c.Events.Send(CacheEvent{Kind: EventExpired, MessageID: r.id})
	}
	return out
}

// DuplicateStatus classifies id's current status without mutating
// anything.
type DuplicateStatus uint8

const (
	DuplicateStatusAbsent DuplicateStatus = iota
	DuplicateStatusFresh
	DuplicateStatusDuplicate
)

// DuplicateStatusResult pairs the classification with the conflicting
// block id, when DuplicateStatusDuplicate.
type DuplicateStatusResult struct {
	Status  DuplicateStatus
	BlockID common.Hash
}

// DuplicateStatus reports whether id, if present, currently holds an
// Accepted{Shardchain|Masterchain} status: already committed to a real
// block, so any further Collator-level acceptance of the same
// message_id would be a second delivery of an already-committed
// message.
func (c *MessageCache) DuplicateStatus(id common.Hash) DuplicateStatusResult {
	status, ok := c.GetStatus(id)
	if !ok {
		return DuplicateStatusResult{Status: DuplicateStatusAbsent}
	}
	if status.Kind == KindAccepted && (status.Level == LevelShardchain || status.Level == LevelMasterchain) {
		return DuplicateStatusResult{Status: DuplicateStatusDuplicate, BlockID: status.BlockID}
	}
	return DuplicateStatusResult{Status: DuplicateStatusFresh}
}

// Listed pairs a record with its shard and status, for whole-cache
// diagnostic dumps.
type Listed struct {
	Shard  ShardIdent
	Record *Record
	Status Status
}

// All lists every message currently in the cache with its shard and
// status. A trace-level log dump of the listing, if wanted, is left to
// callers: logging and telemetry destinations live outside this
// package.
func (c *MessageCache) All() []Listed {
	type row struct {
		id    common.Hash
		rec   *Record
		shard ShardIdent
		st    Status
	}
	type violation struct {
		id     common.Hash
		detail string
	}
	rows := make([]row, 0, len(c.meta))
	var violations []violation

	c.mu.RLock()
	for id, m := range c.meta {
		shard, hasSh := c.shards[id]
		st, hasSt := c.statuses[id]
		if !hasSh || !hasSt {
			violations = append(violations, violation{id: id, detail: "shard or status missing while listing cache"})
			continue
		}
		rec, ok := c.toRecord(id, m)
		if !ok {
			violations = append(violations, violation{id: id, detail: "body missing while listing cache"})
			continue
		}
		rows = append(rows, row{id: id, rec: rec, shard: shard, st: st})
	}
	c.mu.RUnlock()

	for _, v := range violations {
		c.reportInvariantViolation(v.id, v.detail)
	}

	out := make([]Listed, 0, len(rows))
	for _, r := range rows {
		out = append(out, Listed{Shard: r.shard, Record: r.rec, Status: r.st})
	}
	return out
}
