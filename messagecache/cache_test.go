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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache() *MessageCache {
	return New(WithMetricsRegistry(metrics.NewRegistry()))
}

func sourceKey(b byte) common.Hash {
	var h common.Hash
	h[0] = b
	return h
}

func newTestRecord(body byte, cc uint32) *Record {
	return NewRecord([]byte{body}, sourceKey(1), 0, cc)
}

func TestInsertThenReject(t *testing.T) {
	c := testCache()
	rec := newTestRecord(1, 10)
	shard := MasterchainShard

	inserted, size := c.Insert(rec, shard)
	require.True(t, inserted)
	require.Equal(t, 1, size)

	again, _ := c.Insert(rec, shard)
	assert.False(t, again, "re-inserting the same message_id must be a no-op")

	got, ok := c.GetMessage(rec.MessageID)
	require.True(t, ok)
	assert.Equal(t, rec.Body, got.Body)

	status, ok := c.GetStatus(rec.MessageID)
	require.True(t, ok)
	assert.Equal(t, New(), status)

	newStatus, err := c.UpdateStatus(rec.MessageID, Rejected(LevelCollator, common.Hash{0xaa}, "bad signature"))
	require.NoError(t, err)
	require.NotNil(t, newStatus)
	assert.Equal(t, KindRejected, newStatus.Kind)
	assert.True(t, newStatus.IsTerminal())

	status, ok = c.GetStatus(rec.MessageID)
	require.True(t, ok)
	assert.Equal(t, KindRejected, status.Kind)

	_, err = c.UpdateStatus(rec.MessageID, Accepted(LevelCollator, common.Hash{0xbb}))
	assert.ErrorIs(t, err, ErrIllegalTransition, "Rejected is terminal, no transition should be legal")
}

func TestUpdateStatusUnknownMessage(t *testing.T) {
	c := testCache()
	_, err := c.UpdateStatus(common.Hash{0x01}, New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateDetectionShortcut(t *testing.T) {
	c := testCache()
	rec := newTestRecord(2, 10)
	c.Insert(rec, MasterchainShard)

	blockA := common.Hash{0x01}
	blockB := common.Hash{0x02}

	_, err := c.UpdateStatus(rec.MessageID, Accepted(LevelCollator, blockA))
	require.NoError(t, err)

	newStatus, err := c.UpdateStatus(rec.MessageID, Accepted(LevelShardchain, blockB))
	require.NoError(t, err)
	require.NotNil(t, newStatus)
	assert.Equal(t, KindDuplicate, newStatus.Kind)
	assert.Equal(t, blockB, newStatus.BlockID)

	status, _ := c.GetStatus(rec.MessageID)
	assert.Equal(t, KindDuplicate, status.Kind)

	// Further Accepted updates against an already-Duplicate status are
	// silently dropped rather than rejected as illegal.
	dropped, err := c.UpdateStatus(rec.MessageID, Accepted(LevelMasterchain, blockB))
	assert.NoError(t, err)
	assert.Nil(t, dropped)

	status, _ = c.GetStatus(rec.MessageID)
	assert.Equal(t, KindDuplicate, status.Kind, "status must remain Duplicate, not silently overwritten")
}

func TestAcceptedSameBlockIDIsNotDuplicate(t *testing.T) {
	c := testCache()
	rec := newTestRecord(3, 10)
	c.Insert(rec, MasterchainShard)

	block := common.Hash{0x7}
	_, err := c.UpdateStatus(rec.MessageID, Accepted(LevelCollator, block))
	require.NoError(t, err)

	newStatus, err := c.UpdateStatus(rec.MessageID, Accepted(LevelShardchain, block))
	require.NoError(t, err)
	require.NotNil(t, newStatus)
	assert.Equal(t, KindAccepted, newStatus.Kind)
	assert.Equal(t, LevelShardchain, newStatus.Level)

	newStatus, err = c.UpdateStatus(rec.MessageID, Accepted(LevelMasterchain, block))
	require.NoError(t, err)
	assert.Equal(t, LevelMasterchain, newStatus.Level)
	assert.True(t, newStatus.IsTerminal())
}

func TestGetOldMessagesSweep(t *testing.T) {
	c := testCache()

	expired := newTestRecord(4, 5)
	c.Insert(expired, MasterchainShard)

	fresh := newTestRecord(5, 100)
	c.Insert(fresh, MasterchainShard)

	block := common.Hash{0x9}
	_, err := c.UpdateStatus(expired.MessageID, Accepted(LevelCollator, block))
	require.NoError(t, err)

	results := c.GetOldMessages(7)
	require.Len(t, results, 1)
	assert.Equal(t, expired.MessageID, results[0].Record.MessageID)
	require.NotNil(t, results[0].Status)
	assert.Equal(t, KindTimeout, results[0].Status.Kind)

	none := c.GetOldMessages(6)
	assert.Len(t, none, 0, "master_cc_seqno = current_cc-1 must not yet be expired")
}

func TestGetOldMessagesMasterchainAcceptedNeedsNoStatusChange(t *testing.T) {
	c := testCache()
	rec := newTestRecord(6, 1)
	c.Insert(rec, MasterchainShard)

	block := common.Hash{0x3}
	_, err := c.UpdateStatus(rec.MessageID, Accepted(LevelCollator, block))
	require.NoError(t, err)
	_, err = c.UpdateStatus(rec.MessageID, Accepted(LevelShardchain, block))
	require.NoError(t, err)
	_, err = c.UpdateStatus(rec.MessageID, Accepted(LevelMasterchain, block))
	require.NoError(t, err)

	results := c.GetOldMessages(10)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Status, "already-terminal Masterchain acceptance needs only removal")
}

func TestDowngradeAcceptedByCollator(t *testing.T) {
	c := testCache()
	shard := ShardIdent{WorkchainID: 0, ShardPrefix: 0x8000000000000000}

	rec := newTestRecord(7, 1)
	c.Insert(rec, shard)
	block := common.Hash{0x5}
	_, err := c.UpdateStatus(rec.MessageID, Accepted(LevelCollator, block))
	require.NoError(t, err)

	other := newTestRecord(8, 1)
	c.Insert(other, shard)

	downgraded := c.DowngradeAcceptedByCollator(shard)
	require.Len(t, downgraded, 1)
	assert.Equal(t, rec.MessageID, downgraded[0].Record.MessageID)
	assert.Equal(t, KindIgnored, downgraded[0].Status.Kind)

	status, _ := c.GetStatus(rec.MessageID)
	assert.Equal(t, KindIgnored, status.Kind)
	assert.Equal(t, block, status.BlockID)

	statusOther, _ := c.GetStatus(other.MessageID)
	assert.Equal(t, KindNew, statusOther.Kind, "New messages must not be downgraded")
}

func TestShardIsolation(t *testing.T) {
	c := testCache()
	shardA := ShardIdent{WorkchainID: 0, ShardPrefix: 0x8000000000000000}
	shardB := ShardIdent{WorkchainID: 0, ShardPrefix: 0x4000000000000000}

	c.Insert(newTestRecord(9, 1), shardA)
	c.Insert(newTestRecord(10, 1), shardB)
	c.Insert(newTestRecord(11, 1), shardA)

	assert.Equal(t, 2, c.CountInShard(shardA))
	assert.Equal(t, 1, c.CountInShard(shardB))
	assert.Len(t, c.MessagesInShard(shardA), 2)
}

func TestRemoveIsIdempotent(t *testing.T) {
	c := testCache()
	rec := newTestRecord(12, 1)
	c.Insert(rec, MasterchainShard)

	c.Remove(rec.MessageID)
	_, ok := c.GetMessage(rec.MessageID)
	assert.False(t, ok)

	assert.NotPanics(t, func() { c.Remove(rec.MessageID) })
	assert.Equal(t, 0, c.Count())
}

func TestDuplicateStatusClassification(t *testing.T) {
	c := testCache()
	rec := newTestRecord(13, 1)

	assert.Equal(t, DuplicateStatusAbsent, c.DuplicateStatus(rec.MessageID).Status)

	c.Insert(rec, MasterchainShard)
	assert.Equal(t, DuplicateStatusFresh, c.DuplicateStatus(rec.MessageID).Status)

	block := common.Hash{0x4}
	_, err := c.UpdateStatus(rec.MessageID, Accepted(LevelCollator, block))
	require.NoError(t, err)
	assert.Equal(t, DuplicateStatusFresh, c.DuplicateStatus(rec.MessageID).Status, "Collator-level acceptance is not yet a commit")

	_, err = c.UpdateStatus(rec.MessageID, Accepted(LevelShardchain, block))
	require.NoError(t, err)
	result := c.DuplicateStatus(rec.MessageID)
	assert.Equal(t, DuplicateStatusDuplicate, result.Status)
	assert.Equal(t, block, result.BlockID)
}

func TestAllListsEveryMessage(t *testing.T) {
	c := testCache()
	shard := MasterchainShard
	rec := newTestRecord(14, 1)
	c.Insert(rec, shard)

	listed := c.All()
	require.Len(t, listed, 1)
	assert.Equal(t, shard, listed[0].Shard)
	assert.Equal(t, rec.MessageID, listed[0].Record.MessageID)
	assert.Equal(t, KindNew, listed[0].Status.Kind)
}

func TestEventsFeedOnDuplicateDetection(t *testing.T) {
	c := testCache()
	ch := make(chan CacheEvent, 4)
	sub := c.Events.Subscribe(ch)
	defer sub.Unsubscribe()

	rec := newTestRecord(15, 1)
	c.Insert(rec, MasterchainShard)

	blockA := common.Hash{0x1}
	blockB := common.Hash{0x2}
	_, err := c.UpdateStatus(rec.MessageID, Accepted(LevelCollator, blockA))
	require.NoError(t, err)
	_, err = c.UpdateStatus(rec.MessageID, Accepted(LevelShardchain, blockB))
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, EventDuplicateDetected, ev.Kind)
		assert.Equal(t, rec.MessageID, ev.MessageID)
	default:
		t.Fatal("expected a CacheEvent on the feed")
	}
}
