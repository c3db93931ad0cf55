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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ever-remp/remp-core/messagecache"
	"github.com/ever-remp/remp-core/payload"
)

type fakeEngine struct {
	refused      bool
	setCalls     int
	removeCalls  int
	lastListID   common.Hash
}

func (f *fakeEngine) SetValidatorList(nodeListID common.Hash, _ []Node) (common.Hash, bool) {
	f.setCalls++
	f.lastListID = nodeListID
	if f.refused {
		return common.Hash{}, false
	}
	return common.Hash{0x42}, true
}

func (f *fakeEngine) RemoveValidatorList(common.Hash) { f.removeCalls++ }
func (f *fakeEngine) ValidatorNetwork() PrivateOverlay { return nil }
func (f *fakeEngine) DBRootDir() string                { return "/tmp/remp" }

type fakeHandle struct {
	stopped      bool
	processed    [][]byte
}

func (h *fakeHandle) Stop(bool) { h.stopped = true }
func (h *fakeHandle) ProcessedBlock(payload []byte, _, _ bool) {
	h.processed = append(h.processed, payload)
}

type fakeFactory struct {
	handle  *fakeHandle
	failErr error
}

func (f *fakeFactory) Create(CatchainOptions, common.Hash, []Node, common.Hash, string, OverlayManager, Listener) (CatchainHandle, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	return f.handle, nil
}

type fakeBlock struct {
	payload []byte
}

func (b fakeBlock) Payload() []byte { return b.payload }

func newTestSession(t *testing.T, engine *fakeEngine, factory *fakeFactory) *Session {
	t.Helper()
	current := []Node{node(1), node(2)}
	next := []Node{node(3)}
	s, err := New(engine, factory, NewOverlayManager(func() (PrivateOverlay, bool) { return nil, true }),
		CatchainOptions{}, 1, 10, current, next, node(1).PublicKeyHash, common.Hash{0x99})
	require.NoError(t, err)
	return s
}

func TestNewRejectsMissingLocalIdentity(t *testing.T) {
	_, err := New(&fakeEngine{}, &fakeFactory{}, OverlayManager{}, CatchainOptions{}, 1, 10,
		[]Node{node(1)}, []Node{node(2)}, common.Hash{0xff}, common.Hash{0x1})
	assert.ErrorIs(t, err, ErrLocalIdentityNotFound)
}

func TestStartAndStop(t *testing.T) {
	engine := &fakeEngine{}
	handle := &fakeHandle{}
	factory := &fakeFactory{handle: handle}
	s := newTestSession(t, engine, factory)

	require.NoError(t, s.Start())
	assert.Equal(t, 1, engine.setCalls)

	s.Stop()
	assert.True(t, handle.stopped)
	assert.Equal(t, 1, engine.removeCalls)
}

func TestStartPropagatesEngineRefusal(t *testing.T) {
	engine := &fakeEngine{refused: true}
	s := newTestSession(t, engine, &fakeFactory{handle: &fakeHandle{}})
	err := s.Start()
	assert.ErrorIs(t, err, ErrEngineRefusedValidatorList)
}

func TestStartUnregistersValidatorListWhenFactoryFails(t *testing.T) {
	engine := &fakeEngine{}
	factoryErr := assert.AnError
	s := newTestSession(t, engine, &fakeFactory{failErr: factoryErr})

	err := s.Start()
	assert.ErrorIs(t, err, factoryErr)
	assert.Equal(t, 1, engine.setCalls)
	assert.Equal(t, 1, engine.removeCalls)
}

func TestStopToleratesNeverStarted(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestSession(t, engine, &fakeFactory{handle: &fakeHandle{}})
	assert.NotPanics(t, func() { s.Stop() })
	assert.Equal(t, 1, engine.removeCalls)
}

func TestProcessBlocksDrainsPendingAndEncodesNewOnly(t *testing.T) {
	engine := &fakeEngine{}
	handle := &fakeHandle{}
	s := newTestSession(t, engine, &fakeFactory{handle: handle})
	require.NoError(t, s.Start())

	rec := messagecache.NewRecord([]byte("payload"), common.Hash{0x1}, 0, 10)
	s.SubmitOutbound(rec)

	s.ProcessBlocks(nil)
	require.Len(t, handle.processed, 1)

	actions, err := decodeCommitActions(handle.processed[0])
	require.NoError(t, err)
	require.Len(t, actions, 1)

	decoded, status, err := payload.Decode(actions[0], 10)
	require.NoError(t, err)
	assert.Equal(t, rec.MessageID, decoded.MessageID)
	assert.Equal(t, messagecache.New(), status, "outbound records must be encoded with status New")
}

func TestProcessBlocksWithoutHandleDropsBatch(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestSession(t, engine, &fakeFactory{handle: &fakeHandle{}})
	rec := messagecache.NewRecord([]byte("x"), common.Hash{0x2}, 0, 10)
	s.SubmitOutbound(rec)

	assert.NotPanics(t, func() { s.ProcessBlocks(nil) })
}

func TestPreprocessBlockOnlyAcceptsNewStatus(t *testing.T) {
	engine := &fakeEngine{}
	handle := &fakeHandle{}
	s := newTestSession(t, engine, &fakeFactory{handle: handle})
	require.NoError(t, s.Start())

	recNew := messagecache.NewRecord([]byte("fresh"), common.Hash{0x3}, 0, 10)
	recAccepted := messagecache.NewRecord([]byte("stale"), common.Hash{0x4}, 0, 10)

	encodedNew, err := payload.Encode(recNew, messagecache.New())
	require.NoError(t, err)
	encodedAccepted, err := payload.Encode(recAccepted, messagecache.Accepted(messagecache.LevelCollator, common.Hash{0x7}))
	require.NoError(t, err)

	envelope, err := encodeCommitActions([][]byte{encodedNew, encodedAccepted})
	require.NoError(t, err)

	s.PreprocessBlock(fakeBlock{payload: envelope})

	got, ok := s.PollInbound()
	require.True(t, ok, "New-status action must reach the inbound queue")
	assert.Equal(t, recNew.MessageID, got.Record.MessageID)

	_, ok = s.PollInbound()
	assert.False(t, ok, "Accepted-status action from a peer must be dropped")
}

func TestIsSameCatchain(t *testing.T) {
	engine := &fakeEngine{}
	factory := &fakeFactory{handle: &fakeHandle{}}
	s1 := newTestSession(t, engine, factory)
	s2 := newTestSession(t, engine, factory)
	assert.True(t, s1.IsSameCatchain(s2))

	s2.SetMasterCC(999)
	assert.False(t, s1.IsSameCatchain(s2))
}
