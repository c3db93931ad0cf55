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
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

// actionKind tags the one action kind the core itself ever emits.
// Inbound actions that aren't Commit are logged and ignored;
// rlpAction.Kind lets decodeCommitActions recognize and skip them
// without failing the whole envelope.
type actionKind uint8

const (
	actionKindCommit actionKind = iota
	actionKindOther
)

type rlpAction struct {
	Kind    uint8
	Payload []byte
}

// rlpEnvelope is the typed block-payload envelope: a timestamp, an
// opaque state blob (unused by the core, carried for forward
// compatibility with the catchain engine's own bookkeeping) and the
// action list.
type rlpEnvelope struct {
	Ts      uint64
	State   []byte
	Actions []rlpAction
}

// encodeCommitActions wraps each already-encoded (record, status) blob
// as a Commit action inside a block-update envelope and serializes it.
func encodeCommitActions(commitPayloads [][]byte) ([]byte, error) {
	env := rlpEnvelope{Actions: make([]rlpAction, 0, len(commitPayloads))}
	for _, p := range commitPayloads {
		env.Actions = append(env.Actions, rlpAction{Kind: uint8(actionKindCommit), Payload: p})
	}
	return rlp.EncodeToBytes(&env)
}

// decodeCommitActions unwraps a block payload's envelope and returns
// the inner payload bytes of every Commit action, in encounter order.
// Non-Commit actions are logged and skipped, not reported as an error.
func decodeCommitActions(data []byte) ([][]byte, error) {
	var env rlpEnvelope
	if err := rlp.DecodeBytes(data, &env); err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(env.Actions))
	for _, a := range env.Actions {
		if actionKind(a.Kind) != actionKindCommit {
			log.Debug("rempcatchain: ignoring non-Commit action", "kind", a.Kind)
			continue
		}
		out = append(out, a.Payload)
	}
	return out, nil
}
