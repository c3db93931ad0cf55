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

// Package payload implements the wire codec between messagecache.Record
// plus messagecache.Status pairs and the compact typed encoding catchain
// actually carries. Only a reduced status set crosses the wire: New,
// Accepted(block_id) and Rejected(block_id, error). Duplicate, Ignored
// and Timeout are local-only decisions and are never encoded.
package payload

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ever-remp/remp-core/messagecache"
)

// wireKind is the reduced status tag that actually crosses the wire.
type wireKind uint8

const (
	wireKindNew wireKind = iota
	wireKindAccepted
	wireKindRejected
)

// wireRecord is the RLP encoding of a (Record, Status) pair: the five
// scalar fields of the record, its body, and the reduced status.
type wireRecord struct {
	MessageID     common.Hash
	SourceKey     common.Hash
	SourceIdx     uint32
	Timestamp     uint64
	MasterCCSeqno uint32
	Body          []byte

	StatusKind uint8
	BlockID    common.Hash
	Error      string
}

// Encode serializes record and status into the on-wire form. Encoding a
// Duplicate, Ignored or Timeout status is not defined by the protocol;
// rather than failing the send, such attempts are normalized to New and
// logged, since these are strictly local-only decisions that must never
// leak onto the wire.
func Encode(record *messagecache.Record, status messagecache.Status) ([]byte, error) {
	w := wireRecord{
		MessageID:     record.MessageID,
		SourceKey:     record.SourceKey,
		SourceIdx:     record.SourceIdx,
		Timestamp:     uint64(record.Timestamp),
		MasterCCSeqno: record.MasterCCSeqno,
		Body:          record.Body,
	}

	switch status.Kind {
	case messagecache.KindNew:
		w.StatusKind = uint8(wireKindNew)
	case messagecache.KindAccepted:
		w.StatusKind = uint8(wireKindAccepted)
		w.BlockID = status.BlockID
	case messagecache.KindRejected:
		w.StatusKind = uint8(wireKindRejected)
		w.BlockID = status.BlockID
		w.Error = status.Error
	case messagecache.KindDuplicate, messagecache.KindIgnored, messagecache.KindTimeout:
		log.Error("payload: refusing to encode local-only status, normalizing to New",
			"message_id", record.MessageID.Hex(), "status", status)
		w.StatusKind = uint8(wireKindNew)
	default:
		return nil, fmt.Errorf("payload: unknown status kind %v", status.Kind)
	}

	return rlp.EncodeToBytes(&w)
}

// Decode deserializes data into a Record and Status. masterCC is the
// owning session's current validator-cycle number and becomes the
// record's master_cc_seqno; the sender's master_cc_seqno and timestamp
// carried on the wire are discarded, and Timestamp is stamped with the
// local clock. The decoded status is always lifted to level Collator.
func Decode(data []byte, masterCC uint32) (*messagecache.Record, messagecache.Status, error) {
	var w wireRecord
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, messagecache.Status{}, fmt.Errorf("payload: decode: %w", err)
	}

	record := messagecache.NewRecordFromWire(w.Body, w.MessageID, w.SourceKey, w.SourceIdx, masterCC)

	var status messagecache.Status
	switch wireKind(w.StatusKind) {
	case wireKindNew:
		status = messagecache.New()
	case wireKindAccepted:
		status = messagecache.Accepted(messagecache.LevelCollator, w.BlockID)
	case wireKindRejected:
		status = messagecache.Rejected(messagecache.LevelCollator, w.BlockID, w.Error)
	default:
		return nil, messagecache.Status{}, fmt.Errorf("payload: unknown wire status kind %d", w.StatusKind)
	}

	return record, status, nil
}
