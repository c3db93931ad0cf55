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
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Record is the immutable value carried for every external message:
// its body, the hash identifying it, who it came from, and when/at
// which validator cycle it entered the local cache. Once constructed a
// Record is never mutated; WithSourceIdx returns a distinct value.
type Record struct {
	MessageID     common.Hash
	Body          []byte
	SourceKey     common.Hash
	SourceIdx     uint32
	Timestamp     int64
	MasterCCSeqno uint32
}

// NewRecord builds a Record for a freshly-submitted message, computing
// MessageID as the SHA-256 of body and stamping Timestamp with the
// local wall clock. SHA-256 is taken from crypto/sha256: it's a fixed
// cryptographic primitive, a 256-bit content hash, not a policy choice
// a library would vary, so there's nothing an ecosystem package would
// add over the standard library.
func NewRecord(body []byte, sourceKey common.Hash, sourceIdx uint32, masterCCSeqno uint32) *Record {
	sum := sha256.Sum256(body)
	return &Record{
		MessageID:     common.Hash(sum),
		Body:          body,
		SourceKey:     sourceKey,
		SourceIdx:     sourceIdx,
		Timestamp:     time.Now().Unix(),
		MasterCCSeqno: masterCCSeqno,
	}
}

// NewRecordFromWire reconstructs a Record from a decoded wire payload.
// Unlike NewRecord, messageID is taken as given (the sender already
// computed it) rather than recomputed; Timestamp is stamped with the
// decoder's local clock and masterCCSeqno is supplied by the owning
// session.
func NewRecordFromWire(body []byte, messageID, sourceKey common.Hash, sourceIdx uint32, masterCCSeqno uint32) *Record {
	return &Record{
		MessageID:     messageID,
		Body:          body,
		SourceKey:     sourceKey,
		SourceIdx:     sourceIdx,
		Timestamp:     time.Now().Unix(),
		MasterCCSeqno: masterCCSeqno,
	}
}

// WithSourceIdx returns a new Record identical to r except for
// SourceIdx. r itself is left untouched.
func (r *Record) WithSourceIdx(idx uint32) *Record {
	cp := *r
	cp.SourceIdx = idx
	return &cp
}

// IsExpired reports whether r should be swept given the current
// master-chain validator-cycle number: master_cc_seqno + 2 <= current_cc.
func (r *Record) IsExpired(currentCC uint32) bool {
	return r.MasterCCSeqno+2 <= currentCC
}

func (r *Record) String() string {
	return fmt.Sprintf("id %s, source %s, source_idx %d, ts %d, cc %d",
		r.MessageID.Hex(), r.SourceKey.Hex(), r.SourceIdx, r.Timestamp, r.MasterCCSeqno)
}
