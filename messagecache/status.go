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

	"github.com/ethereum/go-ethereum/common"
)

// Level is the stage of message acceptance.
type Level uint8

const (
	LevelCollator Level = iota
	LevelShardchain
	LevelMasterchain
)

func (l Level) String() string {
	switch l {
	case LevelCollator:
		return "collator"
	case LevelShardchain:
		return "shardchain"
	case LevelMasterchain:
		return "masterchain"
	default:
		return "unknown"
	}
}

// Kind is the tag of the Status sum type.
type Kind uint8

const (
	KindNew Kind = iota
	KindAccepted
	KindRejected
	KindIgnored
	KindDuplicate
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindAccepted:
		return "accepted"
	case KindRejected:
		return "rejected"
	case KindIgnored:
		return "ignored"
	case KindDuplicate:
		return "duplicate"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Status is the tagged variant of message acceptance state. Level,
// BlockID and Error are only meaningful for the Kind values that carry
// them: Level and BlockID for Accepted/Rejected/Ignored, BlockID alone
// for Duplicate, Error alone for Rejected.
type Status struct {
	Kind    Kind
	Level   Level
	BlockID common.Hash
	Error   string
}

// New is the initial status given to every freshly inserted message.
func New() Status { return Status{Kind: KindNew} }

// Accepted builds an Accepted{level, block_id} status.
func Accepted(level Level, blockID common.Hash) Status {
	return Status{Kind: KindAccepted, Level: level, BlockID: blockID}
}

// Rejected builds a Rejected{level, block_id, error} status.
func Rejected(level Level, blockID common.Hash, errMsg string) Status {
	return Status{Kind: KindRejected, Level: level, BlockID: blockID, Error: errMsg}
}

// Ignored builds an Ignored{level, block_id} status.
func Ignored(level Level, blockID common.Hash) Status {
	return Status{Kind: KindIgnored, Level: level, BlockID: blockID}
}

// Duplicate builds a Duplicate{block_id} status.
func Duplicate(blockID common.Hash) Status {
	return Status{Kind: KindDuplicate, BlockID: blockID}
}

// Timeout builds the Timeout status.
func Timeout() Status { return Status{Kind: KindTimeout} }

// IsTerminal reports whether no transition out of s is ever legal:
// Rejected, Duplicate and Timeout are always terminal; Accepted is
// terminal only once it reaches Masterchain level.
func (s Status) IsTerminal() bool {
	switch s.Kind {
	case KindRejected, KindDuplicate, KindTimeout:
		return true
	case KindAccepted:
		return s.Level == LevelMasterchain
	default:
		return false
	}
}

func (s Status) String() string {
	switch s.Kind {
	case KindNew:
		return "New"
	case KindAccepted:
		return fmt.Sprintf("Accepted{level=%s, block_id=%s}", s.Level, s.BlockID.Hex())
	case KindRejected:
		return fmt.Sprintf("Rejected{level=%s, block_id=%s, error=%q}", s.Level, s.BlockID.Hex(), s.Error)
	case KindIgnored:
		return fmt.Sprintf("Ignored{level=%s, block_id=%s}", s.Level, s.BlockID.Hex())
	case KindDuplicate:
		return fmt.Sprintf("Duplicate{block_id=%s}", s.BlockID.Hex())
	case KindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}
