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

import "fmt"

// ShardIdent identifies a partition of the blockchain state. Workchain
// plus a binary shard prefix (prefix bits stored left-aligned, with the
// usual "1" terminator bit convention) uniquely names a shard.
type ShardIdent struct {
	WorkchainID int32
	ShardPrefix uint64
}

// MasterchainShard is the well-known shard of the masterchain itself.
var MasterchainShard = ShardIdent{WorkchainID: -1, ShardPrefix: 0x8000000000000000}

func (s ShardIdent) String() string {
	return fmt.Sprintf("%d:%016x", s.WorkchainID, s.ShardPrefix)
}
