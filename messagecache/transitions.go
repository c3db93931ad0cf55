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

// ValidTransition is the StatusTransitionTable predicate. It does not
// know about the duplicate-detection shortcut (an Accepted{Collator}
// message moving to Accepted{Shardchain|Masterchain} at a *different*
// block id) — that rule is applied by MessageCache before this table is
// ever consulted, since it rewrites the update instead of validating it.
func ValidTransition(old, new Status) bool {
	switch old.Kind {
	case KindNew:
		switch new.Kind {
		case KindAccepted:
			return new.Level == LevelCollator
		case KindRejected, KindIgnored, KindTimeout:
			return true
		}
		return false

	case KindAccepted:
		switch old.Level {
		case LevelCollator:
			switch new.Kind {
			case KindAccepted:
				return (new.Level == LevelShardchain || new.Level == LevelMasterchain) && new.BlockID == old.BlockID
			case KindIgnored, KindTimeout:
				return true
			}
			return false
		case LevelShardchain:
			switch new.Kind {
			case KindAccepted:
				return new.Level == LevelMasterchain && new.BlockID == old.BlockID
			case KindTimeout:
				return true
			}
			return false
		case LevelMasterchain:
			return false
		}
		return false

	case KindIgnored:
		switch new.Kind {
		case KindAccepted, KindRejected, KindDuplicate, KindTimeout:
			return true
		}
		return false

	case KindRejected, KindDuplicate, KindTimeout:
		return false
	}
	return false
}
