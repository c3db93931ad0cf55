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

import "errors"

// ErrNotFound is returned by UpdateStatus when message_id is absent
// from the cache.
var ErrNotFound = errors.New("messagecache: message not found")

// ErrIllegalTransition is returned by UpdateStatus when the requested
// status change is not on the StatusTransitionTable.
var ErrIllegalTransition = errors.New("messagecache: illegal status transition")
