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

import "errors"

// errOverlayGone is returned when an OverlayManager's backing engine
// reference has been torn down before a session calls StartOverlay.
var errOverlayGone = errors.New("rempcatchain: overlay manager's engine reference is gone")

// ErrLocalIdentityNotFound is a fatal construction error: the local
// public key was not present in either the current or next validator
// set's node list.
var ErrLocalIdentityNotFound = errors.New("rempcatchain: local identity not found in node list")

// ErrEngineRefusedValidatorList is returned by Start when the engine
// refuses to register the session's node list.
var ErrEngineRefusedValidatorList = errors.New("rempcatchain: engine refused to set validator list")
