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

// Package remp ties together the Reliable External Message Pool core:
// the message cache (package messagecache), the per-validator-set
// catchain session (package rempcatchain) and its wire codec (package
// payload), and the session lifecycle registry (package rempstore).
//
// None of those packages imports this one; this package only
// carries process-wide wiring (log sinks, GOMAXPROCS tuning) that a
// node embedding REMP would otherwise have to duplicate.
package remp
