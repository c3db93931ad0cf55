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

package remp

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"go.uber.org/automaxprocs/maxprocs"
)

// init sizes GOMAXPROCS against the container's cgroup CPU quota. The
// catchain listener callbacks (preprocess_block, process_blocks) run on
// the underlying catchain's own thread pool; getting GOMAXPROCS right
// keeps that pool and the cooperative scheduler from fighting over
// cores neither of them is aware the other owns.
func init() {
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Debug("automaxprocs", "msg", fmt.Sprintf(format, args...))
	}))
	if err != nil {
		log.Warn("failed to set GOMAXPROCS from cgroup quota", "err", err)
		return
	}
	_ = undo // process-lifetime setting; nothing to undo before exit
}
