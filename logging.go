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
	"github.com/ethereum/go-ethereum/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// FileSinkOptions configures a rotating file sink for the log package.
// Left zero-valued, lumberjack's own defaults apply (100MB before
// rotation, no age/backup limit, no compression).
type FileSinkOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileLogger returns a log.Logger that writes JSON-formatted records
// to a rotated file instead of the process's default terminal handler.
// messagecache.New and rempstore.New accept it through their WithLogger
// options, so embedding code can route their logs here without
// affecting the rest of the process. Package payload and
// rempcatchain.Session take no logger: they log through loggers derived
// from log.Root().
func NewFileLogger(opts FileSinkOptions) log.Logger {
	w := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	return log.NewLogger(log.JSONHandler(w))
}
