// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/bchcore/bchd/internal/slogger"
	"github.com/decred/slog"
)

// log is this package's subsystem logger. It defaults to slog.Disabled
// (via internal/slogger's init) until a host binary calls UseLogger.
var log = slogger.Logger(slogger.SubsystemChain)

// UseLogger plugs logger into the blockchain package, following the
// teacher's per-package UseLogger convention.
func UseLogger(logger slog.Logger) {
	log = logger
	slogger.UseLogger(slogger.SubsystemChain, logger)
}
