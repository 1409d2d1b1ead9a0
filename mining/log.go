// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/bchcore/bchd/internal/slogger"
	"github.com/decred/slog"
)

// log is this package's subsystem logger.
var log = slogger.Logger(slogger.SubsystemMine)

// UseLogger plugs logger into the mining package.
func UseLogger(logger slog.Logger) {
	log = logger
	slogger.UseLogger(slogger.SubsystemMine, logger)
}
