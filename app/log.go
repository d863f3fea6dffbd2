// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package app

import (
	"github.com/ibdsync/ibdsync/infrastructure/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.IBDS)
