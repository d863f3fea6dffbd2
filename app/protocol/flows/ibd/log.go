package ibd

import (
	"github.com/ibdsync/ibdsync/infrastructure/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.SYNC)
