package peerlink

import (
	"github.com/ibdsync/ibdsync/infrastructure/logger"
	"github.com/ibdsync/ibdsync/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.PEER)
var spawn = panics.GoroutineWrapperFunc(log)
