// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package app

import (
	"fmt"
	"time"

	"github.com/ibdsync/ibdsync/app/protocol/flows/ibd"
)

const progressLogInterval = 10 * time.Second

// progressLogger logs sync progress to show it to the user. In order to
// prevent spam, it limits logging to one message every 10 seconds with
// duration and totals included.
type progressLogger struct {
	now func() time.Time

	lastLogTime    time.Time
	lastHeaders    int
	lastBlocks     int
	lastLoggedLine string
}

func newProgressLogger() *progressLogger {
	return &progressLogger{
		now:         time.Now,
		lastLogTime: time.Now(),
		lastHeaders: 1,
		lastBlocks:  1,
	}
}

func plural(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

func (pl *progressLogger) logProgress(progress ibd.Progress) {
	now := pl.now()
	duration := now.Sub(pl.lastLogTime)
	if duration < progressLogInterval && !progress.State.IsTerminal() {
		return
	}

	// Truncate the duration to 10s of milliseconds.
	tDuration := duration.Round(10 * time.Millisecond)

	var line string
	switch progress.State {
	case ibd.StateHeaderSync:
		newHeaders := progress.Headers - pl.lastHeaders
		line = fmt.Sprintf("Processed %d %s in the last %s (%d/%d headers)",
			newHeaders, plural(newHeaders, "header", "headers"), tDuration, progress.Headers, progress.Target)
	case ibd.StateBlockSync:
		newBlocks := progress.Blocks - pl.lastBlocks
		line = fmt.Sprintf("Processed %d %s in the last %s (%d/%d blocks)",
			newBlocks, plural(newBlocks, "block", "blocks"), tDuration, progress.Blocks, progress.Target)
	default:
		line = fmt.Sprintf("Sync %s", progress)
	}
	log.Info(line)

	pl.lastLoggedLine = line
	pl.lastLogTime = now
	pl.lastHeaders = progress.Headers
	pl.lastBlocks = progress.Blocks
}
