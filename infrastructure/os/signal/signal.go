// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// interruptSignals defines the default signals to catch in order to do a proper
// shutdown. This may be modified during init depending on the platform.
var interruptSignals = []os.Signal{os.Interrupt}

// InterruptContext returns a context derived from parent that is cancelled
// once an interrupt signal such as SIGINT (Ctrl+C) is received, or when the
// returned cancel function is called. Signals keep being caught until cancel
// is called or parent is done.
func InterruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelCtx := context.WithCancel(parent)
	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, interruptSignals...)

	stop := make(chan struct{})
	var stopOnce sync.Once
	cancel := func() {
		stopOnce.Do(func() { close(stop) })
		cancelCtx()
	}

	go func() {
		defer signal.Stop(interruptChannel)
		select {
		case sig := <-interruptChannel:
			log.Infof("Received signal (%s). Shutting down...", sig)
			cancelCtx()
		case <-stop:
			return
		case <-parent.Done():
			return
		}

		// Listen for repeated signals and display a message so the user
		// knows the shutdown is in progress and the process is not hung.
		for {
			select {
			case sig := <-interruptChannel:
				log.Infof("Received signal (%s). Already shutting down...", sig)
			case <-stop:
				return
			case <-parent.Done():
				return
			}
		}
	}()
	return ctx, cancel
}
