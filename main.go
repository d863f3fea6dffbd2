// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/ibdsync/ibdsync/app"
)

func main() {
	if err := app.StartApp(); err != nil {
		os.Exit(1)
	}
}
