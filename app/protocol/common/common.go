package common

import (
	"time"
)

// DefaultTimeout is the default duration to wait for a response to arrive on
// a route.
const DefaultTimeout = 30 * time.Second

// DefaultTargetHeaderCount is the number of headers, genesis included, a
// sync session downloads unless configured otherwise.
const DefaultTargetHeaderCount = 10000

// DefaultWindowSize is the number of blocks requested together in a single
// getdata message unless configured otherwise.
const DefaultWindowSize = 10

// ResponseKind identifies the kind of response a sync flow waits for.
type ResponseKind int

const (
	// ResponseHeaders is a headers message answering getheaders.
	ResponseHeaders ResponseKind = iota

	// ResponseBlock is a block message, or a notfound message, answering
	// getdata.
	ResponseBlock
)

var responseKindStrings = map[ResponseKind]string{
	ResponseHeaders: "headers",
	ResponseBlock:   "block",
}

func (kind ResponseKind) String() string {
	if s, ok := responseKindStrings[kind]; ok {
		return s
	}
	return "unknown"
}
