package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainBooting   = errors.New("swapchain resized or recreated, booting")
	ErrOutOfMemory        = errors.New("out of memory")
	ErrFeatureMissing     = errors.New("required device feature missing")
	ErrQueueFamilyMissing = errors.New("required queue family missing")
	ErrSlotExhausted      = errors.New("descriptor slots exhausted")
	ErrFrameTimeout       = errors.New("timed out acquiring a swapchain image")
	ErrUnknown            = errors.New("unknown")
)

// Assert panics with an assertion failure when cond is false. It is reserved
// for programmer errors: a violated usage contract is never recoverable.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(errors.AssertionFailedWithDepthf(1, format, args...))
	}
}
