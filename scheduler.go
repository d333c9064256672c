// scheduler.go provides the repeating-timer abstraction the controller polls
// with. Stopping a handle is the only cancellation primitive.
package main

import (
	"sync"
	"time"
)

// Handle is a running repeating schedule.
type Handle interface {
	// Stop cancels the schedule. It is synchronous and idempotent: once it
	// returns no further tick is delivered, although an invocation already
	// under way may still finish.
	Stop()
}

// Scheduler starts repeating work.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Handle
}

// TickerScheduler runs fn on its own goroutine driven by a time.Ticker.
// Invocations never overlap: a slow fn delays the next tick instead.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) Handle {
	h := &tickerHandle{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go h.loop(fn)
	return h
}

type tickerHandle struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (h *tickerHandle) loop(fn func()) {
	for {
		select {
		case <-h.done:
			return
		case <-h.ticker.C:
			// A tick may already be buffered when Stop runs.
			select {
			case <-h.done:
				return
			default:
			}
			fn()
		}
	}
}

func (h *tickerHandle) Stop() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}
