package main

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerScheduler(t *testing.T) {
	t.Run("Should tick until stopped", func(t *testing.T) {
		var calls atomic.Int32
		h := TickerScheduler{}.Every(5*time.Millisecond, func() { calls.Add(1) })
		assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)

		h.Stop()
		// an invocation already past the stop check may still land
		time.Sleep(10 * time.Millisecond)
		after := calls.Load()
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, after, calls.Load())
	})

	t.Run("Should allow stopping more than once", func(t *testing.T) {
		h := TickerScheduler{}.Every(time.Hour, func() {})
		assert.NotPanics(t, func() {
			h.Stop()
			h.Stop()
		})
	})
}
