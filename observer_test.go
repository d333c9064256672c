package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type levelRecorder struct {
	levels []string
	msgs   []string
}

func (l *levelRecorder) add(level, msg string) {
	l.levels = append(l.levels, level)
	l.msgs = append(l.msgs, msg)
}

func (l *levelRecorder) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *levelRecorder) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *levelRecorder) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *levelRecorder) Error(msg string, _ ...any) { l.add("error", msg) }

func TestLogObserver(t *testing.T) {
	t.Run("Should pick the level from the error kind", func(t *testing.T) {
		rec := &levelRecorder{}
		obs := LogObserver{Log: rec}
		obs.OnTransition(Update{LogLine: "status: Running"})
		obs.OnTransition(Update{LogLine: "polling failed", Err: &TransientPollError{Op: "status poll", Err: errors.New("timeout")}})
		obs.OnTransition(Update{LogLine: "task error", Err: &TaskError{Message: "boom"}})
		obs.OnResult("t1", CanonicalResult{})

		assert.Equal(t, []string{"info", "warn", "error", "info"}, rec.levels)
		assert.Equal(t, "result ready", rec.msgs[3])
	})
}

func TestObservers(t *testing.T) {
	t.Run("Should fan out to every member", func(t *testing.T) {
		a, b := &recorder{}, &recorder{}
		obs := Observers{a, b}
		obs.OnTransition(Update{TaskID: "t1"})
		obs.OnResult("t1", CanonicalResult{})
		assert.Len(t, a.updates, 1)
		assert.Len(t, b.updates, 1)
		assert.Equal(t, 1, a.resultCount())
		assert.Equal(t, 1, b.resultCount())
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write JSON when asked", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "debug", true).Info("task started", "task_id", "t1")
		assert.Contains(t, buf.String(), `"msg":"task started"`)
		assert.Contains(t, buf.String(), `"task_id":"t1"`)
	})

	t.Run("Should drop messages below the level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&buf, "warn", false)
		log.Info("quiet")
		log.Debug("quieter")
		assert.Empty(t, buf.String())
		log.Warn("loud")
		assert.Contains(t, buf.String(), "loud")
	})
}
