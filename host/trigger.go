package host

import (
	"sync/atomic"

	"github.com/gogpu/gpucontext"
)

// Trigger is a boolean input sampled once per frame. It is on while its key
// is held, and a press released before the next sample still counts for
// one frame. Key callbacks may run on any goroutine.
type Trigger struct {
	key     gpucontext.Key
	held    atomic.Bool
	pressed atomic.Bool
	forced  atomic.Bool
}

// NewTrigger returns a trigger bound to key.
func NewTrigger(key gpucontext.Key) *Trigger {
	return &Trigger{key: key}
}

// Key returns the bound key.
func (t *Trigger) Key() gpucontext.Key { return t.key }

// OnKeyPress handles a key press event.
func (t *Trigger) OnKeyPress(key gpucontext.Key, _ gpucontext.Modifiers) {
	if key != t.key {
		return
	}
	t.held.Store(true)
	t.pressed.Store(true)
}

// OnKeyRelease handles a key release event.
func (t *Trigger) OnKeyRelease(key gpucontext.Key, _ gpucontext.Modifiers) {
	if key != t.key {
		return
	}
	t.held.Store(false)
}

// Set forces the trigger on or off regardless of the key, for scripted and
// headless runs.
func (t *Trigger) Set(on bool) { t.forced.Store(on) }

// Sample reports whether the trigger is on for this frame and consumes a
// pending press.
func (t *Trigger) Sample() bool {
	pressed := t.pressed.Swap(false)
	return pressed || t.held.Load() || t.forced.Load()
}
