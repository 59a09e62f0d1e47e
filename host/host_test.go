package host

import (
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
)

func TestTriggerHeld(t *testing.T) {
	trig := NewTrigger(gpucontext.KeySpace)
	if trig.Sample() {
		t.Fatal("idle trigger sampled on")
	}
	trig.OnKeyPress(gpucontext.KeySpace, 0)
	for i := range 3 {
		if !trig.Sample() {
			t.Fatalf("frame %d: held trigger sampled off", i)
		}
	}
	trig.OnKeyRelease(gpucontext.KeySpace, 0)
	if trig.Sample() {
		t.Error("released trigger sampled on")
	}
}

func TestTriggerShortPressCountsOnce(t *testing.T) {
	trig := NewTrigger(gpucontext.KeySpace)
	trig.OnKeyPress(gpucontext.KeySpace, 0)
	trig.OnKeyRelease(gpucontext.KeySpace, 0)
	if !trig.Sample() {
		t.Error("press between frames was lost")
	}
	if trig.Sample() {
		t.Error("press counted twice")
	}
}

func TestTriggerIgnoresOtherKeys(t *testing.T) {
	trig := NewTrigger(gpucontext.KeySpace)
	trig.OnKeyPress(gpucontext.KeySpace+1, 0)
	if trig.Sample() {
		t.Error("other key turned the trigger on")
	}
	if trig.Key() != gpucontext.KeySpace {
		t.Errorf("Key() = %v", trig.Key())
	}
}

func TestTriggerSet(t *testing.T) {
	trig := NewTrigger(gpucontext.KeySpace)
	trig.Set(true)
	if !trig.Sample() || !trig.Sample() {
		t.Error("forced trigger sampled off")
	}
	trig.Set(false)
	if trig.Sample() {
		t.Error("cleared trigger sampled on")
	}
}

func TestTriggerConcurrentEvents(t *testing.T) {
	trig := NewTrigger(gpucontext.KeySpace)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				trig.OnKeyPress(gpucontext.KeySpace, 0)
				trig.OnKeyRelease(gpucontext.KeySpace, 0)
			}
		}()
	}
	for range 100 {
		trig.Sample()
	}
	wg.Wait()
	trig.Sample()
	if trig.Sample() {
		t.Error("trigger stuck on after all keys released")
	}
}

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(time.Second / 4)
	for i := range 4 {
		d, e := c.Tick()
		if d != 0.25 || e != float32(i)*0.25 {
			t.Errorf("tick %d = (%v, %v), want (0.25, %v)", i, d, e, float32(i)*0.25)
		}
	}
	if c.Frames() != 4 {
		t.Errorf("Frames() = %d, want 4", c.Frames())
	}
}

func TestWallClockClampsDelta(t *testing.T) {
	base := time.Unix(1000, 0)
	times := []time.Time{base, base.Add(16 * time.Millisecond), base.Add(5 * time.Second)}
	c := NewClock()
	c.now = func() time.Time {
		t := times[0]
		times = times[1:]
		return t
	}
	if d, _ := c.Tick(); d != 0 {
		t.Errorf("first delta = %v, want 0", d)
	}
	if d, _ := c.Tick(); d != float32((16 * time.Millisecond).Seconds()) {
		t.Errorf("second delta = %v, want 0.016", d)
	}
	d, e := c.Tick()
	if d != float32(DefaultMaxDelta.Seconds()) {
		t.Errorf("stalled delta = %v, want %v", d, DefaultMaxDelta.Seconds())
	}
	if e != float32((16 * time.Millisecond).Seconds()) {
		t.Errorf("elapsed = %v, want 0.016", e)
	}
}
