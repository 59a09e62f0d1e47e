// Package host adapts host-application input and timing to the simulation.
//
// Trigger turns key events into the per-frame injection signal. Hook its
// methods to a gpucontext event source:
//
//	trig := host.NewTrigger(gpucontext.KeySpace)
//	events.OnKeyPress(trig.OnKeyPress)
//	events.OnKeyRelease(trig.OnKeyRelease)
//
// Clock produces the frame delta and elapsed time, from the wall clock or
// at a fixed step for headless runs.
package host
