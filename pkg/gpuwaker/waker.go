// Package gpuwaker powers the GPU worker's host on via a smart plug and
// waits for it to answer healthy.
package gpuwaker

import (
	"context"
	"log/slog"
	"time"

	"github.com/meetscribe/meetscribe/pkg/smartplug"
)

// Prober is the subset of gpuclient.HealthProbe the waker depends on.
type Prober interface {
	IsAvailable(ctx context.Context) bool
}

// Waker powers the worker's host on and polls until it answers healthy or
// a deadline expires. Not re-entrant: concurrent wakes for the same
// device are not attempted by this type; callers serialize calls to
// TryWake themselves if needed.
type Waker struct {
	Actuator      smartplug.Actuator
	Probe         Prober
	BootWaitTime  time.Duration
	CheckInterval time.Duration
}

// NewWaker builds a waker. If actuator is unconfigured, TryWake always
// returns false immediately.
func NewWaker(actuator smartplug.Actuator, probe Prober, bootWaitTime, checkInterval time.Duration) *Waker {
	return &Waker{
		Actuator:      actuator,
		Probe:         probe,
		BootWaitTime:  bootWaitTime,
		CheckInterval: checkInterval,
	}
}

// TryWake turns the device on and polls the probe until it succeeds or
// BootWaitTime elapses. It takes no cancellation input by design: the
// loop's own deadline is its only exit, mirroring a physical boot budget
// that cannot be aborted mid-flight once power is applied.
func (w *Waker) TryWake(jobID string) bool {
	if !w.Actuator.IsConfigured() {
		return false
	}

	ctx := context.Background()
	if err := w.Actuator.TurnOn(ctx); err != nil {
		slog.Error("gpuwaker: failed to turn on smart plug", "job_id", jobID, "error", err)
		return false
	}

	var elapsed time.Duration
	for elapsed < w.BootWaitTime {
		time.Sleep(w.CheckInterval)
		elapsed += w.CheckInterval

		if w.Probe.IsAvailable(ctx) {
			slog.Info("gpuwaker: worker came online", "job_id", jobID, "elapsed", elapsed)
			return true
		}
	}

	slog.Warn("gpuwaker: boot wait exceeded", "job_id", jobID, "boot_wait_time", w.BootWaitTime)
	return false
}
