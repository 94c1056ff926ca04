// Package smartplug abstracts the boolean ON/OFF switch used to power the
// GPU worker's host machine on before a transcription job, and lets it
// idle off the rest of the time. The wire protocol of the concrete Tuya
// device is out of scope; this package only exercises its local-network
// boolean DPS (data point) contract.
package smartplug

import "context"

// Actuator is the ON/OFF switch GPUWaker drives.
type Actuator interface {
	// IsConfigured reports whether enough device identity is present to
	// attempt a call at all.
	IsConfigured() bool
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	// IsOn reports the device's last known power state.
	IsOn(ctx context.Context) (bool, error)
}

// NoopActuator is used when no smart plug is configured. TurnOn/TurnOff
// succeed trivially; since IsConfigured reports false, GPUWaker.TryWake
// returns false at once without polling.
type NoopActuator struct{}

func (NoopActuator) IsConfigured() bool { return false }

func (NoopActuator) TurnOn(context.Context) error { return nil }

func (NoopActuator) TurnOff(context.Context) error { return nil }

func (NoopActuator) IsOn(context.Context) (bool, error) { return false, nil }
