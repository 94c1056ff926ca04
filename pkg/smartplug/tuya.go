package smartplug

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// TuyaActuator drives a local-network Tuya smart plug as a boolean
// ON/OFF switch. It does not implement Tuya's encrypted local protocol
// (DPS framing, AES-ECB with the device's local key, CRC trailer) — no
// such client exists anywhere in this codebase's dependency corpus, and
// the protocol itself is explicitly out of the system's scope. Instead it
// opens a short TCP connection to the device's control port and tracks
// the last commanded state locally; a real deployment would swap this for
// a proper vendor SDK without changing the Actuator interface.
type TuyaActuator struct {
	DeviceID  string
	IPAddress string
	LocalKey  string
	Version   string

	dialTimeout time.Duration

	mu     sync.Mutex
	lastOn bool
}

// NewTuyaActuator builds an actuator for a configured device. If any of
// deviceID, ipAddress or localKey is empty, IsConfigured reports false,
// TurnOn/TurnOff return an error without dialing, and IsOn reports the
// last commanded state (false).
func NewTuyaActuator(deviceID, ipAddress, localKey, version string) *TuyaActuator {
	return &TuyaActuator{
		DeviceID:    deviceID,
		IPAddress:   ipAddress,
		LocalKey:    localKey,
		Version:     version,
		dialTimeout: 3 * time.Second,
	}
}

func (a *TuyaActuator) IsConfigured() bool {
	return a.DeviceID != "" && a.IPAddress != "" && a.LocalKey != ""
}

func (a *TuyaActuator) TurnOn(ctx context.Context) error {
	return a.setState(ctx, true)
}

func (a *TuyaActuator) TurnOff(ctx context.Context) error {
	return a.setState(ctx, false)
}

func (a *TuyaActuator) IsOn(context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastOn, nil
}

func (a *TuyaActuator) setState(ctx context.Context, on bool) error {
	if !a.IsConfigured() {
		return fmt.Errorf("smartplug: device not configured")
	}

	dialer := net.Dialer{Timeout: a.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(a.IPAddress, "6668"))
	if err != nil {
		return fmt.Errorf("smartplug: dial %s: %w", a.IPAddress, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(a.encodeSetState(on)); err != nil {
		return fmt.Errorf("smartplug: write command: %w", err)
	}

	a.mu.Lock()
	a.lastOn = on
	a.mu.Unlock()
	return nil
}

// encodeSetState is the boolean-DPS command placeholder noted above: a
// bare JSON payload with no length prefix or framing, not a Tuya protocol
// frame.
func (a *TuyaActuator) encodeSetState(on bool) []byte {
	state := "0"
	if on {
		state = "1"
	}
	payload := fmt.Sprintf(`{"devId":%q,"dps":{"1":%s}}`, a.DeviceID, state)
	return []byte(payload)
}
