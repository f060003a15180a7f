// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"time"

	cfg "github.com/tamzrod/stlink-bridge/internal/config"
	"github.com/tamzrod/stlink-bridge/internal/writer/ingest"
	wmodbus "github.com/tamzrod/stlink-bridge/internal/writer/modbus"
)

// BuildPlan converts the mirror config into a Plan.
// deviceID names the block when no device_name is configured.
// Assumes config has already been validated and normalized.
func BuildPlan(m *cfg.MirrorConfig, deviceID string) (Plan, error) {
	if m == nil {
		return Plan{}, errors.New("writer: mirror not configured")
	}
	name := m.DeviceName
	if name == "" {
		name = deviceID
	}
	return Plan{
		Endpoint:    m.Endpoint,
		UnitID:      m.UnitID,
		BaseSlot:    m.BaseSlot,
		CoilAddress: m.CoilAddress,
		DeviceName:  name,
	}, nil
}

// BuildEndpointClient opens the configured transport.
func BuildEndpointClient(m *cfg.MirrorConfig) (endpointClient, func() error, error) {
	timeout := time.Duration(m.TimeoutMs) * time.Millisecond

	switch m.Transport {
	case "", "modbus":
		c, err := wmodbus.NewEndpointClient(wmodbus.Config{Endpoint: m.Endpoint, Timeout: timeout})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil

	case "ingest":
		c, err := ingest.NewEndpointClient(ingest.Config{Endpoint: m.Endpoint, Timeout: timeout})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("writer: unknown transport %q", m.Transport)
}

// Build wires a Mirror from config.
func Build(m *cfg.MirrorConfig, deviceID string, opts MirrorOptions) (*Mirror, func() error, error) {
	plan, err := BuildPlan(m, deviceID)
	if err != nil {
		return nil, nil, err
	}
	cli, closeFn, err := BuildEndpointClient(m)
	if err != nil {
		return nil, nil, err
	}
	return NewMirror(New(plan, cli), NewStatusWriter(plan, cli), opts.Log), closeFn, nil
}
