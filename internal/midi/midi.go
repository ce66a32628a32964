package midi

import (
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Manager handles MIDI port discovery. The driver is registered by the
// binary, see main.go.
type Manager struct {
	mu sync.RWMutex
}

// NewManager creates a new MIDI manager
func NewManager() *Manager {
	return &Manager{}
}

// Close cleans up the MIDI driver
func (m *Manager) Close() {
	midi.CloseDriver()
}

// ListInPorts returns the names of available MIDI input ports
func (m *Manager) ListInPorts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// ListOutPorts returns the names of available MIDI output ports
func (m *Manager) ListOutPorts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}

// GetInPort returns the input port matching name
func (m *Manager) GetInPort(name string) (drivers.In, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ins := midi.GetInPorts()
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, fmt.Errorf("input port not found: %s", name)
	}
	return ins[i], nil
}

// GetOutPort returns the output port matching name
func (m *Manager) GetOutPort(name string) (drivers.Out, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outs := midi.GetOutPorts()
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	i := matchPort(names, name)
	if i < 0 {
		return nil, fmt.Errorf("output port not found: %s", name)
	}
	return outs[i], nil
}

// matchPort picks the port called exactly name, else the first whose name
// contains it case-insensitively. Drivers decorate names with client and
// port numbers, so "DDJ-400" finds "DDJ-400:DDJ-400 MIDI 1 24:0".
func matchPort(names []string, name string) int {
	if name == "" {
		return -1
	}
	for i, n := range names {
		if n == name {
			return i
		}
	}
	want := strings.ToLower(name)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}

// MessageCallback receives the raw bytes of every incoming message
type MessageCallback func(msg []byte)

// Listen delivers every message from the named input port to callback until
// the returned stop function is called. SysEx replies are delivered too.
func (m *Manager) Listen(inPortName string, callback MessageCallback) (func(), error) {
	inPort, err := m.GetInPort(inPortName)
	if err != nil {
		return nil, err
	}

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, timestampms int32) {
		callback(msg.Bytes())
	}, midi.UseSysEx())
	if err != nil {
		return nil, fmt.Errorf("failed to start listening: %w", err)
	}
	return stop, nil
}

// OpenOutput opens the named output port for lighting
func (m *Manager) OpenOutput(outPortName string) (*Output, error) {
	outPort, err := m.GetOutPort(outPortName)
	if err != nil {
		return nil, err
	}

	send, err := midi.SendTo(outPort)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}
	return NewOutput(send), nil
}
