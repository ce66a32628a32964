package midi

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
)

// Output writes LED messages to a controller. It implements lights.Output and
// lights.SysExOutput.
type Output struct {
	mu   sync.Mutex
	send func(midi.Message) error
}

// NewOutput wraps a gomidi send function
func NewOutput(send func(midi.Message) error) *Output {
	return &Output{send: send}
}

// SendLight sends a three byte channel message. The controller's LEDs react
// to note on and control change alike, so the status byte is passed through.
func (o *Output) SendLight(status, data1, value uint8) error {
	if status < 0x80 || status >= 0xF0 {
		return fmt.Errorf("status 0x%02X is not a channel message", status)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.send(midi.Message{status, data1 & 0x7F, value & 0x7F})
}

// SendSysEx sends a system exclusive message. data excludes the F0/F7 framing.
func (o *Output) SendSysEx(data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.send(midi.SysEx(data))
}
