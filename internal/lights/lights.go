package lights

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// Light values understood by the controller
const (
	Off uint8 = 0x00
	On  uint8 = 0x7F
)

// Address identifies one LED by the MIDI status and data byte that drive it
type Address struct {
	Status uint8
	Data1  uint8
}

// Shifted returns the mirror address the controller shows while SHIFT is held.
// Pad lights use the next status byte for their shift layer.
func (a Address) Shifted() Address {
	return Address{Status: a.Status + 1, Data1: a.Data1}
}

// Output sends a single short message to the controller. Implementations must
// not block on hardware acknowledgement.
type Output interface {
	SendLight(status, data1, value uint8) error
}

// SysExOutput is implemented by outputs that can also send system exclusive
// messages. data excludes the F0/F7 framing.
type SysExOutput interface {
	SendSysEx(data []byte) error
}

// Gateway is the single path from the mapping to the controller's LEDs. It
// remembers every address it ever lit so shutdown can extinguish them.
type Gateway struct {
	out Output
	lit map[Address]struct{}
	log logrus.FieldLogger
}

// NewGateway creates a gateway writing to out
func NewGateway(out Output, log logrus.FieldLogger) *Gateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gateway{
		out: out,
		lit: make(map[Address]struct{}),
		log: log.WithField("component", "lights"),
	}
}

// SetLight switches an LED fully on or off
func (g *Gateway) SetLight(addr Address, on bool) {
	if on {
		g.Send(addr, On)
		return
	}
	g.Send(addr, Off)
}

// Send writes a raw 7-bit value to an LED. Send errors are logged and dropped.
func (g *Gateway) Send(addr Address, value uint8) {
	value &= 0x7F
	if value != Off {
		g.lit[addr] = struct{}{}
	}
	if g.out == nil {
		return
	}
	if err := g.out.SendLight(addr.Status, addr.Data1, value); err != nil {
		g.log.Warnf("Failed to send light %02X %02X: %v", addr.Status, addr.Data1, err)
	}
}

// SendSysEx forwards a system exclusive message when the output supports it
func (g *Gateway) SendSysEx(data []byte) {
	sx, ok := g.out.(SysExOutput)
	if !ok {
		return
	}
	if err := sx.SendSysEx(data); err != nil {
		g.log.Warnf("Failed to send SysEx: %v", err)
	}
}

// Lit returns every address that has received a non-zero value, sorted
func (g *Gateway) Lit() []Address {
	addrs := make([]Address, 0, len(g.lit))
	for a := range g.lit {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Status != addrs[j].Status {
			return addrs[i].Status < addrs[j].Status
		}
		return addrs[i].Data1 < addrs[j].Data1
	})
	return addrs
}

// ExtinguishAll turns off every LED the gateway has ever lit
func (g *Gateway) ExtinguishAll() {
	lit := g.Lit()
	for _, a := range lit {
		g.Send(a, Off)
	}
	g.lit = make(map[Address]struct{})
	g.log.Debugf("Extinguished %d lights", len(lit))
}
