package ddj400

import (
	"time"

	"github.com/PixPMusic/gopher-deck/internal/engine"
	"github.com/PixPMusic/gopher-deck/internal/lights"
	"github.com/PixPMusic/gopher-deck/internal/timer"
)

const samplerBlinkPeriod = 250 * time.Millisecond

// samplerLight is the pad LED of sampler n (1-16). Samplers 1-8 sit on deck 1's
// pads, 9-16 on deck 2's.
func samplerLight(n int) lights.Address {
	d := Deck1
	pad := n - 1
	if n > NumPads {
		d = Deck2
		pad -= NumPads
	}
	return padLight(d, padBaseSampler, pad)
}

func samplerBlinkKey(n int) timer.Key {
	addr := samplerLight(n)
	return timer.Key{Group: addr.Status, Control: addr.Data1}
}

func (c *Controller) onSamplerPlay(value float64, group, _ string) {
	n, ok := samplerFromGroup(group)
	if !ok {
		return
	}
	if value == 1 {
		c.StartSamplerBlink(n)
	}
}

// StartSamplerBlink blinks sampler n's pad, and its SHIFT mirror, until the
// sampler stops playing. The tick polls the play state and ends the blink
// with the pad lit.
func (c *Controller) StartSamplerBlink(n int) {
	if n < 1 || n > NumSamplers {
		return
	}
	group := samplerGroup(n)
	addr := samplerLight(n)
	key := samplerBlinkKey(n)

	value := lights.On
	c.timers.StartBlink(key, samplerBlinkPeriod, func() {
		value = lights.On - value
		c.lights.Send(addr, value)
		c.lights.Send(addr.Shifted(), value)

		if c.engine.Get(group, "play") != 1 {
			c.timers.StopBlink(key)
			c.lights.SetLight(addr, true)
			c.lights.SetLight(addr.Shifted(), true)
		}
	})
}

// StopSamplerBlink cancels sampler n's blink, if any
func (c *Controller) StopSamplerBlink(n int) {
	if n < 1 || n > NumSamplers {
		return
	}
	c.timers.StopBlink(samplerBlinkKey(n))
}

// PlayingSamplers lists the samplers the engine reports as playing
func (c *Controller) PlayingSamplers() []int {
	var playing []int
	for n := 1; n <= NumSamplers; n++ {
		if engine.Bool(c.engine.Get(samplerGroup(n), "play")) {
			playing = append(playing, n)
		}
	}
	return playing
}
