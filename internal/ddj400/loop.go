package ddj400

import (
	"time"

	"github.com/PixPMusic/gopher-deck/internal/engine"
	"github.com/PixPMusic/gopher-deck/internal/lights"
	"github.com/PixPMusic/gopher-deck/internal/timer"
)

const loopBlinkPeriod = 500 * time.Millisecond

func loopBlinkKey(d Deck) timer.Key {
	return timer.Key{Group: deckStatus(d), Control: ledLoopIn}
}

// LoopInPressed toggles adjusting the loop start with the jog wheel. Without
// an active loop it sets the loop in point instead.
func (c *Controller) LoopInPressed(d Deck, value uint8, group string) {
	c.loopButton(d, value, group, LoopAdjustIn, "loop_in")
}

// LoopOutPressed toggles adjusting the loop end with the jog wheel. Without
// an active loop it sets the loop out point instead.
func (c *Controller) LoopOutPressed(d Deck, value uint8, group string) {
	c.loopButton(d, value, group, LoopAdjustOut, "loop_out")
}

func (c *Controller) loopButton(d Deck, value uint8, group string, target LoopAdjust, setKey string) {
	if value == 0 {
		return
	}
	s := c.deck(d)
	if s == nil {
		return
	}

	if !engine.Bool(c.engine.Get(group, "loop_enabled")) {
		c.engine.Set(group, setKey, 1)
		return
	}

	if s.loopAdjust == target {
		s.loopAdjust = LoopAdjustOff
	} else {
		s.loopAdjust = target
		// the wheel now moves the boundary; a scratch in progress ends here
		if s.jog == JogScratching {
			c.engine.EndScratch(d.Number())
			s.jog = JogTouched
		}
	}
	c.log.Debugf("Deck %d loop adjust %s", d.Number(), s.loopAdjust)
}

// LoopAdjust returns which boundary deck d is adjusting
func (c *Controller) LoopAdjust(d Deck) LoopAdjust {
	if !d.Valid() {
		return LoopAdjustOff
	}
	return c.decks[d].loopAdjust
}

func (c *Controller) onLoopEnabled(value float64, group, _ string) {
	d, ok := DeckFromGroup(group)
	if !ok {
		return
	}
	c.LoopEnabledChanged(d, engine.Bool(value))
}

// LoopEnabledChanged mirrors the engine's loop state: an active loop blinks
// its boundary lights, an inactive one shows them steady and ends any
// boundary adjustment.
func (c *Controller) LoopEnabledChanged(d Deck, enabled bool) {
	s := c.deck(d)
	if s == nil {
		return
	}
	in, out := loopInLight(d), loopOutLight(d)

	if !enabled {
		c.timers.StopBlink(loopBlinkKey(d))
		c.lights.SetLight(in, true)
		c.lights.SetLight(out, true)
		c.lights.SetLight(reloopLight(d), false)
		s.loopAdjust = LoopAdjustOff
		return
	}

	c.lights.SetLight(in, true)
	c.lights.SetLight(out, true)
	c.lights.SetLight(reloopLight(d), true)

	phase := lights.On
	c.timers.StartBlink(loopBlinkKey(d), loopBlinkPeriod, func() {
		phase = lights.On - phase

		// the boundary not being adjusted goes dark
		inValue, outValue := phase, phase
		switch c.decks[d].loopAdjust {
		case LoopAdjustOut:
			inValue = lights.Off
		case LoopAdjustIn:
			outValue = lights.Off
		}
		c.lights.Send(in, inValue)
		c.lights.Send(out, outValue)
	})
}
