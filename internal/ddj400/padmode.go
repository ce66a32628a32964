package ddj400

import (
	"fmt"

	"github.com/PixPMusic/gopher-deck/internal/engine"
)

// padFunc handles one pad edge. value 0 is a release.
type padFunc func(d Deck, pad int, value uint8, group string)

// pressOnly wraps a handler so release edges are dropped
func pressOnly(fn padFunc) padFunc {
	return func(d Deck, pad int, value uint8, group string) {
		if value == 0 {
			return
		}
		fn(d, pad, value, group)
	}
}

// padHandlers builds the mode registry. Each handler decides its own edge
// sensitivity: held actions see releases, momentary ones are pressOnly.
func (c *Controller) padHandlers() map[PadMode]padFunc {
	return map[PadMode]padFunc{
		PadModeHotCue:   c.hotCuePad,
		PadModeBeatLoop: pressOnly(c.beatLoopPad),
		PadModeBeatJump: pressOnly(c.beatJumpPad),
		PadModeSampler:  pressOnly(c.samplerPad),
		PadModeKeyboard: c.keyboardPad,
		PadModeKeyShift: pressOnly(c.keyShiftPad),
		PadModePadFx1:   c.padFxPad,
		PadModePadFx2:   c.padFxPad,
	}
}

// SetPadMode stores the mode selected on deck d. Only a full press (0x7F) of
// a known mode button changes anything.
func (c *Controller) SetPadMode(d Deck, code uint8, value uint8) {
	if value != 0x7F {
		return
	}
	s := c.deck(d)
	if s == nil {
		return
	}
	mode := PadMode(code)
	if !mode.Valid() {
		c.log.Debugf("Ignoring unknown pad mode 0x%02X on deck %d", code, d.Number())
		return
	}

	prev := s.padMode
	s.padMode = mode
	if prev != mode {
		c.lights.SetLight(padModeLight(d, prev), false)
	}
	c.lights.SetLight(padModeLight(d, mode), true)

	if mode == PadModeKeyboard {
		c.enterKeyboardMode(d)
	}
	c.log.Debugf("Deck %d pad mode %s", d.Number(), mode)
}

// PadMode returns the active mode of deck d
func (c *Controller) PadMode(d Deck) PadMode {
	if !d.Valid() {
		return PadModeHotCue
	}
	return c.decks[d].padMode
}

// DispatchPad interprets a pad edge under the deck's current mode. An empty
// group selects the mode's default group for the pad.
func (c *Controller) DispatchPad(d Deck, pad int, value uint8, group string) {
	s := c.deck(d)
	if s == nil {
		return
	}
	if pad < 0 || pad >= NumPads {
		c.log.Debugf("Ignoring pad %d on deck %d", pad, d.Number())
		return
	}
	handler, ok := c.pads[s.padMode]
	if !ok {
		return
	}
	if group == "" {
		group = defaultPadGroup(d, s.padMode, pad)
	}
	handler(d, pad, value, group)
}

func defaultPadGroup(d Deck, mode PadMode, pad int) string {
	switch mode {
	case PadModeSampler:
		return samplerGroup(int(d)*NumPads + pad + 1)
	case PadModePadFx1:
		return fmt.Sprintf("[EffectRack1_EffectUnit2_Effect%d]", pad+1)
	case PadModePadFx2:
		return fmt.Sprintf("[EffectRack1_EffectUnit3_Effect%d]", pad+1)
	default:
		return d.Group()
	}
}

func (c *Controller) hotCuePad(d Deck, pad int, value uint8, group string) {
	n := pad + 1
	if c.decks[d].shift {
		if value > 0 {
			c.engine.Set(group, fmt.Sprintf("hotcue_%d_clear", n), 1)
		}
		return
	}
	c.engine.Set(group, fmt.Sprintf("hotcue_%d_activate", n), engine.FromBool(value > 0))
}

var beatloopSizes = [NumPads]string{"0.25", "0.5", "1", "2", "4", "8", "16", "32"}

func (c *Controller) beatLoopPad(_ Deck, pad int, _ uint8, group string) {
	c.engine.Set(group, fmt.Sprintf("beatloop_%s_toggle", beatloopSizes[pad]), 1)
}

func (c *Controller) beatJumpPad(d Deck, pad int, _ uint8, group string) {
	s := &c.decks[d]
	if s.shift && pad >= 6 {
		c.scaleBeatjump(d, pad == 7, group)
		return
	}
	size := s.beatjump[pad]
	abs := size
	if abs < 0 {
		abs = -abs
	}
	c.engine.Set(group, "beatjump_size", abs)
	c.engine.Set(group, "beatjump", size)
}

// scaleBeatjump multiplies (up) or divides the deck's jump table by 16,
// keeping pad 2 between 1/16 and 16 beats.
func (c *Controller) scaleBeatjump(d Deck, up bool, group string) {
	s := &c.decks[d]
	ref := s.beatjump[1]
	factor := 16.0
	if up {
		if ref*16 > 16 {
			return
		}
	} else {
		if ref/16 < 1.0/16 {
			return
		}
		factor = 1.0 / 16
	}
	for i := range s.beatjump {
		s.beatjump[i] *= factor
	}
	c.engine.Set(group, "beatjump_size", s.beatjump[1])
}

func (c *Controller) samplerPad(d Deck, _ int, _ uint8, group string) {
	if c.decks[d].shift {
		if engine.Bool(c.engine.Get(group, "play")) {
			c.engine.Set(group, "cue_gotoandstop", 1)
		} else {
			c.engine.Set(group, "LoadSelectedTrack", 1)
		}
		return
	}
	if c.engine.Get(group, "track_loaded") != 1 {
		return
	}
	c.engine.Set(group, "cue_gotoandplay", 1)
}

// halftoneToPad maps a pad to the pitch it plays in keyboard and keyshift modes
var halftoneToPad = [NumPads]float64{4, 5, 6, 7, 0, 1, 2, 3}

func (c *Controller) keyShiftPad(_ Deck, pad int, _ uint8, group string) {
	c.engine.Set(group, "pitch", halftoneToPad[pad])
}

func (c *Controller) enterKeyboardMode(d Deck) {
	s := &c.decks[d]
	s.keyboardHotCue = 0
	s.keyboardPressed = 0
	c.engine.Set(d.Group(), "pitch", 0)
	c.keyboardLights(d, d.Group())
}

func (c *Controller) keyboardPad(d Deck, pad int, value uint8, group string) {
	s := &c.decks[d]
	n := pad + 1

	if s.keyboardHotCue == 0 {
		if value == 0 {
			return
		}
		// the first press chooses the hot cue the keyboard plays from
		s.keyboardHotCue = n
		if c.engine.Get(group, fmt.Sprintf("hotcue_%d_position", n)) < 0 {
			c.engine.Set(group, fmt.Sprintf("hotcue_%d_set", n), 1)
		}
		s.keyboardPressed = 0
		c.keyboardLights(d, group)
		return
	}

	cue := s.keyboardHotCue
	if value > 0 {
		s.keyboardPressed++
		c.engine.Set(group, "pitch", halftoneToPad[pad])
		c.engine.Set(group, fmt.Sprintf("hotcue_%d_gotoandplay", cue), 1)
		return
	}

	// the release of the choosing press is not a note
	if s.keyboardPressed == 0 {
		return
	}
	s.keyboardPressed--
	if s.keyboardPressed == 0 {
		c.engine.Set(group, fmt.Sprintf("hotcue_%d_gotoandstop", cue), 1)
		c.engine.Set(group, "pitch", 0)
	}
}

// keyboardLights shows which hot cues can be chosen, or all pads once one is
func (c *Controller) keyboardLights(d Deck, group string) {
	s := &c.decks[d]
	for pad := 0; pad < NumPads; pad++ {
		addr := padLight(d, padBaseKeyboard, pad)
		if s.keyboardHotCue != 0 {
			c.lights.SetLight(addr, true)
			continue
		}
		enabled := engine.Bool(c.engine.Get(group, fmt.Sprintf("hotcue_%d_enabled", pad+1)))
		c.lights.SetLight(addr, enabled)
		c.lights.SetLight(addr.Shifted(), enabled)
	}
	// SHIFT pads 7 and 8 are always available
	c.lights.SetLight(padLight(d, padBaseKeyboard, 6).Shifted(), true)
	c.lights.SetLight(padLight(d, padBaseKeyboard, 7).Shifted(), true)
}

// padFxPad forwards pad FX presses: the top row holds an effect on, the bottom
// row steps the effect above it.
func (c *Controller) padFxPad(d Deck, pad int, value uint8, group string) {
	if pad < 4 {
		c.engine.Set(group, "enabled", engine.FromBool(value > 0))
		return
	}
	if value == 0 {
		return
	}
	above := effectAbove(group)
	key := "next_effect"
	if c.decks[d].shift {
		key = "prev_effect"
	}
	c.engine.Set(above, key, 1)
}

// effectAbove maps "[EffectRack1_EffectUnitU_EffectN]" to effect N-4
func effectAbove(group string) string {
	var unit, effect int
	if _, err := fmt.Sscanf(group, "[EffectRack1_EffectUnit%d_Effect%d]", &unit, &effect); err != nil {
		return group
	}
	return fmt.Sprintf("[EffectRack1_EffectUnit%d_Effect%d]", unit, effect-4)
}
