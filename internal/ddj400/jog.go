package ddj400

// jogCenter is the wheel value meaning "no movement"
const jogCenter = 64

// JogTouch starts or ends a scratch on deck d. With vinyl mode off a touch
// only marks the wheel as held, so turns keep bending. While a loop boundary
// is being adjusted scratching is suppressed.
func (c *Controller) JogTouch(d Deck, value uint8) {
	s := c.deck(d)
	if s == nil {
		return
	}

	if value == 0 {
		if s.jog == JogScratching {
			c.engine.EndScratch(d.Number())
		}
		s.jog = JogIdle
		return
	}

	if s.loopAdjust != LoopAdjustOff {
		return
	}
	if !c.settings.VinylMode {
		s.jog = JogTouched
		return
	}
	if s.jog == JogScratching {
		return
	}

	st := c.settings
	c.engine.BeginScratch(d.Number(), st.ScratchResolution, st.ScratchRPM, st.ScratchAlpha, st.ScratchBeta)
	s.jog = JogScratching
}

// JogTurn applies one wheel tick on deck d: it nudges the loop boundary being
// adjusted, scratches, or bends the pitch.
func (c *Controller) JogTurn(d Deck, value uint8, group string) {
	s := c.deck(d)
	if s == nil {
		return
	}
	delta := float64(int(value) - jogCenter)

	switch s.loopAdjust {
	case LoopAdjustIn:
		c.nudgeLoop(group, "loop_start_position", delta)
		return
	case LoopAdjustOut:
		c.nudgeLoop(group, "loop_end_position", delta)
		return
	}

	if s.jog == JogScratching {
		c.engine.ScratchTick(d.Number(), delta)
		return
	}
	c.engine.Set(group, "jog", delta*c.settings.BendScale)
}

func (c *Controller) nudgeLoop(group, key string, delta float64) {
	pos := c.engine.Get(group, key) + delta*c.settings.LoopAdjustMultiply
	c.engine.Set(group, key, pos)
}

// JogSearch is SHIFT+jog: a fast seek that ignores scratch and loop state
func (c *Controller) JogSearch(value uint8, group string) {
	delta := float64(int(value) - jogCenter)
	c.engine.Set(group, "jog", delta*c.settings.HighspeedScale)
}

// highResState holds the MSB half of a 14-bit control until its LSB arrives
type highResState struct {
	msb     uint8
	pending bool
}

// TempoSliderMSB caches the coarse half of the tempo fader for group
func (c *Controller) TempoSliderMSB(group string, value uint8) {
	st, ok := c.highRes[group]
	if !ok {
		st = &highResState{}
		c.highRes[group] = st
	}
	st.msb = value & 0x7F
	st.pending = true
}

// TempoSliderLSB combines the fine half with the cached MSB and writes the
// rate. An LSB without a pending MSB is dropped.
func (c *Controller) TempoSliderLSB(group string, value uint8) {
	st, ok := c.highRes[group]
	if !ok || !st.pending {
		c.log.Debugf("Dropping tempo LSB for %s without MSB", group)
		return
	}
	st.pending = false

	combined := int(st.msb)<<7 | int(value&0x7F)
	c.engine.Set(group, "rate", tempoRate(combined))
}

// tempoRate maps a 14-bit fader position to a rate in [-1, 1]; the fader is
// upside down so the top end is negative
func tempoRate(combined int) float64 {
	return float64((0x4000-combined)-0x2000) / 0x2000
}

// CycleTempoRange steps the deck's rate range through the configured ranges
func (c *Controller) CycleTempoRange(value uint8, group string) {
	if value == 0 {
		return
	}
	ranges := c.settings.TempoRanges
	if len(ranges) == 0 {
		return
	}
	current := c.engine.Get(group, "rateRange")
	idx := 0
	for i, r := range ranges {
		if current == r {
			idx = (i + 1) % len(ranges)
			break
		}
	}
	c.engine.Set(group, "rateRange", ranges[idx])
}
