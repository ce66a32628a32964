package ddj400

import (
	"fmt"

	"github.com/PixPMusic/gopher-deck/internal/engine"
)

const (
	effectUnitGroup = "[EffectRack1_EffectUnit1]"
	numEffectSlots  = 3
)

// Beat FX slot buttons
const (
	FxSlotNone   = 0
	FxSlotLeft   = 1
	FxSlotRight  = 2
	FxSlotSelect = 3
)

// Beat FX channel select controls
const (
	fxChannel1    uint8 = 0x10
	fxChannel2    uint8 = 0x11
	fxChannelBoth uint8 = 0x14
)

func effectSlotGroup(slot int) string {
	return fmt.Sprintf("[EffectRack1_EffectUnit1_Effect%d]", slot)
}

// FocusedSlot returns the effect slot the level knob controls, 0 for none
func (c *Controller) FocusedSlot() int {
	return int(c.engine.Get(effectUnitGroup, "focused_effect"))
}

// SetFocusedSlot focuses slot (0 clears focus) and refreshes the Beat FX
// on/off light to the newly focused slot's enabled state. Slots outside
// [0, 3] are ignored and reported as false.
func (c *Controller) SetFocusedSlot(slot int) bool {
	if slot < FxSlotNone || slot > numEffectSlots {
		c.log.Debugf("Ignoring effect focus %d", slot)
		return false
	}
	c.engine.Set(effectUnitGroup, "focused_effect", float64(slot))

	enabled := false
	if slot != FxSlotNone {
		enabled = engine.Bool(c.engine.Get(effectSlotGroup(slot), "enabled"))
	}
	c.lights.SetLight(beatFxLight, enabled)
	return true
}

// SelectFxSlot focuses slot, or clears focus if slot already has it
func (c *Controller) SelectFxSlot(slot int, value uint8) {
	if value == 0 {
		return
	}
	if c.FocusedSlot() == slot {
		c.SetFocusedSlot(FxSlotNone)
		return
	}
	c.SetFocusedSlot(slot)
}

// BeatFxLevelDepth routes the level/depth knob: the focused slot's meta knob,
// or the unit's dry/wet mix when nothing is focused.
func (c *Controller) BeatFxLevelDepth(value uint8) {
	v := float64(value&0x7F) / 0x7F

	slot := c.FocusedSlot()
	if slot > FxSlotNone && slot <= numEffectSlots {
		c.engine.Set(effectSlotGroup(slot), "meta", v)
		c.engine.SoftTakeoverIgnoreNextValue(effectUnitGroup, "mix")
		return
	}
	c.engine.Set(effectUnitGroup, "mix", v)
}

// BeatFxOnOff toggles the focused slot. Nothing happens without focus.
func (c *Controller) BeatFxOnOff(value uint8) {
	if value == 0 {
		return
	}
	slot := c.FocusedSlot()
	if slot <= FxSlotNone || slot > numEffectSlots {
		return
	}
	group := effectSlotGroup(slot)
	enabled := !engine.Bool(c.engine.Get(group, "enabled"))
	c.engine.Set(group, "enabled", engine.FromBool(enabled))
	c.lights.SetLight(beatFxLight, enabled)
}

// BeatFxKillAll disables every slot of the unit and drops the mix to zero,
// whatever is focused.
func (c *Controller) BeatFxKillAll(value uint8) {
	if value == 0 {
		return
	}
	for slot := 1; slot <= numEffectSlots; slot++ {
		c.engine.Set(effectSlotGroup(slot), "enabled", 0)
	}
	c.engine.Set(effectUnitGroup, "mix", 0)
	c.lights.SetLight(beatFxLight, false)
}

// BeatFxChannel assigns the unit to channel 1, channel 2 or both
func (c *Controller) BeatFxChannel(control, value uint8) {
	if value == 0 {
		return
	}
	ch1 := control == fxChannel1 || control == fxChannelBoth
	ch2 := control == fxChannel2 || control == fxChannelBoth
	if !ch1 && !ch2 {
		return
	}
	c.engine.Set(effectUnitGroup, "group_[Channel1]_enable", engine.FromBool(ch1))
	c.engine.Set(effectUnitGroup, "group_[Channel2]_enable", engine.FromBool(ch2))
}
