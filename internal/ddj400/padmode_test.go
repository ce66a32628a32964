package ddj400

import (
	"testing"

	"github.com/PixPMusic/gopher-deck/internal/lights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPadModeOnlyOnFullPress(t *testing.T) {
	f := newFixture(t)

	f.c.SetPadMode(Deck1, uint8(PadModeSampler), 0x00)
	f.c.SetPadMode(Deck1, uint8(PadModeSampler), 0x40)
	assert.Equal(t, PadModeHotCue, f.c.PadMode(Deck1))

	f.c.SetPadMode(Deck1, 0x55, 0x7F)
	assert.Equal(t, PadModeHotCue, f.c.PadMode(Deck1))

	f.c.SetPadMode(Deck1, uint8(PadModeSampler), 0x7F)
	assert.Equal(t, PadModeSampler, f.c.PadMode(Deck1))
	assert.Equal(t, PadModeHotCue, f.c.PadMode(Deck2))

	assert.Equal(t, lights.Off, f.light(t, padModeLight(Deck1, PadModeHotCue)))
	assert.Equal(t, lights.On, f.light(t, padModeLight(Deck1, PadModeSampler)))
}

func TestDispatchPadFollowsMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  PadMode
		pad   int
		group string
		key   string
		value float64
	}{
		{"hotcue", PadModeHotCue, 2, "[Channel1]", "hotcue_3_activate", 1},
		{"beatloop", PadModeBeatLoop, 0, "[Channel1]", "beatloop_0.25_toggle", 1},
		{"beatloop largest", PadModeBeatLoop, 7, "[Channel1]", "beatloop_32_toggle", 1},
		{"beatjump", PadModeBeatJump, 2, "[Channel1]", "beatjump", -2},
		{"keyshift", PadModeKeyShift, 0, "[Channel1]", "pitch", 4},
		{"padfx1", PadModePadFx1, 1, "[EffectRack1_EffectUnit2_Effect2]", "enabled", 1},
		{"padfx2", PadModePadFx2, 3, "[EffectRack1_EffectUnit3_Effect4]", "enabled", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.c.SetPadMode(Deck1, uint8(tt.mode), 0x7F)
			f.c.DispatchPad(Deck1, tt.pad, 0x7F, "")
			assert.Equal(t, []float64{tt.value}, f.eng.WritesTo(tt.group, tt.key))
		})
	}
}

func TestDispatchPadIgnoresOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.c.DispatchPad(Deck1, NumPads, 0x7F, "")
	f.c.DispatchPad(Deck1, -1, 0x7F, "")
	assert.Empty(t, f.eng.Writes)
}

func TestHotCuePadHoldAndClear(t *testing.T) {
	f := newFixture(t)

	f.c.DispatchPad(Deck2, 4, 0x7F, "[Channel2]")
	f.c.DispatchPad(Deck2, 4, 0x00, "[Channel2]")
	assert.Equal(t, []float64{1, 0}, f.eng.WritesTo("[Channel2]", "hotcue_5_activate"))

	f.c.ShiftPressed(Deck2, 0x7F)
	f.c.DispatchPad(Deck2, 4, 0x7F, "[Channel2]")
	f.c.DispatchPad(Deck2, 4, 0x00, "[Channel2]")
	assert.Equal(t, []float64{1}, f.eng.WritesTo("[Channel2]", "hotcue_5_clear"))
	assert.Len(t, f.eng.WritesTo("[Channel2]", "hotcue_5_activate"), 2)
}

func TestBeatJumpPadSetsSizeThenJumps(t *testing.T) {
	f := newFixture(t)
	f.c.SetPadMode(Deck1, uint8(PadModeBeatJump), 0x7F)

	f.c.DispatchPad(Deck1, 5, 0x7F, "")
	f.c.DispatchPad(Deck1, 5, 0x00, "")

	require.Len(t, f.eng.Writes, 2)
	assert.Equal(t, "beatjump_size", f.eng.Writes[0].Key)
	assert.Equal(t, 4.0, f.eng.Writes[0].Value)
	assert.Equal(t, "beatjump", f.eng.Writes[1].Key)
	assert.Equal(t, 4.0, f.eng.Writes[1].Value)
}

func TestBeatJumpShiftScalesTable(t *testing.T) {
	f := newFixture(t)
	f.c.SetPadMode(Deck1, uint8(PadModeBeatJump), 0x7F)
	f.c.ShiftPressed(Deck1, 0x7F)

	for _, addr := range beatjumpShiftLights(Deck1) {
		assert.Equal(t, lights.On, f.light(t, addr))
	}

	f.c.DispatchPad(Deck1, 7, 0x7F, "")
	f.c.DispatchPad(Deck1, 7, 0x7F, "") // already at the upper bound
	assert.Equal(t, []float64{16}, f.eng.WritesTo("[Channel1]", "beatjump_size"))

	f.c.ShiftPressed(Deck1, 0x00)
	f.c.DispatchPad(Deck1, 0, 0x7F, "")
	assert.Equal(t, []float64{-16}, f.eng.WritesTo("[Channel1]", "beatjump"))

	f.c.ShiftPressed(Deck1, 0x7F)
	f.c.DispatchPad(Deck1, 6, 0x7F, "")
	f.c.DispatchPad(Deck1, 6, 0x7F, "")
	f.c.DispatchPad(Deck1, 6, 0x7F, "") // below 1/16
	assert.Equal(t, []float64{16, 16, 1, 1.0 / 16}, f.eng.WritesTo("[Channel1]", "beatjump_size"))
}

func TestSamplerPadNeedsLoadedTrack(t *testing.T) {
	f := newFixture(t)
	f.c.SetPadMode(Deck2, uint8(PadModeSampler), 0x7F)

	f.c.DispatchPad(Deck2, 0, 0x7F, "")
	assert.Empty(t, f.eng.WritesTo("[Sampler9]", "cue_gotoandplay"))

	f.eng.Preset("[Sampler9]", "track_loaded", 1)
	f.c.DispatchPad(Deck2, 0, 0x7F, "")
	f.c.DispatchPad(Deck2, 0, 0x00, "")
	assert.Equal(t, []float64{1}, f.eng.WritesTo("[Sampler9]", "cue_gotoandplay"))
}

func TestSamplerPadShiftStopsOrLoads(t *testing.T) {
	f := newFixture(t)
	f.c.SetPadMode(Deck1, uint8(PadModeSampler), 0x7F)
	f.c.ShiftPressed(Deck1, 0x7F)

	f.c.DispatchPad(Deck1, 1, 0x7F, "")
	assert.Equal(t, []float64{1}, f.eng.WritesTo("[Sampler2]", "LoadSelectedTrack"))

	f.eng.Preset("[Sampler2]", "play", 1)
	f.c.DispatchPad(Deck1, 1, 0x7F, "")
	assert.Equal(t, []float64{1}, f.eng.WritesTo("[Sampler2]", "cue_gotoandstop"))
}

func TestKeyboardModePlaysFromChosenCue(t *testing.T) {
	f := newFixture(t)
	g := "[Channel1]"
	f.eng.Preset(g, "hotcue_4_position", -1)

	f.c.SetPadMode(Deck1, uint8(PadModeKeyboard), 0x7F)
	assert.Equal(t, []float64{0}, f.eng.WritesTo(g, "pitch"))

	// first press picks hot cue 4 and sets it since it is empty
	f.c.DispatchPad(Deck1, 3, 0x7F, "")
	f.c.DispatchPad(Deck1, 3, 0x00, "")
	assert.Equal(t, []float64{1}, f.eng.WritesTo(g, "hotcue_4_set"))
	assert.Equal(t, lights.On, f.light(t, padLight(Deck1, padBaseKeyboard, 0)))

	f.c.DispatchPad(Deck1, 0, 0x7F, "")
	f.c.DispatchPad(Deck1, 1, 0x7F, "")
	f.c.DispatchPad(Deck1, 0, 0x00, "")
	assert.Empty(t, f.eng.WritesTo(g, "hotcue_4_gotoandstop"))

	f.c.DispatchPad(Deck1, 1, 0x00, "")
	assert.Equal(t, []float64{1, 1}, f.eng.WritesTo(g, "hotcue_4_gotoandplay"))
	assert.Equal(t, []float64{1}, f.eng.WritesTo(g, "hotcue_4_gotoandstop"))
	assert.Equal(t, []float64{0, 4, 5, 0}, f.eng.WritesTo(g, "pitch"))
}

func TestPadFxBottomRowStepsEffectAbove(t *testing.T) {
	f := newFixture(t)
	f.c.SetPadMode(Deck1, uint8(PadModePadFx1), 0x7F)

	f.c.DispatchPad(Deck1, 5, 0x7F, "")
	f.c.DispatchPad(Deck1, 5, 0x00, "")
	assert.Equal(t, []float64{1}, f.eng.WritesTo("[EffectRack1_EffectUnit2_Effect2]", "next_effect"))

	f.c.ShiftPressed(Deck1, 0x7F)
	f.c.DispatchPad(Deck1, 4, 0x7F, "")
	assert.Equal(t, []float64{1}, f.eng.WritesTo("[EffectRack1_EffectUnit2_Effect1]", "prev_effect"))
}

func TestPadFxTopRowIsHeld(t *testing.T) {
	f := newFixture(t)
	f.c.SetPadMode(Deck2, uint8(PadModePadFx2), 0x7F)

	f.c.DispatchPad(Deck2, 0, 0x7F, "")
	f.c.DispatchPad(Deck2, 0, 0x00, "")
	assert.Equal(t, []float64{1, 0}, f.eng.WritesTo("[EffectRack1_EffectUnit3_Effect1]", "enabled"))
}

func TestEffectAbove(t *testing.T) {
	assert.Equal(t, "[EffectRack1_EffectUnit2_Effect3]", effectAbove("[EffectRack1_EffectUnit2_Effect7]"))
	assert.Equal(t, "[Channel1]", effectAbove("[Channel1]"))
}

func TestPadModeAbbrevIsUnique(t *testing.T) {
	seen := map[string]PadMode{}
	for _, m := range PadModes {
		a := m.Abbrev()
		assert.Len(t, a, 2, m.String())
		_, dup := seen[a]
		assert.False(t, dup, "%s reused by %s", a, m)
		seen[a] = m
	}
	assert.Equal(t, "??", PadMode(0x01).Abbrev())
}
