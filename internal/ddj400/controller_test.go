package ddj400

import (
	"fmt"
	"testing"
	"time"

	"github.com/PixPMusic/gopher-deck/internal/engine"
	"github.com/PixPMusic/gopher-deck/internal/lights"
	"github.com/PixPMusic/gopher-deck/internal/timer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

type fixture struct {
	c      *Controller
	eng    *engine.Memory
	out    *lights.Recorder
	gw     *lights.Gateway
	timers *timer.Scheduler
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	f := &fixture{
		eng:    engine.NewMemory(log),
		out:    &lights.Recorder{},
		timers: timer.NewScheduler(clock.Now, log),
		clock:  clock,
	}
	f.gw = lights.NewGateway(f.out, log)
	f.c = New(f.eng, f.gw, f.timers, DefaultSettings(), log)
	return f
}

// tick advances the clock and runs the timers that came due
func (f *fixture) tick(d time.Duration) {
	f.timers.RunDue(f.clock.Advance(d))
}

func (f *fixture) light(t *testing.T, addr lights.Address) uint8 {
	t.Helper()
	v, ok := f.out.Last(addr)
	require.True(t, ok, "no message sent to %02X %02X", addr.Status, addr.Data1)
	return v
}

func TestInitSubscribesAndLightsBaseline(t *testing.T) {
	f := newFixture(t)
	f.c.Init()

	assert.Equal(t, []float64{1}, f.eng.WritesTo(effectUnitGroup, "show_focus"))
	assert.Equal(t, NumDecks*3+NumSamplers, f.eng.TotalSubscribers())
	assert.True(t, f.eng.SoftTakeoverEnabled("[Channel1]", "rate"))
	assert.True(t, f.eng.SoftTakeoverEnabled("[Channel2]", "rate"))

	for d := Deck1; d < NumDecks; d++ {
		assert.Equal(t, lights.On, f.light(t, loopInLight(d)))
		assert.Equal(t, lights.On, f.light(t, loopOutLight(d)))
		assert.Equal(t, lights.Off, f.light(t, reloopLight(d)))
		assert.Equal(t, lights.On, f.light(t, padModeLight(d, PadModeHotCue)))
		assert.Equal(t, PadModeHotCue, f.c.PadMode(d))
	}

	require.Len(t, f.out.SysEx, 1)
	assert.Equal(t, pollSysEx, f.out.SysEx[0])
}

func TestShutdownReleasesEverything(t *testing.T) {
	f := newFixture(t)
	f.c.Init()
	f.eng.Set("[Channel1]", "loop_enabled", 1)
	f.eng.Set("[Sampler2]", "play", 1)
	require.Equal(t, 2, f.timers.Len())

	f.c.Shutdown()

	assert.Equal(t, 0, f.timers.Len())
	assert.Equal(t, 0, f.eng.TotalSubscribers())
	assert.Empty(t, f.gw.Lit())
	assert.Equal(t, lights.Off, f.light(t, samplerLight(2)))
	assert.Equal(t, lights.Off, f.light(t, samplerLight(2).Shifted()))
}

func TestReinitRestoresRunningLoopAndSamplers(t *testing.T) {
	f := newFixture(t)
	g := "[Channel1]"
	f.c.Init()
	f.eng.Set(g, "loop_enabled", 1)
	f.eng.Set("[Sampler3]", "play", 1)
	f.c.LoopInPressed(Deck1, 0x7F, g)
	f.c.SetPadMode(Deck2, uint8(PadModeBeatJump), 0x7F)
	f.c.ShiftPressed(Deck2, 0x7F)
	require.Equal(t, LoopAdjustIn, f.c.LoopAdjust(Deck1))

	f.c.Shutdown()
	f.c.Init()

	assert.True(t, f.timers.Active(loopBlinkKey(Deck1)))
	assert.False(t, f.timers.Active(loopBlinkKey(Deck2)))
	assert.True(t, f.timers.Active(samplerBlinkKey(3)))
	assert.Equal(t, 2, f.timers.Len())
	assert.Equal(t, lights.On, f.light(t, reloopLight(Deck1)))
	assert.Equal(t, lights.Off, f.light(t, reloopLight(Deck2)))

	assert.Equal(t, LoopAdjustOff, f.c.LoopAdjust(Deck1))
	assert.Equal(t, DeckStatus{Deck: Deck2, PadMode: PadModeHotCue}, f.c.Status(Deck2))
	assert.Equal(t, NumDecks*3+NumSamplers, f.eng.TotalSubscribers())

	f.c.JogTouch(Deck1, 0x7F)
	_, scratching := f.eng.Scratching(1)
	assert.True(t, scratching)
}

func TestInitTwiceKeepsOneSetOfSubscriptions(t *testing.T) {
	f := newFixture(t)
	f.c.Init()
	f.c.JogTouch(Deck2, 0x7F)

	f.c.Init()

	assert.Equal(t, NumDecks*3+NumSamplers, f.eng.TotalSubscribers())
	assert.Equal(t, []int{2}, f.eng.EndedScratch)
	assert.Equal(t, JogIdle, f.c.Status(Deck2).Jog)
}

func TestVuMeterScalesAndClamps(t *testing.T) {
	f := newFixture(t)
	f.c.Init()

	f.eng.Set("[Channel2]", "VuMeter", 0.5)
	assert.Equal(t, uint8(75), f.light(t, vuMeterLight(Deck2)))

	f.eng.Set("[Channel2]", "VuMeter", 1)
	assert.Equal(t, uint8(0x7F), f.light(t, vuMeterLight(Deck2)))
}

func TestTrackLoadedLight(t *testing.T) {
	f := newFixture(t)
	f.c.Init()

	f.eng.Set("[Channel1]", "track_loaded", 0)
	assert.Equal(t, lights.Off, f.light(t, trackLoadedLight(Deck1)))
	f.eng.Set("[Channel1]", "track_loaded", 1)
	assert.Equal(t, lights.On, f.light(t, trackLoadedLight(Deck1)))
}

func TestUnknownDeckIsIgnored(t *testing.T) {
	f := newFixture(t)

	f.c.ShiftPressed(Deck(5), 0x7F)
	f.c.JogTouch(Deck(-1), 0x7F)
	f.c.DispatchPad(Deck(2), 0, 0x7F, "")

	assert.Empty(t, f.eng.Writes)
	assert.Empty(t, f.out.Sent)
	assert.Equal(t, DeckStatus{Deck: Deck(5)}, f.c.Status(Deck(5)))
}

func TestCueLoopCallScalesActiveLoop(t *testing.T) {
	f := newFixture(t)
	f.eng.Preset("[Channel1]", "loop_enabled", 1)

	f.c.CueLoopCallLeft(0x7F, "[Channel1]")
	f.c.CueLoopCallRight(0x7F, "[Channel1]")
	f.c.CueLoopCallRight(0x00, "[Channel1]")

	assert.Equal(t, []float64{0.5, 2}, f.eng.WritesTo("[Channel1]", "loop_scale"))
	assert.Empty(t, f.eng.WritesTo("[Channel1]", "playposition"))
}

func TestCueLoopCallJumpsBetweenPoints(t *testing.T) {
	f := newFixture(t)
	g := "[Channel1]"
	for pad := 2; pad <= NumPads; pad++ {
		f.eng.Preset(g, fmt.Sprintf("hotcue_%d_position", pad), -1)
	}
	f.eng.Preset(g, "hotcue_1_position", 700)
	f.eng.Preset(g, "cue_point", 100)
	f.eng.Preset(g, "loop_start_position", -1)
	f.eng.Preset(g, "loop_end_position", -1)
	f.eng.Preset(g, "track_samples", 1000)
	f.eng.Preset(g, "playposition", 0.5)

	f.c.CueLoopCallRight(0x7F, g)
	f.eng.Preset(g, "playposition", 0.5)
	f.c.CueLoopCallLeft(0x7F, g)

	assert.Equal(t, []float64{0.7, 0.1}, f.eng.WritesTo(g, "playposition"))
}

func TestWaveformZoomFollowsShift(t *testing.T) {
	f := newFixture(t)

	f.c.WaveformZoom(0x7F)
	f.c.ShiftPressed(Deck1, 0x7F)
	f.c.WaveformZoom(0x01)

	assert.Equal(t, []float64{1}, f.eng.WritesTo("[Channel2]", "waveform_zoom"))
	assert.Equal(t, []float64{-1}, f.eng.WritesTo("[Channel1]", "waveform_zoom"))
}
