package ddj400

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/PixPMusic/gopher-deck/internal/engine"
	"github.com/PixPMusic/gopher-deck/internal/lights"
	"github.com/PixPMusic/gopher-deck/internal/timer"
	"github.com/sirupsen/logrus"
)

// Settings are the tunable constants of the mapping
type Settings struct {
	VinylMode          bool
	ScratchResolution  int
	ScratchRPM         float64
	ScratchAlpha       float64
	ScratchBeta        float64
	BendScale          float64
	HighspeedScale     float64
	LoopAdjustMultiply float64
	PointJumpSpace     float64
	TempoRanges        []float64
}

// DefaultSettings returns the stock DDJ-400 behaviour
func DefaultSettings() Settings {
	alpha := 1.0 / 8
	return Settings{
		VinylMode:          true,
		ScratchResolution:  720,
		ScratchRPM:         33 + 1.0/3,
		ScratchAlpha:       alpha,
		ScratchBeta:        alpha / 32,
		BendScale:          0.5,
		HighspeedScale:     150,
		LoopAdjustMultiply: 5,
		PointJumpSpace:     0.005,
		TempoRanges:        []float64{0.06, 0.10, 0.16, 0.25},
	}
}

// NumSamplers is the number of sampler decks mirrored on the pads
const NumSamplers = 16

// Controller is the whole mapping session: per-deck state, effect focus, the
// timer table and the engine subscriptions. Every method must be called from
// one goroutine; the dispatch loop guarantees that in production.
type Controller struct {
	engine   engine.Engine
	lights   *lights.Gateway
	timers   *timer.Scheduler
	settings Settings

	decks   [NumDecks]deckState
	highRes map[string]*highResState
	pads    map[PadMode]padFunc

	subs []engine.Subscription

	log logrus.FieldLogger
}

// New creates a controller session. Call Init before feeding events.
func New(eng engine.Engine, gw *lights.Gateway, timers *timer.Scheduler, settings Settings, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Controller{
		engine:   eng,
		lights:   gw,
		timers:   timers,
		settings: settings,
		highRes:  make(map[string]*highResState),
		log:      log.WithField("component", "ddj400"),
	}
	for d := range c.decks {
		c.decks[d] = newDeckState()
	}
	c.pads = c.padHandlers()
	return c
}

// Settings returns the active settings
func (c *Controller) Settings() Settings {
	return c.settings
}

// SetVinylMode switches between scratching and bending on jog touch
func (c *Controller) SetVinylMode(on bool) {
	c.settings.VinylMode = on
	c.log.Infof("Vinyl mode %v", on)
}

// Status returns a snapshot of deck d
func (c *Controller) Status(d Deck) DeckStatus {
	if !d.Valid() {
		return DeckStatus{Deck: d}
	}
	s := &c.decks[d]
	return DeckStatus{
		Deck:         d,
		PadMode:      s.padMode,
		Shift:        s.shift,
		AdjustingIn:  s.loopAdjust == LoopAdjustIn,
		AdjustingOut: s.loopAdjust == LoopAdjustOut,
		Jog:          s.jog,
	}
}

func (c *Controller) deck(d Deck) *deckState {
	if !d.Valid() {
		c.log.Debugf("Ignoring event for unknown deck %d", d)
		return nil
	}
	return &c.decks[d]
}

// Init resets the session and the controller LEDs to a known baseline,
// subscribes to the engine notifications the mapping mirrors and then shows
// the loops and samplers that are already running. It may be called again
// after Shutdown.
func (c *Controller) Init() {
	c.resetDecks()
	c.engine.Set(effectUnitGroup, "show_focus", 1)

	for d := Deck1; d < NumDecks; d++ {
		group := d.Group()
		c.subscribe(group, "VuMeter", c.onVuMeter)
		c.lights.SetLight(vuMeterLight(d), false)

		c.engine.SoftTakeover(group, "rate", true)

		c.subscribe(group, "track_loaded", c.onTrackLoaded)
		c.subscribe(group, "loop_enabled", c.onLoopEnabled)

		c.lights.SetLight(loopInLight(d), true)
		c.lights.SetLight(loopOutLight(d), true)
		c.lights.SetLight(reloopLight(d), false)
	}

	for i := 1; i <= NumSamplers; i++ {
		c.subscribe(samplerGroup(i), "play", c.onSamplerPlay)
	}

	// play the track-loaded animation on both decks
	c.lights.SetLight(trackLoadedLight(Deck1), true)
	c.lights.SetLight(trackLoadedLight(Deck2), true)

	c.resetPadModes()
	c.syncFromEngine()

	c.lights.SendSysEx(pollSysEx)
	c.log.Infof("Controller initialised with %d engine subscriptions", len(c.subs))
}

// Shutdown cancels every timer and subscription and turns off every LED the
// session ever lit.
func (c *Controller) Shutdown() {
	c.timers.StopAll()

	for _, sub := range c.subs {
		c.engine.Unsubscribe(sub)
	}
	c.subs = nil

	for d := Deck1; d < NumDecks; d++ {
		c.lights.SetLight(vuMeterLight(d), false)
	}

	for d := Deck1; d < NumDecks; d++ {
		for pad := 0; pad < NumPads; pad++ {
			for _, base := range []uint8{padBaseSampler, padBaseHotCue} {
				addr := padLight(d, base, pad)
				c.lights.SetLight(addr, false)
				c.lights.SetLight(addr.Shifted(), false)
			}
		}
	}

	c.lights.ExtinguishAll()
	c.log.Info("Controller shut down")
}

// resetDecks forgets every per-deck gesture, closing a scratch left open, and
// drops subscriptions from an earlier Init
func (c *Controller) resetDecks() {
	c.timers.StopAll()
	for _, sub := range c.subs {
		c.engine.Unsubscribe(sub)
	}
	c.subs = nil

	for d := Deck1; d < NumDecks; d++ {
		if c.decks[d].jog == JogScratching {
			c.engine.EndScratch(d.Number())
		}
		c.decks[d] = newDeckState()
	}
	c.highRes = make(map[string]*highResState)
}

// syncFromEngine lights what notifications alone would miss: subscriptions
// only report changes, so a loop or sampler already running stays dark
func (c *Controller) syncFromEngine() {
	for d := Deck1; d < NumDecks; d++ {
		if engine.Bool(c.engine.Get(d.Group(), "loop_enabled")) {
			c.LoopEnabledChanged(d, true)
		}
	}
	for n := 1; n <= NumSamplers; n++ {
		if c.engine.Get(samplerGroup(n), "play") == 1 {
			c.StartSamplerBlink(n)
		}
	}
}

func (c *Controller) subscribe(group, key string, cb engine.Callback) {
	c.subs = append(c.subs, c.engine.Subscribe(group, key, cb))
}

// resetPadModes puts both decks back in hot cue mode and shows it
func (c *Controller) resetPadModes() {
	for d := Deck1; d < NumDecks; d++ {
		for _, m := range PadModes {
			if m != PadModeHotCue {
				c.lights.SetLight(padModeLight(d, m), false)
			}
		}
		c.decks[d].padMode = PadModeHotCue
		c.lights.SetLight(padModeLight(d, PadModeHotCue), true)
	}
}

// ShiftPressed records the SHIFT state of deck d and updates the shift-only
// lights of the current pad mode.
func (c *Controller) ShiftPressed(d Deck, value uint8) {
	s := c.deck(d)
	if s == nil {
		return
	}
	s.shift = value > 0
	if s.padMode == PadModeBeatJump {
		for _, addr := range beatjumpShiftLights(d) {
			c.lights.Send(addr, value)
		}
	}
}

func (c *Controller) onVuMeter(value float64, group, _ string) {
	d, ok := DeckFromGroup(group)
	if !ok {
		return
	}
	v := value * 150
	if v > 0x7F {
		v = 0x7F
	}
	if v < 0 {
		v = 0
	}
	c.lights.Send(vuMeterLight(d), uint8(v))
}

func (c *Controller) onTrackLoaded(value float64, group, _ string) {
	d, ok := DeckFromGroup(group)
	if !ok {
		return
	}
	c.lights.SetLight(trackLoadedLight(d), engine.Bool(value))
}

// WaveformZoom turns the browse encoder into waveform zoom; SHIFT on deck 1
// selects deck 1, otherwise deck 2 is zoomed.
func (c *Controller) WaveformZoom(value uint8) {
	d := Deck2
	if c.decks[Deck1].shift {
		d = Deck1
	}
	step := -1.0
	if value > 0x64 {
		step = 1
	}
	group := d.Group()
	c.engine.Set(group, "waveform_zoom", c.engine.Get(group, "waveform_zoom")+step)
}

// CueLoopCallLeft halves an active loop, otherwise jumps back to the previous
// cue or loop point.
func (c *Controller) CueLoopCallLeft(value uint8, group string) {
	if value == 0 {
		return
	}
	if engine.Bool(c.engine.Get(group, "loop_enabled")) {
		c.engine.Set(group, "loop_scale", 0.5)
		return
	}

	current := c.engine.Get(group, "playposition") - c.settings.PointJumpSpace
	samples := c.engine.Get(group, "track_samples")
	if samples <= 0 {
		return
	}
	points := c.cuePoints(group)

	newPos := current
	for i := 1; i <= len(points); i++ {
		if i == len(points) || points[i] >= current*samples {
			newPos = points[i-1] / samples
			break
		}
	}
	c.engine.Set(group, "playposition", newPos)
}

// CueLoopCallRight doubles an active loop, otherwise jumps forward to the next
// cue or loop point.
func (c *Controller) CueLoopCallRight(value uint8, group string) {
	if value == 0 {
		return
	}
	if engine.Bool(c.engine.Get(group, "loop_enabled")) {
		c.engine.Set(group, "loop_scale", 2.0)
		return
	}

	current := c.engine.Get(group, "playposition")
	samples := c.engine.Get(group, "track_samples")
	if samples <= 0 {
		return
	}
	points := c.cuePoints(group)

	newPos := current
	for _, p := range points {
		if p > current*samples {
			newPos = p / samples
			break
		}
	}
	c.engine.Set(group, "playposition", newPos)
}

// cuePoints returns every hot cue, the main cue and both loop boundaries in
// samples, ascending
func (c *Controller) cuePoints(group string) []float64 {
	points := make([]float64, 0, NumPads+3)
	for pad := 1; pad <= NumPads; pad++ {
		points = append(points, c.engine.Get(group, fmt.Sprintf("hotcue_%d_position", pad)))
	}
	points = append(points,
		c.engine.Get(group, "cue_point"),
		c.engine.Get(group, "loop_start_position"),
		c.engine.Get(group, "loop_end_position"),
	)
	sort.Float64s(points)
	return points
}

var samplerGroupRe = regexp.MustCompile(`^\[Sampler(\d+)\]$`)

func samplerGroup(n int) string {
	return fmt.Sprintf("[Sampler%d]", n)
}

// samplerFromGroup resolves "[SamplerN]" to N
func samplerFromGroup(group string) (int, bool) {
	m := samplerGroupRe.FindStringSubmatch(group)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > NumSamplers {
		return 0, false
	}
	return n, true
}
