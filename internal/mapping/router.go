package mapping

import (
	"github.com/PixPMusic/gopher-deck/internal/ddj400"
	"github.com/sirupsen/logrus"
)

// Event is one decoded control change
type Event struct {
	Deck  ddj400.Deck
	Group string
	Data1 uint8
	Index int
	Value uint8
	Arg   int
}

type handlerFunc func(c *ddj400.Controller, ev Event)

type action struct {
	perDeck bool
	handle  handlerFunc
}

var actions = map[string]action{
	"shift": {true, func(c *ddj400.Controller, ev Event) {
		c.ShiftPressed(ev.Deck, ev.Value)
	}},
	"jog_touch": {true, func(c *ddj400.Controller, ev Event) {
		c.JogTouch(ev.Deck, ev.Value)
	}},
	"jog_turn": {true, func(c *ddj400.Controller, ev Event) {
		c.JogTurn(ev.Deck, ev.Value, ev.Group)
	}},
	"jog_search": {true, func(c *ddj400.Controller, ev Event) {
		c.JogSearch(ev.Value, ev.Group)
	}},
	"tempo_msb": {true, func(c *ddj400.Controller, ev Event) {
		c.TempoSliderMSB(ev.Group, ev.Value)
	}},
	"tempo_lsb": {true, func(c *ddj400.Controller, ev Event) {
		c.TempoSliderLSB(ev.Group, ev.Value)
	}},
	"tempo_range": {true, func(c *ddj400.Controller, ev Event) {
		c.CycleTempoRange(ev.Value, ev.Group)
	}},
	"pad_mode": {true, func(c *ddj400.Controller, ev Event) {
		c.SetPadMode(ev.Deck, ev.Data1, ev.Value)
	}},
	"pad": {true, func(c *ddj400.Controller, ev Event) {
		// pads leave the group to the active mode
		c.DispatchPad(ev.Deck, ev.Index, ev.Value, "")
	}},
	"loop_in": {true, func(c *ddj400.Controller, ev Event) {
		c.LoopInPressed(ev.Deck, ev.Value, ev.Group)
	}},
	"loop_out": {true, func(c *ddj400.Controller, ev Event) {
		c.LoopOutPressed(ev.Deck, ev.Value, ev.Group)
	}},
	"cue_loop_left": {true, func(c *ddj400.Controller, ev Event) {
		c.CueLoopCallLeft(ev.Value, ev.Group)
	}},
	"cue_loop_right": {true, func(c *ddj400.Controller, ev Event) {
		c.CueLoopCallRight(ev.Value, ev.Group)
	}},
	"fx_select": {false, func(c *ddj400.Controller, ev Event) {
		c.SelectFxSlot(ev.Arg, ev.Value)
	}},
	"fx_level": {false, func(c *ddj400.Controller, ev Event) {
		c.BeatFxLevelDepth(ev.Value)
	}},
	"fx_on_off": {false, func(c *ddj400.Controller, ev Event) {
		c.BeatFxOnOff(ev.Value)
	}},
	"fx_kill_all": {false, func(c *ddj400.Controller, ev Event) {
		c.BeatFxKillAll(ev.Value)
	}},
	"fx_channel": {false, func(c *ddj400.Controller, ev Event) {
		c.BeatFxChannel(ev.Data1, ev.Value)
	}},
	"waveform_zoom": {false, func(c *ddj400.Controller, ev Event) {
		c.WaveformZoom(ev.Value)
	}},
}

type route struct {
	action handlerFunc
	name   string
	deck   ddj400.Deck
	group  string
	index  int
	arg    int
}

// Router turns raw MIDI messages into controller calls
type Router struct {
	controller *ddj400.Controller
	routes     map[control]route
	log        logrus.Ext1FieldLogger
}

// NewRouter compiles table into a lookup for c. The table is validated
// first.
func NewRouter(c *ddj400.Controller, t *Table, log logrus.FieldLogger) (*Router, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Router{
		controller: c,
		routes:     make(map[control]route),
		log:        log.WithField("component", "mapping"),
	}
	for _, b := range t.Bindings {
		deck := ddj400.Deck(b.Deck - 1)
		group := b.Group
		if group == "" && b.Deck > 0 {
			group = deck.Group()
		}
		for _, bc := range b.controls() {
			r.routes[bc.control] = route{
				action: actions[b.Action].handle,
				name:   b.Action,
				deck:   deck,
				group:  group,
				index:  bc.index,
				arg:    b.Arg,
			}
		}
	}
	r.log.Infof("Loaded mapping %q with %d controls", t.Name, len(r.routes))
	return r, nil
}

// Len returns the number of bound controls
func (r *Router) Len() int {
	return len(r.routes)
}

// Handle routes one raw MIDI message. Note off is treated as note on with
// velocity zero. It reports whether the message was bound.
func (r *Router) Handle(msg []byte) bool {
	if len(msg) < 3 {
		return false
	}
	status, data1, value := msg[0], msg[1]&0x7F, msg[2]&0x7F
	if status >= 0x80 && status <= 0x8F {
		status += 0x10
		value = 0
	}
	return r.HandleMessage(status, data1, value)
}

// HandleMessage routes a decoded channel message
func (r *Router) HandleMessage(status, data1, value uint8) bool {
	rt, ok := r.routes[control{status: status, data1: data1}]
	if !ok {
		r.log.Tracef("Unbound control %02X %02X %02X", status, data1, value)
		return false
	}
	r.log.Tracef("%s %02X %02X %02X", rt.name, status, data1, value)
	rt.action(r.controller, Event{
		Deck:  rt.deck,
		Group: rt.group,
		Data1: data1,
		Index: rt.index,
		Value: value,
		Arg:   rt.arg,
	})
	return true
}
