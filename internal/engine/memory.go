package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Write is one Set call recorded by Memory
type Write struct {
	Group string
	Key   string
	Value float64
}

// ScratchTick is one ScratchTick call recorded by Memory
type ScratchTick struct {
	Deck  int
	Delta float64
}

// ScratchParams are the arguments of the last BeginScratch for a deck
type ScratchParams struct {
	Resolution int
	RPM        float64
	Alpha      float64
	Beta       float64
}

type param struct {
	group string
	key   string
}

type subscriber struct {
	id uuid.UUID
	cb Callback
}

// Memory is an in-process engine. It keeps parameter values in a map, notifies
// subscribers when a value changes and records every call for inspection. It
// is used by tests and by dry runs without an engine host.
type Memory struct {
	mu sync.Mutex

	values  map[param]float64
	subs    map[param][]subscriber
	deliver Deliverer

	scratching map[int]ScratchParams
	takeover   map[param]bool

	Writes       []Write
	Ticks        []ScratchTick
	IgnoredNext  []Write
	EndedScratch []int

	log logrus.FieldLogger
}

// NewMemory creates an empty in-memory engine
func NewMemory(log logrus.FieldLogger) *Memory {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Memory{
		values:     make(map[param]float64),
		subs:       make(map[param][]subscriber),
		deliver:    inline,
		scratching: make(map[int]ScratchParams),
		takeover:   make(map[param]bool),
		log:        log.WithField("component", "engine"),
	}
}

// SetDeliverer routes notifications through d
func (m *Memory) SetDeliverer(d Deliverer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d == nil {
		d = inline
	}
	m.deliver = d
}

// Get returns the current value, zero if never set
func (m *Memory) Get(group, key string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[param{group, key}]
}

// Set stores the value, records the write and notifies subscribers when the
// value changed
func (m *Memory) Set(group, key string, value float64) {
	m.mu.Lock()
	p := param{group, key}
	old, known := m.values[p]
	m.values[p] = value
	m.Writes = append(m.Writes, Write{Group: group, Key: key, Value: value})
	var subs []subscriber
	if !known || old != value {
		subs = append(subs, m.subs[p]...)
	}
	deliver := m.deliver
	m.mu.Unlock()

	for _, s := range subs {
		cb := s.cb
		deliver(func() { cb(value, group, key) })
	}
}

// Preset stores a value without recording a write or notifying anyone
func (m *Memory) Preset(group, key string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[param{group, key}] = value
}

// Subscribe registers cb for changes of group/key
func (m *Memory) Subscribe(group, key string, cb Callback) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := param{group, key}
	sub := Subscription{ID: uuid.New(), Group: group, Key: key}
	m.subs[p] = append(m.subs[p], subscriber{id: sub.ID, cb: cb})
	return sub
}

// Unsubscribe removes a subscription; unknown handles are ignored
func (m *Memory) Unsubscribe(sub Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := param{sub.Group, sub.Key}
	list := m.subs[p]
	for i, s := range list {
		if s.id == sub.ID {
			m.subs[p] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.subs[p]) == 0 {
		delete(m.subs, p)
	}
}

// Subscribers returns the number of live subscriptions for group/key
func (m *Memory) Subscribers(group, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[param{group, key}])
}

// TotalSubscribers returns the number of live subscriptions
func (m *Memory) TotalSubscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, list := range m.subs {
		n += len(list)
	}
	return n
}

func (m *Memory) BeginScratch(deck, resolution int, rpm, alpha, beta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scratching[deck] = ScratchParams{Resolution: resolution, RPM: rpm, Alpha: alpha, Beta: beta}
}

func (m *Memory) ScratchTick(deck int, delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scratching[deck]; !ok {
		m.log.Debugf("Scratch tick for deck %d without active scratch", deck)
	}
	m.Ticks = append(m.Ticks, ScratchTick{Deck: deck, Delta: delta})
}

func (m *Memory) EndScratch(deck int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scratching, deck)
	m.EndedScratch = append(m.EndedScratch, deck)
}

// Scratching reports whether deck has an active scratch and its parameters
func (m *Memory) Scratching(deck int) (ScratchParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.scratching[deck]
	return p, ok
}

func (m *Memory) SoftTakeover(group, key string, enable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.takeover[param{group, key}] = enable
}

// SoftTakeoverEnabled reports the soft takeover flag for group/key
func (m *Memory) SoftTakeoverEnabled(group, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takeover[param{group, key}]
}

func (m *Memory) SoftTakeoverIgnoreNextValue(group, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IgnoredNext = append(m.IgnoredNext, Write{Group: group, Key: key})
}

// WritesTo returns the recorded values written to group/key, oldest first
func (m *Memory) WritesTo(group, key string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var values []float64
	for _, w := range m.Writes {
		if w.Group == group && w.Key == key {
			values = append(values, w.Value)
		}
	}
	return values
}

// ResetLog drops the recorded calls but keeps values and subscriptions
func (m *Memory) ResetLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes = nil
	m.Ticks = nil
	m.IgnoredNext = nil
	m.EndedScratch = nil
}
