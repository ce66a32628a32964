package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Callback receives an engine change notification
type Callback func(value float64, group, key string)

// Subscription is the handle returned by Subscribe
type Subscription struct {
	ID    uuid.UUID
	Group string
	Key   string
}

func (s Subscription) String() string {
	return fmt.Sprintf("%s%s#%s", s.Group, s.Key, s.ID.String()[:8])
}

// Engine is the narrow view the mapping has of the mixing engine. Writes are
// fire-and-forget; the engine validates ranges itself.
type Engine interface {
	Get(group, key string) float64
	Set(group, key string, value float64)

	Subscribe(group, key string, cb Callback) Subscription
	Unsubscribe(sub Subscription)

	BeginScratch(deck, resolution int, rpm, alpha, beta float64)
	ScratchTick(deck int, delta float64)
	EndScratch(deck int)

	SoftTakeover(group, key string, enable bool)
	SoftTakeoverIgnoreNextValue(group, key string)
}

var (
	_ Engine = (*Memory)(nil)
	_ Engine = (*OSC)(nil)
)

// Deliverer schedules a notification onto the dispatcher thread. The default
// runs it inline.
type Deliverer func(fn func())

func inline(fn func()) { fn() }

// Bool converts an engine value to a flag the way the engine does
func Bool(v float64) bool {
	return v != 0
}

// FromBool converts a flag to an engine value
func FromBool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
