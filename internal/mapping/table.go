package mapping

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed ddj400.yaml
var defaultTable []byte

// Binding ties a set of incoming MIDI controls to one action
type Binding struct {
	Action string  `yaml:"action"`
	Deck   int     `yaml:"deck,omitempty"`
	Group  string  `yaml:"group,omitempty"`
	Status []uint8 `yaml:"status"`
	Data1  []uint8 `yaml:"data1"`
	Span   int     `yaml:"span,omitempty"`
	Arg    int     `yaml:"arg,omitempty"`
}

// Table is a complete controller mapping
type Table struct {
	Name     string    `yaml:"name"`
	Bindings []Binding `yaml:"bindings"`
}

// Default returns the built-in DDJ-400 table
func Default() (*Table, error) {
	t, err := Parse(defaultTable)
	if err != nil {
		return nil, errors.Wrap(err, "built-in mapping")
	}
	return t, nil
}

// Load reads a table from a YAML file
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read mapping %s", path)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping %s", path)
	}
	return t, nil
}

// Parse decodes and validates a YAML table
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "failed to parse mapping")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that every binding names a known action and a playable
// control, and that no two bindings claim the same control.
func (t *Table) Validate() error {
	seen := make(map[control]string)
	for i, b := range t.Bindings {
		if _, ok := actions[b.Action]; !ok {
			return errors.Errorf("binding %d: unknown action %q", i, b.Action)
		}
		if b.Deck < 0 || b.Deck > 2 {
			return errors.Errorf("binding %d (%s): deck %d out of range", i, b.Action, b.Deck)
		}
		if actions[b.Action].perDeck && b.Deck == 0 {
			return errors.Errorf("binding %d (%s): needs a deck", i, b.Action)
		}
		if len(b.Status) == 0 || len(b.Data1) == 0 {
			return errors.Errorf("binding %d (%s): no controls", i, b.Action)
		}
		if b.Span < 0 {
			return errors.Errorf("binding %d (%s): negative span", i, b.Action)
		}

		for _, c := range b.controls() {
			if c.status < 0x80 || c.status >= 0xF0 {
				return errors.Errorf("binding %d (%s): status 0x%02X is not a channel message", i, b.Action, c.status)
			}
			if c.data1 > 0x7F {
				return errors.Errorf("binding %d (%s): data byte 0x%02X out of range", i, b.Action, c.data1)
			}
			if prev, dup := seen[c.control]; dup {
				return errors.Errorf("binding %d (%s): control %02X %02X already bound to %s",
					i, b.Action, c.status, c.data1, prev)
			}
			seen[c.control] = b.Action
		}
	}
	return nil
}

type control struct {
	status uint8
	data1  uint8
}

type boundControl struct {
	control
	index int
}

// controls expands the binding into every control it matches
func (b Binding) controls() []boundControl {
	span := b.Span
	if span == 0 {
		span = 1
	}
	var out []boundControl
	for _, s := range b.Status {
		for _, start := range b.Data1 {
			for i := 0; i < span; i++ {
				out = append(out, boundControl{
					control: control{status: s, data1: start + uint8(i)},
					index:   i,
				})
			}
		}
	}
	return out
}
