package ddj400

import "fmt"

// Deck is one of the two playback channels, 0 or 1
type Deck int

const (
	Deck1 Deck = iota
	Deck2

	NumDecks = 2
)

// Valid reports whether d names a physical deck
func (d Deck) Valid() bool {
	return d >= Deck1 && d < NumDecks
}

// Number is the 1-based deck number the engine uses for scratching
func (d Deck) Number() int {
	return int(d) + 1
}

// Group is the engine group of the deck
func (d Deck) Group() string {
	return fmt.Sprintf("[Channel%d]", d.Number())
}

// DeckFromGroup resolves "[Channel1]" / "[Channel2]"
func DeckFromGroup(group string) (Deck, bool) {
	var n int
	if _, err := fmt.Sscanf(group, "[Channel%d]", &n); err != nil {
		return 0, false
	}
	d := Deck(n - 1)
	return d, d.Valid()
}

// PadMode is the active interpretation of a deck's pad grid. The value is the
// data byte of the mode select button.
type PadMode uint8

const (
	PadModeHotCue   PadMode = 0x1B
	PadModeBeatLoop PadMode = 0x6D
	PadModeBeatJump PadMode = 0x20
	PadModeSampler  PadMode = 0x22
	PadModeKeyboard PadMode = 0x69
	PadModePadFx1   PadMode = 0x1E
	PadModePadFx2   PadMode = 0x6B
	PadModeKeyShift PadMode = 0x6F
)

// PadModes lists every mode in selector order
var PadModes = []PadMode{
	PadModeHotCue,
	PadModeBeatLoop,
	PadModeBeatJump,
	PadModeSampler,
	PadModeKeyboard,
	PadModePadFx1,
	PadModePadFx2,
	PadModeKeyShift,
}

// Valid reports whether m is a known mode code
func (m PadMode) Valid() bool {
	for _, known := range PadModes {
		if m == known {
			return true
		}
	}
	return false
}

func (m PadMode) String() string {
	switch m {
	case PadModeHotCue:
		return "hotcue"
	case PadModeBeatLoop:
		return "beatloop"
	case PadModeBeatJump:
		return "beatjump"
	case PadModeSampler:
		return "sampler"
	case PadModeKeyboard:
		return "keyboard"
	case PadModePadFx1:
		return "padfx1"
	case PadModePadFx2:
		return "padfx2"
	case PadModeKeyShift:
		return "keyshift"
	default:
		return fmt.Sprintf("padmode(0x%02X)", uint8(m))
	}
}

// Abbrev is a two-letter label for the mode
func (m PadMode) Abbrev() string {
	switch m {
	case PadModeHotCue:
		return "HC"
	case PadModeBeatLoop:
		return "BL"
	case PadModeBeatJump:
		return "BJ"
	case PadModeSampler:
		return "SM"
	case PadModeKeyboard:
		return "KB"
	case PadModePadFx1:
		return "F1"
	case PadModePadFx2:
		return "F2"
	case PadModeKeyShift:
		return "KS"
	default:
		return "??"
	}
}

// JogState is the per-deck jog wheel state
type JogState int

const (
	JogIdle JogState = iota
	JogTouched
	JogScratching
)

func (s JogState) String() string {
	switch s {
	case JogTouched:
		return "touched"
	case JogScratching:
		return "scratching"
	default:
		return "idle"
	}
}

// LoopAdjust is which loop boundary the jog wheel currently moves
type LoopAdjust int

const (
	LoopAdjustOff LoopAdjust = iota
	LoopAdjustIn
	LoopAdjustOut
)

func (a LoopAdjust) String() string {
	switch a {
	case LoopAdjustIn:
		return "in"
	case LoopAdjustOut:
		return "out"
	default:
		return "off"
	}
}

// NumPads is the size of one deck's pad grid
const NumPads = 8

// deckState is everything the mapping remembers about one deck. The loop
// adjust flags are a single field so they cannot both be set.
type deckState struct {
	padMode    PadMode
	shift      bool
	loopAdjust LoopAdjust
	jog        JogState

	// keyboard mode
	keyboardHotCue  int // 1-based, 0 = none chosen yet
	keyboardPressed int

	// signed beat jump sizes per pad, scaled by SHIFT+pad 7/8
	beatjump [NumPads]float64
}

var defaultBeatjump = [NumPads]float64{-1, 1, -2, 2, -4, 4, -8, 8}

func newDeckState() deckState {
	return deckState{
		padMode:  PadModeHotCue,
		beatjump: defaultBeatjump,
	}
}

// DeckStatus is a read-only snapshot of a deck
type DeckStatus struct {
	Deck         Deck
	PadMode      PadMode
	Shift        bool
	AdjustingIn  bool
	AdjustingOut bool
	Jog          JogState
}
