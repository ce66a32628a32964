package ddj400

import "github.com/PixPMusic/gopher-deck/internal/lights"

// LED data bytes on the deck status (0x90 + deck)
const (
	ledLoopIn  uint8 = 0x10
	ledLoopOut uint8 = 0x11
	ledReloop  uint8 = 0x4D
)

// Pad LED bases on the pad status (0x97 deck 1, 0x99 deck 2)
const (
	padBaseHotCue   uint8 = 0x00
	padBasePadFx1   uint8 = 0x10
	padBaseBeatJump uint8 = 0x20
	padBaseSampler  uint8 = 0x30
	padBaseKeyboard uint8 = 0x40
	padBasePadFx2   uint8 = 0x50
	padBaseBeatLoop uint8 = 0x60
	padBaseKeyShift uint8 = 0x70
)

var (
	beatFxLight = lights.Address{Status: 0x94, Data1: 0x47}
)

func deckStatus(d Deck) uint8 {
	return 0x90 + uint8(d)
}

func padStatus(d Deck) uint8 {
	return 0x97 + 2*uint8(d)
}

func vuMeterLight(d Deck) lights.Address {
	return lights.Address{Status: 0xB0 + uint8(d), Data1: 0x02}
}

func trackLoadedLight(d Deck) lights.Address {
	return lights.Address{Status: 0x9F, Data1: 0x00 + uint8(d)}
}

func padModeLight(d Deck, m PadMode) lights.Address {
	return lights.Address{Status: deckStatus(d), Data1: uint8(m)}
}

func loopInLight(d Deck) lights.Address {
	return lights.Address{Status: deckStatus(d), Data1: ledLoopIn}
}

func loopOutLight(d Deck) lights.Address {
	return lights.Address{Status: deckStatus(d), Data1: ledLoopOut}
}

func reloopLight(d Deck) lights.Address {
	return lights.Address{Status: deckStatus(d), Data1: ledReloop}
}

func padLight(d Deck, base uint8, pad int) lights.Address {
	return lights.Address{Status: padStatus(d), Data1: base + uint8(pad)}
}

// beatjumpShiftLights are SHIFT+pad 7 and 8, the size down/up buttons
func beatjumpShiftLights(d Deck) [2]lights.Address {
	s := padStatus(d) + 1
	return [2]lights.Address{
		{Status: s, Data1: padBaseBeatJump + 6},
		{Status: s, Data1: padBaseBeatJump + 7},
	}
}

// pollSysEx asks the controller to report every control position
var pollSysEx = []byte{0x00, 0x40, 0x05, 0x00, 0x00, 0x02, 0x06, 0x00, 0x03, 0x01}
