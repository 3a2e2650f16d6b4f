package source

import "fmt"

// Kind tags an Event.
type Kind uint8

const (
	KindPulse Kind = iota + 1
	KindTick
	KindButton

	kindCount = iota + 1
)

func (k Kind) String() string {
	switch k {
	case KindPulse:
		return "pulse"
	case KindTick:
		return "tick"
	case KindButton:
		return "button"
	default:
		return "unknown"
	}
}

// Key identifies a user button.
type Key uint8

const (
	KeyUp Key = iota + 1
	KeyDown
	KeyLeft
	KeyRight
	KeyOk
	KeyBack
)

var keyNames = map[Key]string{
	KeyUp:    "up",
	KeyDown:  "down",
	KeyLeft:  "left",
	KeyRight: "right",
	KeyOk:    "ok",
	KeyBack:  "back",
}

func (k Key) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKey maps a lowercase key name to a Key.
func ParseKey(s string) (Key, error) {
	for k, name := range keyNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("source: unknown key %q", s)
}

// Press is how a button was pressed.
type Press uint8

const (
	PressShort Press = iota + 1
	PressLong
	PressRepeat
)

var pressNames = map[Press]string{
	PressShort:  "short",
	PressLong:   "long",
	PressRepeat: "repeat",
}

func (p Press) String() string {
	if s, ok := pressNames[p]; ok {
		return s
	}
	return "unknown"
}

// ParsePress maps a lowercase press name to a Press.
func ParsePress(s string) (Press, error) {
	for p, name := range pressNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("source: unknown press %q", s)
}

// Event is one unit of work for the dispatcher. Key and Press are only
// meaningful when Kind is KindButton.
type Event struct {
	Kind  Kind
	Key   Key
	Press Press
}

// Pulse, Tick and Button build events.
func Pulse() Event { return Event{Kind: KindPulse} }
func Tick() Event  { return Event{Kind: KindTick} }

func Button(k Key, p Press) Event {
	return Event{Kind: KindButton, Key: k, Press: p}
}

func (e Event) String() string {
	if e.Kind == KindButton {
		return fmt.Sprintf("button(%s,%s)", e.Key, e.Press)
	}
	return e.Kind.String()
}
