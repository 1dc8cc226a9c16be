// Package sketch wraps generated statements in an Arduino program skeleton
// and describes the board the sketch runs on.
package sketch

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// Board defaults.
const (
	DefaultName     = "Rudiron Buterbrod R916"
	DefaultFQBN     = "Rudiron:MDR32F9Qx:buterbrodR916"
	DefaultBaud     = 9600
	DefaultPinCount = 36
)

// Pin modes accepted by pinMode.
const (
	ModeInput       = "INPUT"
	ModeOutput      = "OUTPUT"
	ModeInputPullup = "INPUT_PULLUP"
)

var ErrInvalidProfile = errors.New("sketch: invalid board profile")

// Pin overrides the mode of one pin.
type Pin struct {
	Number int    `toml:"number"`
	Mode   string `toml:"mode"`
}

// Profile describes the target board: serial speed and how every pin is
// configured in setup().
type Profile struct {
	Name     string `toml:"name"`
	FQBN     string `toml:"fqbn"`
	Baud     int    `toml:"baud"`
	PinCount int    `toml:"pin_count"`
	// Pins lists the pins whose mode differs from INPUT.
	Pins []Pin `toml:"pin"`
}

// DefaultProfile returns the stock board with every pin as INPUT.
func DefaultProfile() Profile {
	return Profile{
		Name:     DefaultName,
		FQBN:     DefaultFQBN,
		Baud:     DefaultBaud,
		PinCount: DefaultPinCount,
	}
}

// ParseProfile decodes a TOML profile. Keys missing from data keep their
// default values.
func ParseProfile(data []byte) (Profile, error) {
	p := DefaultProfile()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("sketch: parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadProfile reads a TOML profile from path.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("sketch: read profile: %w", err)
	}
	return ParseProfile(data)
}

// Marshal encodes p as TOML.
func (p Profile) Marshal() ([]byte, error) {
	return toml.Marshal(p)
}

// Validate checks baud rate, pin numbers, and modes.
func (p Profile) Validate() error {
	if p.Baud <= 0 {
		return fmt.Errorf("%w: baud %d", ErrInvalidProfile, p.Baud)
	}
	if p.PinCount < 0 {
		return fmt.Errorf("%w: pin_count %d", ErrInvalidProfile, p.PinCount)
	}
	seen := map[int]bool{}
	for _, pin := range p.Pins {
		if pin.Number < 0 || pin.Number >= p.PinCount {
			return fmt.Errorf("%w: pin %d out of range 0..%d", ErrInvalidProfile, pin.Number, p.PinCount-1)
		}
		if !slices.Contains([]string{ModeInput, ModeOutput, ModeInputPullup}, pin.Mode) {
			return fmt.Errorf("%w: pin %d mode %q", ErrInvalidProfile, pin.Number, pin.Mode)
		}
		if seen[pin.Number] {
			return fmt.Errorf("%w: pin %d listed twice", ErrInvalidProfile, pin.Number)
		}
		seen[pin.Number] = true
	}
	return nil
}

// Modes returns the mode of every pin, indexed by pin number.
func (p Profile) Modes() []string {
	modes := make([]string, p.PinCount)
	for i := range modes {
		modes[i] = ModeInput
	}
	for _, pin := range p.Pins {
		if pin.Number >= 0 && pin.Number < len(modes) {
			modes[pin.Number] = pin.Mode
		}
	}
	return modes
}

// SetMode changes the mode of one pin. p is left unchanged on error.
func (p *Profile) SetMode(number int, mode string) error {
	next := *p
	next.Pins = slices.Clone(p.Pins)
	if i := slices.IndexFunc(next.Pins, func(pin Pin) bool { return pin.Number == number }); i >= 0 {
		next.Pins[i].Mode = mode
	} else {
		next.Pins = append(next.Pins, Pin{Number: number, Mode: mode})
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*p = next
	return nil
}
