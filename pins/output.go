package pins

import (
	"fmt"

	"github.com/hubertat/autogarden/drivers"
	"github.com/pkg/errors"
)

// Output is an allocatable output pin: either a Terminal on the
// microcontroller or a Channel of an intermediary component.
type Output interface {
	Mode() Mode
	Connected() bool
	Process(s *Signal) error

	setConnected(connected bool)
}

// Terminal is a physical microcontroller pin.
type Terminal struct {
	number    uint16
	mode      Mode
	connected bool

	hw drivers.Hardware
}

func NewTerminal(hw drivers.Hardware, number uint16, mode Mode) *Terminal {
	return &Terminal{number: number, mode: mode, hw: hw}
}

func (t *Terminal) Number() uint16 {
	return t.number
}

func (t *Terminal) Mode() Mode {
	return t.mode
}

func (t *Terminal) Connected() bool {
	return t.connected
}

func (t *Terminal) setConnected(connected bool) {
	t.connected = connected
}

// Initialize sets the hardware pin direction matching the terminal mode.
func (t *Terminal) Initialize() error {
	return t.hw.SetPinDirection(t.number, t.mode.Direction())
}

func (t *Terminal) Process(s *Signal) error {
	return Execute(t.hw, s, t)
}

func (t *Terminal) String() string {
	return fmt.Sprintf("pin %d (%s)", t.number, t.mode)
}

// Channel is a logical output of a shift register or multiplexer. It holds
// the last signal written by the component bound to it until the owner
// routes it, and remembers the last written value.
type Channel struct {
	index     int
	mode      Mode
	connected bool

	pending   *Signal
	level     int
	prevLevel int
}

func NewChannel(index int, mode Mode) *Channel {
	return &Channel{index: index, mode: mode}
}

func (ch *Channel) Index() int {
	return ch.index
}

func (ch *Channel) Mode() Mode {
	return ch.mode
}

func (ch *Channel) Connected() bool {
	return ch.connected
}

func (ch *Channel) setConnected(connected bool) {
	ch.connected = connected
}

func (ch *Channel) Process(s *Signal) error {
	if s == nil {
		return ErrNoSignal
	}
	if s.Mode() != ch.mode {
		return errors.Wrapf(ErrModeMismatch, "%s on %s", s, ch)
	}

	ch.pending = s
	ch.prevLevel = ch.level
	if !s.IsRead() {
		ch.level = s.Value
	}
	return nil
}

// Revert drops the pending signal and restores the level from before the
// last Process, for routes that failed to reach the hardware.
func (ch *Channel) Revert() {
	ch.pending = nil
	ch.level = ch.prevLevel
}

func (ch *Channel) Pending() *Signal {
	return ch.pending
}

// Pop returns the pending signal and clears it.
func (ch *Channel) Pop() (s *Signal) {
	s, ch.pending = ch.pending, nil
	return
}

func (ch *Channel) Clear() {
	ch.pending = nil
}

// Level is the last value written through this channel.
func (ch *Channel) Level() int {
	return ch.level
}

func (ch *Channel) String() string {
	return fmt.Sprintf("channel %d (%s)", ch.index, ch.mode)
}
