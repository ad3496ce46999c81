package pins

import (
	"fmt"

	"github.com/hubertat/autogarden/drivers"
	"github.com/pkg/errors"
)

type SignalKind int

const (
	WriteDigital SignalKind = iota
	WriteAnalog
	ReadDigital
	ReadAnalog
)

var signalKindNames = map[SignalKind]string{
	WriteDigital: "digitalWrite",
	WriteAnalog:  "analogWrite",
	ReadDigital:  "digitalRead",
	ReadAnalog:   "analogRead",
}

func (k SignalKind) String() string {
	return signalKindNames[k]
}

// Signal is one pin operation travelling from a leaf component towards the
// microcontroller. For reads Value is filled in once a terminal executes it.
type Signal struct {
	Kind     SignalKind
	Value    int
	Executed bool
}

func DigitalWriteSignal(value int) *Signal {
	return &Signal{Kind: WriteDigital, Value: value}
}

func AnalogWriteSignal(value int) *Signal {
	return &Signal{Kind: WriteAnalog, Value: value}
}

func DigitalReadSignal() *Signal {
	return &Signal{Kind: ReadDigital}
}

func AnalogReadSignal() *Signal {
	return &Signal{Kind: ReadAnalog}
}

// Mode is the pin mode a signal can be executed on.
func (s *Signal) Mode() Mode {
	switch s.Kind {
	case WriteAnalog:
		return AnalogOutput
	case ReadDigital:
		return DigitalInput
	case ReadAnalog:
		return AnalogInput
	default:
		return DigitalOutput
	}
}

func (s *Signal) IsRead() bool {
	return s.Kind == ReadDigital || s.Kind == ReadAnalog
}

func (s *Signal) String() string {
	if s.IsRead() && !s.Executed {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", s.Kind, s.Value)
}

// Execute performs s on terminal pin t. A signal whose kind does not fit
// the pin mode is rejected before any hardware call.
func Execute(hw drivers.Hardware, s *Signal, t *Terminal) (err error) {
	if s == nil {
		return ErrNoSignal
	}
	if s.Mode() != t.mode {
		return errors.Wrapf(ErrModeMismatch, "%s on %s", s, t)
	}

	switch s.Kind {
	case WriteDigital:
		err = hw.WriteDigital(t.number, s.Value != Low)
	case WriteAnalog:
		err = hw.WriteAnalog(t.number, s.Value)
	case ReadDigital:
		var state bool
		state, err = hw.ReadDigital(t.number)
		s.Value = Low
		if state {
			s.Value = High
		}
	case ReadAnalog:
		s.Value, err = hw.ReadAnalog(t.number)
	}
	if err != nil {
		return errors.Wrapf(err, "%s on %s failed", s.Kind, t)
	}

	s.Executed = true
	return nil
}
