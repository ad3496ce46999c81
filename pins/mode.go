package pins

import (
	"strings"

	"github.com/hubertat/autogarden/drivers"
	"github.com/pkg/errors"
)

type Mode int

const (
	DigitalOutput Mode = iota
	DigitalInput
	AnalogOutput
	AnalogInput
)

const (
	Low  = 0
	High = 1
)

var modeNames = map[Mode]string{
	DigitalOutput: "digital_output",
	DigitalInput:  "digital_input",
	AnalogOutput:  "analog_output",
	AnalogInput:   "analog_input",
}

func (m Mode) String() string {
	name, known := modeNames[m]
	if !known {
		return "unknown"
	}
	return name
}

func (m Mode) IsOutput() bool {
	return m == DigitalOutput || m == AnalogOutput
}

func (m Mode) Direction() drivers.Direction {
	if m.IsOutput() {
		return drivers.DirectionOutput
	}
	return drivers.DirectionInput
}

func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for mode, modeName := range modeNames {
		if name == modeName {
			return mode, nil
		}
	}
	return 0, errors.Errorf("unknown pin mode: %s", name)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) (err error) {
	*m, err = ParseMode(string(text))
	return
}
