package drivers

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) String() string {
	if d == DirectionOutput {
		return "output"
	}
	return "input"
}

type BitOrder int

const (
	LsbFirst BitOrder = iota
	MsbFirst
)

func (bo BitOrder) String() string {
	if bo == MsbFirst {
		return "msb-first"
	}
	return "lsb-first"
}

// Hardware is the set of primitive pin operations the component tree is
// written against. Production back-ends talk to real pins, MockHardware
// records every call.
type Hardware interface {
	Setup(ctx context.Context) error
	Close() error
	String() string
	IsReady() bool

	SetPinDirection(pin uint16, dir Direction) error
	WriteDigital(pin uint16, level bool) error
	ReadDigital(pin uint16) (bool, error)
	WriteAnalog(pin uint16, value int) error
	ReadAnalog(pin uint16) (int, error)
	ShiftOut(dataPin, clockPin uint16, order BitOrder, bits int, word uint64) error
	Delay(d time.Duration)
}

var (
	ErrNotSupported = errors.New("operation not supported by hardware driver")
	ErrNotReady     = errors.New("hardware driver not ready")
)
