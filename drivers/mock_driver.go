package drivers

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

const mockDriverName = "mock"

type Op int

const (
	OpSetDirection Op = iota
	OpWriteDigital
	OpReadDigital
	OpWriteAnalog
	OpReadAnalog
	OpShiftOut
	OpDelay
)

var opNames = map[Op]string{
	OpSetDirection: "direction",
	OpWriteDigital: "digitalWrite",
	OpReadDigital:  "digitalRead",
	OpWriteAnalog:  "analogWrite",
	OpReadAnalog:   "analogRead",
	OpShiftOut:     "shiftOut",
	OpDelay:        "delay",
}

func (op Op) String() string {
	return opNames[op]
}

// Call is one primitive recorded by MockHardware. Value holds the level
// (0 or 1) for digital ops, the raw value for analog ops and the word for
// shiftOut.
type Call struct {
	Op        Op
	Pin       uint16
	ClockPin  uint16
	Value     int
	Direction Direction
	Order     BitOrder
	Bits      int
	Word      uint64
	Duration  time.Duration
}

func (c Call) String() string {
	switch c.Op {
	case OpSetDirection:
		return fmt.Sprintf("%s(%d, %s)", c.Op, c.Pin, c.Direction)
	case OpShiftOut:
		return fmt.Sprintf("%s(%d, %d, %s, %0*b)", c.Op, c.Pin, c.ClockPin, c.Order, c.Bits, c.Word)
	case OpDelay:
		return fmt.Sprintf("%s(%s)", c.Op, c.Duration)
	case OpReadDigital, OpReadAnalog:
		return fmt.Sprintf("%s(%d) = %d", c.Op, c.Pin, c.Value)
	default:
		return fmt.Sprintf("%s(%d, %d)", c.Op, c.Pin, c.Value)
	}
}

func DigitalWriteCall(pin uint16, level bool) Call {
	return Call{Op: OpWriteDigital, Pin: pin, Value: boolToLevel(level)}
}

func ShiftOutCall(dataPin, clockPin uint16, order BitOrder, bits int, word uint64) Call {
	return Call{Op: OpShiftOut, Pin: dataPin, ClockPin: clockPin, Order: order, Bits: bits, Word: word, Value: int(word)}
}

// MockHardware records every primitive it is asked to perform and serves
// reads from configurable input values. Pins listed in Failing return an
// error on any operation.
type MockHardware struct {
	DigitalInputs map[uint16]bool
	AnalogInputs  map[uint16]int
	Failing       map[uint16]error
	RealDelay     bool

	calls  []Call
	levels map[uint16]int
	ready  bool

	writeTo          io.Writer
	writeStateChange bool

	lock sync.Mutex
}

func NewMockHardware() *MockHardware {
	return &MockHardware{
		DigitalInputs: map[uint16]bool{},
		AnalogInputs:  map[uint16]int{},
		Failing:       map[uint16]error{},
	}
}

func boolToLevel(level bool) int {
	if level {
		return 1
	}
	return 0
}

func (md *MockHardware) record(c Call) {
	md.calls = append(md.calls, c)
}

func (md *MockHardware) failure(pins ...uint16) error {
	for _, pin := range pins {
		if err, failing := md.Failing[pin]; failing {
			if err == nil {
				err = fmt.Errorf("mock pin %d failure", pin)
			}
			return err
		}
	}
	return nil
}

func (md *MockHardware) setLevel(pin uint16, value int) {
	if md.levels == nil {
		md.levels = make(map[uint16]int)
	}
	previous, known := md.levels[pin]
	if md.writeStateChange && (!known || previous != value) {
		fmt.Fprintf(md.writeTo, "[pin %d] state changed to %d\n", pin, value)
	}
	md.levels[pin] = value
}

func (md *MockHardware) Setup(ctx context.Context) error {
	md.lock.Lock()
	defer md.lock.Unlock()

	md.ready = true
	return nil
}

func (md *MockHardware) Close() error {
	md.lock.Lock()
	defer md.lock.Unlock()

	md.ready = false
	return nil
}

func (md *MockHardware) String() string {
	return mockDriverName
}

func (md *MockHardware) IsReady() bool {
	md.lock.Lock()
	defer md.lock.Unlock()

	return md.ready
}

func (md *MockHardware) SetPinDirection(pin uint16, dir Direction) error {
	md.lock.Lock()
	defer md.lock.Unlock()

	if err := md.failure(pin); err != nil {
		return err
	}
	md.record(Call{Op: OpSetDirection, Pin: pin, Direction: dir})
	return nil
}

func (md *MockHardware) WriteDigital(pin uint16, level bool) error {
	md.lock.Lock()
	defer md.lock.Unlock()

	if err := md.failure(pin); err != nil {
		return err
	}
	md.record(DigitalWriteCall(pin, level))
	md.setLevel(pin, boolToLevel(level))
	return nil
}

func (md *MockHardware) ReadDigital(pin uint16) (bool, error) {
	md.lock.Lock()
	defer md.lock.Unlock()

	if err := md.failure(pin); err != nil {
		return false, err
	}
	state := md.DigitalInputs[pin]
	md.record(Call{Op: OpReadDigital, Pin: pin, Value: boolToLevel(state)})
	return state, nil
}

func (md *MockHardware) WriteAnalog(pin uint16, value int) error {
	md.lock.Lock()
	defer md.lock.Unlock()

	if err := md.failure(pin); err != nil {
		return err
	}
	md.record(Call{Op: OpWriteAnalog, Pin: pin, Value: value})
	md.setLevel(pin, value)
	return nil
}

func (md *MockHardware) ReadAnalog(pin uint16) (int, error) {
	md.lock.Lock()
	defer md.lock.Unlock()

	if err := md.failure(pin); err != nil {
		return 0, err
	}
	value := md.AnalogInputs[pin]
	md.record(Call{Op: OpReadAnalog, Pin: pin, Value: value})
	return value, nil
}

func (md *MockHardware) ShiftOut(dataPin, clockPin uint16, order BitOrder, bits int, word uint64) error {
	md.lock.Lock()
	defer md.lock.Unlock()

	if err := md.failure(dataPin, clockPin); err != nil {
		return err
	}
	md.record(ShiftOutCall(dataPin, clockPin, order, bits, word))
	return nil
}

func (md *MockHardware) Delay(d time.Duration) {
	md.lock.Lock()
	md.record(Call{Op: OpDelay, Duration: d})
	realDelay := md.RealDelay
	md.lock.Unlock()

	if realDelay {
		time.Sleep(d)
	}
}

func (md *MockHardware) SetDigitalInput(pin uint16, state bool) {
	md.lock.Lock()
	defer md.lock.Unlock()

	if md.DigitalInputs == nil {
		md.DigitalInputs = make(map[uint16]bool)
	}
	md.DigitalInputs[pin] = state
}

func (md *MockHardware) SetAnalogInput(pin uint16, value int) {
	md.lock.Lock()
	defer md.lock.Unlock()

	if md.AnalogInputs == nil {
		md.AnalogInputs = make(map[uint16]int)
	}
	md.AnalogInputs[pin] = value
}

func (md *MockHardware) FailPin(pin uint16, err error) {
	md.lock.Lock()
	defer md.lock.Unlock()

	if md.Failing == nil {
		md.Failing = make(map[uint16]error)
	}
	md.Failing[pin] = err
}

// Calls returns a copy of everything recorded since the last Reset.
func (md *MockHardware) Calls() []Call {
	md.lock.Lock()
	defer md.lock.Unlock()

	calls := make([]Call, len(md.calls))
	copy(calls, md.calls)
	return calls
}

// Writes returns the recorded calls that change pin state.
func (md *MockHardware) Writes() (writes []Call) {
	for _, c := range md.Calls() {
		switch c.Op {
		case OpWriteDigital, OpWriteAnalog, OpShiftOut:
			writes = append(writes, c)
		}
	}
	return
}

func (md *MockHardware) Reset() {
	md.lock.Lock()
	defer md.lock.Unlock()

	md.calls = nil
}

// Level returns the last value written to pin.
func (md *MockHardware) Level(pin uint16) (value int, written bool) {
	md.lock.Lock()
	defer md.lock.Unlock()

	value, written = md.levels[pin]
	return
}

func (md *MockHardware) MonitorStateChanges(writer io.Writer) {
	md.lock.Lock()
	defer md.lock.Unlock()

	md.writeTo = writer
	md.writeStateChange = writer != nil
}
