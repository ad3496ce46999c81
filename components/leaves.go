package components

import (
	"math"

	"github.com/hubertat/autogarden/pins"
	"github.com/pkg/errors"
)

// NullReading is returned by sensor reads that failed.
const NullReading = math.MinInt32

const (
	LevelOk  = "ok"
	LevelLow = "low"
)

type actuatorState struct {
	input    *pins.Input
	onValue  int
	offValue int
	active   bool
}

type moistureState struct {
	input  *pins.Input
	scaler float64
}

type levelState struct {
	input   *pins.Input
	okValue int
}

func newActuator(inverted bool) *actuatorState {
	a := &actuatorState{input: pins.NewInput(pins.DigitalOutput), onValue: pins.High, offValue: pins.Low}
	if inverted {
		a.onValue, a.offValue = pins.Low, pins.High
	}
	return a
}

func (t *Tree) actuate(id ID, on bool) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	a := t.node(id).actuator
	value := a.offValue
	if on {
		value = a.onValue
	}

	err := t.perform(id, a.input, pins.DigitalWriteSignal(value))
	if err != nil {
		return err
	}
	a.active = on
	return nil
}

func (t *Tree) isActive(id ID) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.node(id).actuator.active
}

// Valve is a solenoid valve switched by one digital line.
type Valve struct {
	Component
}

func (t *Tree) NewValve(name string, inverted bool) (*Valve, error) {
	c, err := t.add(name, KindValve, &node{actuator: newActuator(inverted)})
	if err != nil {
		return nil, err
	}
	return &Valve{c}, nil
}

func (v *Valve) Open() error {
	return v.tree.actuate(v.id, true)
}

func (v *Valve) Close() error {
	return v.tree.actuate(v.id, false)
}

// IsOpen reports the last state successfully written.
func (v *Valve) IsOpen() bool {
	return v.tree.isActive(v.id)
}

// Pump is a water pump switched by one digital line.
type Pump struct {
	Component
}

func (t *Tree) NewPump(name string, inverted bool) (*Pump, error) {
	c, err := t.add(name, KindPump, &node{actuator: newActuator(inverted)})
	if err != nil {
		return nil, err
	}
	return &Pump{c}, nil
}

func (p *Pump) Start() error {
	return p.tree.actuate(p.id, true)
}

func (p *Pump) Stop() error {
	return p.tree.actuate(p.id, false)
}

func (p *Pump) IsRunning() bool {
	return p.tree.isActive(p.id)
}

// MoistureSensor is a capacitive soil moisture probe on an analog line.
type MoistureSensor struct {
	Component
}

func (t *Tree) NewMoistureSensor(name string, scaler float64) (*MoistureSensor, error) {
	c, err := t.add(name, KindMoistureSensor, &node{
		moisture: &moistureState{input: pins.NewInput(pins.AnalogInput), scaler: scaler},
	})
	if err != nil {
		return nil, err
	}
	return &MoistureSensor{c}, nil
}

// Sample reads the raw analog value.
func (ms *MoistureSensor) Sample() (int, error) {
	ms.tree.lock.Lock()
	defer ms.tree.lock.Unlock()

	s := pins.AnalogReadSignal()
	err := ms.tree.perform(ms.id, ms.tree.node(ms.id).moisture.input, s)
	if err != nil {
		return NullReading, err
	}
	return s.Value, nil
}

// ReadRaw returns the raw analog value or NullReading.
func (ms *MoistureSensor) ReadRaw() int {
	value, err := ms.Sample()
	if err != nil {
		return NullReading
	}
	return value
}

// ReadScaled returns the reading multiplied by the sensor scaler.
// NullReading is passed through unscaled.
func (ms *MoistureSensor) ReadScaled() float64 {
	return ms.Scale(ms.ReadRaw())
}

func (ms *MoistureSensor) Scale(raw int) float64 {
	if raw == NullReading {
		return NullReading
	}

	ms.tree.lock.Lock()
	defer ms.tree.lock.Unlock()

	return ms.tree.node(ms.id).moisture.scaler * float64(raw)
}

// LiquidLevelSensor is a float switch on a digital input.
type LiquidLevelSensor struct {
	Component
}

func (t *Tree) NewLiquidLevelSensor(name string, okValue int) (*LiquidLevelSensor, error) {
	if okValue != pins.Low && okValue != pins.High {
		return nil, errors.Errorf("liquid level sensor %s: ok value must be %d or %d", name, pins.Low, pins.High)
	}

	c, err := t.add(name, KindLiquidLevelSensor, &node{
		level: &levelState{input: pins.NewInput(pins.DigitalInput), okValue: okValue},
	})
	if err != nil {
		return nil, err
	}
	return &LiquidLevelSensor{c}, nil
}

// Read returns LevelOk or LevelLow.
func (ls *LiquidLevelSensor) Read() (string, error) {
	ls.tree.lock.Lock()
	defer ls.tree.lock.Unlock()

	level := ls.tree.node(ls.id).level
	s := pins.DigitalReadSignal()
	err := ls.tree.perform(ls.id, level.input, s)
	if err != nil {
		return "", err
	}

	if s.Value == level.okValue {
		return LevelOk, nil
	}
	return LevelLow, nil
}
