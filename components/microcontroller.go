package components

import (
	"github.com/hubertat/autogarden/pins"
	"github.com/pkg/errors"
)

// ControllerPins lists the physical pins of a microcontroller by mode. The
// pool is built in this order: digital outputs, digital inputs, analog
// outputs, analog inputs.
type ControllerPins struct {
	DigitalOutput []uint16
	DigitalInput  []uint16
	AnalogOutput  []uint16
	AnalogInput   []uint16
}

func (cp ControllerPins) byMode() []struct {
	mode    pins.Mode
	numbers []uint16
} {
	return []struct {
		mode    pins.Mode
		numbers []uint16
	}{
		{pins.DigitalOutput, cp.DigitalOutput},
		{pins.DigitalInput, cp.DigitalInput},
		{pins.AnalogOutput, cp.AnalogOutput},
		{pins.AnalogInput, cp.AnalogInput},
	}
}

type controllerState struct {
	pins *pins.OutputSet
}

// Microcontroller is the root of a tree; its outputs are physical pins.
type Microcontroller struct {
	Component
}

func (t *Tree) NewMicrocontroller(name string, cp ControllerPins) (*Microcontroller, error) {
	used := make(map[uint16]pins.Mode)
	var terminals []*pins.Terminal
	for _, group := range cp.byMode() {
		for _, number := range group.numbers {
			if mode, taken := used[number]; taken {
				return nil, errors.Errorf("pin %d declared as %s and %s", number, mode, group.mode)
			}
			used[number] = group.mode
			terminals = append(terminals, pins.NewTerminal(t.hw, number, group.mode))
		}
	}

	c, err := t.add(name, KindMicrocontroller, &node{
		controller: &controllerState{pins: pins.NewTerminalSet(terminals...)},
	})
	if err != nil {
		return nil, err
	}
	return &Microcontroller{c}, nil
}

// Available counts pins of mode not yet claimed by any component.
func (m *Microcontroller) Available(mode pins.Mode) int {
	m.tree.lock.Lock()
	defer m.tree.lock.Unlock()

	return m.tree.node(m.id).controller.pins.Available(mode)
}

// Numbers lists the pins of mode, optionally only the free ones.
func (m *Microcontroller) Numbers(mode pins.Mode, freeOnly bool) (numbers []uint16) {
	m.tree.lock.Lock()
	defer m.tree.lock.Unlock()

	for _, terminal := range m.tree.node(m.id).controller.pins.Terminals() {
		if terminal.Mode() != mode || (freeOnly && terminal.Connected()) {
			continue
		}
		numbers = append(numbers, terminal.Number())
	}
	return
}
