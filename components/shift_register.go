package components

import (
	"github.com/hubertat/autogarden/drivers"
	"github.com/hubertat/autogarden/pins"
	"github.com/pkg/errors"
)

type shiftRegisterState struct {
	latch *pins.Input
	data  *pins.Input
	clock *pins.Input

	outputs *pins.OutputSet
	order   drivers.BitOrder
	enabled bool
}

func (sr *shiftRegisterState) inputs() []*pins.Input {
	return []*pins.Input{sr.latch, sr.data, sr.clock}
}

// word packs the last written level of every output, bit i for output i.
func (sr *shiftRegisterState) word() (word uint64) {
	for i, ch := range sr.outputs.Channels() {
		if ch.Level() == pins.High {
			word |= uint64(1) << uint(i)
		}
		ch.Clear()
	}
	return
}

// ShiftRegister is a serial-in parallel-out register (74HC595 style). Its
// outputs keep their last written state; every change shifts out the whole
// word.
type ShiftRegister struct {
	Component
}

func (t *Tree) NewShiftRegister(name string, outputs int, order drivers.BitOrder) (*ShiftRegister, error) {
	if outputs < 1 || outputs > 64 {
		return nil, errors.Errorf("shift register %s: %d outputs out of range (1..64)", name, outputs)
	}

	c, err := t.add(name, KindShiftRegister, &node{
		register: &shiftRegisterState{
			latch:   pins.NewInput(pins.DigitalOutput),
			data:    pins.NewInput(pins.DigitalOutput),
			clock:   pins.NewInput(pins.DigitalOutput),
			outputs: pins.NewChannelSet(outputs, pins.DigitalOutput, false),
			order:   order,
		},
	})
	if err != nil {
		return nil, err
	}
	return &ShiftRegister{c}, nil
}

// Word returns the bit pattern currently latched on the outputs.
func (sr *ShiftRegister) Word() (word uint64) {
	sr.tree.lock.Lock()
	defer sr.tree.lock.Unlock()

	for i, ch := range sr.tree.node(sr.id).register.outputs.Channels() {
		if ch.Level() == pins.High {
			word |= uint64(1) << uint(i)
		}
	}
	return
}

func (sr *ShiftRegister) Enabled() bool {
	sr.tree.lock.Lock()
	defer sr.tree.lock.Unlock()

	return sr.tree.node(sr.id).register.enabled
}

func (sr *ShiftRegister) Available() int {
	sr.tree.lock.Lock()
	defer sr.tree.lock.Unlock()

	return sr.tree.node(sr.id).register.outputs.Available(pins.DigitalOutput)
}

// changed lists the outputs written since the last propagation.
func (sr *shiftRegisterState) changed() (channels []*pins.Channel) {
	for _, ch := range sr.outputs.Channels() {
		if ch.Pending() != nil {
			channels = append(channels, ch)
		}
	}
	return
}

// propagateShiftRegister latches the current output word: latch low, shift
// the word out on data and clock, latch high. Then the parent propagates.
// On failure the written outputs fall back to their latched levels.
func (t *Tree) propagateShiftRegister(n *node) (err error) {
	sr := n.register
	sr.enabled = false

	changed := sr.changed()
	defer func() {
		if err != nil {
			for _, ch := range changed {
				ch.Revert()
			}
		}
	}()

	for _, in := range sr.inputs() {
		if !in.Bound() {
			return errors.Wrapf(pins.ErrUnbound, "%s", n.name)
		}
	}
	data, dataPhysical := sr.data.Terminal()
	clock, clockPhysical := sr.clock.Terminal()
	if !dataPhysical || !clockPhysical {
		return errors.Wrapf(ErrNotPhysical, "%s data and clock", n.name)
	}

	word := sr.word()
	err = sr.latch.Process(pins.DigitalWriteSignal(pins.Low))
	if err != nil {
		return errors.Wrapf(err, "%s opening latch", n.name)
	}
	err = t.hw.ShiftOut(data.Number(), clock.Number(), sr.order, sr.outputs.Len(), word)
	if err != nil {
		return errors.Wrapf(err, "%s shifting out %b", n.name, word)
	}
	err = sr.latch.Process(pins.DigitalWriteSignal(pins.High))
	if err != nil {
		return errors.Wrapf(err, "%s closing latch", n.name)
	}

	err = t.propagate(n.parent)
	if err != nil {
		return err
	}

	sr.enabled = true
	return nil
}
