package components

import (
	"github.com/hubertat/autogarden/pins"
	"github.com/pkg/errors"
)

func (n *node) inputs() []*pins.Input {
	switch n.kind {
	case KindShiftRegister:
		return n.register.inputs()
	case KindMultiplexer:
		return n.mux.inputs()
	case KindValve, KindPump:
		return []*pins.Input{n.actuator.input}
	case KindMoistureSensor:
		return []*pins.Input{n.moisture.input}
	case KindLiquidLevelSensor:
		return []*pins.Input{n.level.input}
	}
	return nil
}

// propagate asks component id to push the signals waiting on its outputs
// towards the hardware.
func (t *Tree) propagate(id ID) error {
	if id == NoID {
		return ErrDetached
	}

	n := t.node(id)
	switch n.kind {
	case KindMicrocontroller:
		return nil
	case KindShiftRegister:
		return t.propagateShiftRegister(n)
	case KindMultiplexer:
		return t.propagateMultiplexer(n)
	default:
		return t.propagate(n.parent)
	}
}

// perform writes s on a leaf input and propagates it up to the
// microcontroller. Reads come back in s.
func (t *Tree) perform(id ID, in *pins.Input, s *pins.Signal) error {
	n := t.node(id)

	err := in.Process(s)
	if err != nil {
		return errors.Wrap(err, n.name)
	}

	err = t.propagate(n.parent)
	if err != nil {
		t.logger.Debug("propagation failed", "component", n.name, "signal", s, "err", err)
		return errors.Wrapf(err, "%s", n.name)
	}
	return nil
}
