package components

import (
	"github.com/hubertat/autogarden/pins"
	"github.com/pkg/errors"
)

const maxSelectLines = 8

type multiplexerState struct {
	selects []*pins.Input
	shared  *pins.Input
	enable  *pins.Input

	channels  *pins.OutputSet
	activeLow bool
	enabled   bool
}

func (m *multiplexerState) inputs() []*pins.Input {
	return append([]*pins.Input{m.enable, m.shared}, m.selects...)
}

func (m *multiplexerState) setEnabled(on bool) error {
	level := pins.Low
	if on != m.activeLow {
		level = pins.High
	}

	err := m.enable.Process(pins.DigitalWriteSignal(level))
	if err != nil {
		return errors.Wrap(err, "enable line")
	}
	m.enabled = on
	return nil
}

// selectChannel drives the select lines with the channel number, line 0
// carrying the least significant bit.
func (m *multiplexerState) selectChannel(channel int) error {
	for i, line := range m.selects {
		level := pins.Low
		if channel&(1<<uint(i)) != 0 {
			level = pins.High
		}
		err := line.Process(pins.DigitalWriteSignal(level))
		if err != nil {
			return errors.Wrapf(err, "select line %d", i)
		}
	}
	return nil
}

// next pops the pending signal of the lowest numbered channel.
func (m *multiplexerState) next() (int, *pins.Signal) {
	for _, ch := range m.channels.Channels() {
		if s := ch.Pop(); s != nil {
			return ch.Index(), s
		}
	}
	return 0, nil
}

// MultiplexerOptions describe an analog/digital multiplexer such as the
// CD74HC4067. Channels defaults to 2^SelectLines. The enable line is
// active low unless EnableActiveHigh is set.
type MultiplexerOptions struct {
	SelectLines      int
	Channels         int
	Mode             pins.Mode
	EnableActiveHigh bool
}

// Multiplexer routes one shared signal line to one of its channels at a
// time. Enable and shared lines are always physical pins of the
// microcontroller, select lines come from the parent.
type Multiplexer struct {
	Component
}

func (t *Tree) NewMultiplexer(name string, opts MultiplexerOptions) (*Multiplexer, error) {
	if opts.SelectLines < 1 || opts.SelectLines > maxSelectLines {
		return nil, errors.Errorf("multiplexer %s: %d select lines out of range (1..%d)", name, opts.SelectLines, maxSelectLines)
	}
	channels := opts.Channels
	if channels == 0 {
		channels = 1 << uint(opts.SelectLines)
	}
	if channels < 1 || channels > 1<<uint(opts.SelectLines) {
		return nil, errors.Errorf("multiplexer %s: %d select lines cannot address %d channels", name, opts.SelectLines, channels)
	}

	c, err := t.add(name, KindMultiplexer, &node{
		mux: &multiplexerState{
			selects:   pins.NewInputs(opts.SelectLines, pins.DigitalOutput),
			shared:    pins.NewInput(opts.Mode),
			enable:    pins.NewInput(pins.DigitalOutput),
			channels:  pins.NewChannelSet(channels, opts.Mode, true),
			activeLow: !opts.EnableActiveHigh,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Multiplexer{c}, nil
}

func (mx *Multiplexer) Enabled() bool {
	mx.tree.lock.Lock()
	defer mx.tree.lock.Unlock()

	return mx.tree.node(mx.id).mux.enabled
}

func (mx *Multiplexer) Enable() error {
	return mx.setEnabled(true)
}

func (mx *Multiplexer) Disable() error {
	return mx.setEnabled(false)
}

func (mx *Multiplexer) setEnabled(on bool) error {
	mx.tree.lock.Lock()
	defer mx.tree.lock.Unlock()

	n := mx.tree.node(mx.id)
	return errors.Wrap(n.mux.setEnabled(on), n.name)
}

func (mx *Multiplexer) Available() int {
	mx.tree.lock.Lock()
	defer mx.tree.lock.Unlock()

	m := mx.tree.node(mx.id).mux
	return m.channels.Available(m.shared.Mode())
}

// propagateMultiplexer routes the pending channel: disable, put a write on
// the shared line, select the channel, let the parent latch the select
// lines, enable. A read is sampled on the shared line once enabled.
func (t *Tree) propagateMultiplexer(n *node) error {
	m := n.mux

	err := m.setEnabled(false)
	if err != nil {
		return errors.Wrap(err, n.name)
	}

	channel, s := m.next()
	if s == nil {
		return errors.Wrap(ErrNothingToRoute, n.name)
	}

	if !s.IsRead() {
		err = m.shared.Process(s)
		if err != nil {
			return errors.Wrapf(err, "%s signal line", n.name)
		}
	}

	err = m.selectChannel(channel)
	if err != nil {
		return errors.Wrapf(err, "%s selecting channel %d", n.name, channel)
	}

	err = t.propagate(n.parent)
	if err != nil {
		return err
	}

	err = m.setEnabled(true)
	if err != nil {
		return errors.Wrap(err, n.name)
	}

	if s.IsRead() {
		err = m.shared.Process(s)
		if err != nil {
			return errors.Wrapf(err, "%s signal line", n.name)
		}
	}
	return nil
}
