package pins

import "github.com/pkg/errors"

// OutputSet is the ordered pool of outputs a component offers to its
// children. The order never changes after construction and allocation
// always takes the first free outputs of the requested mode.
//
// In an exclusive set a signal written to one output clears the pending
// signals of all others, so at most one channel waits to be routed.
type OutputSet struct {
	outputs   []Output
	exclusive bool
}

func NewOutputSet(outputs ...Output) *OutputSet {
	return &OutputSet{outputs: outputs}
}

func NewTerminalSet(terminals ...*Terminal) *OutputSet {
	set := &OutputSet{}
	for _, t := range terminals {
		set.outputs = append(set.outputs, t)
	}
	return set
}

func NewChannelSet(count int, mode Mode, exclusive bool) *OutputSet {
	set := &OutputSet{exclusive: exclusive}
	for i := 0; i < count; i++ {
		set.outputs = append(set.outputs, NewChannel(i, mode))
	}
	return set
}

func (set *OutputSet) Len() int {
	return len(set.outputs)
}

func (set *OutputSet) At(index int) Output {
	return set.outputs[index]
}

func (set *OutputSet) Exclusive() bool {
	return set.exclusive
}

// Available counts outputs of the given mode nobody is connected to.
func (set *OutputSet) Available(mode Mode) (count int) {
	for _, out := range set.outputs {
		if !out.Connected() && out.Mode() == mode {
			count++
		}
	}
	return
}

func (set *OutputSet) HasAvailable(count int, mode Mode) bool {
	return set.Available(mode) >= count
}

func (set *OutputSet) hasMode(mode Mode) bool {
	for _, out := range set.outputs {
		if out.Mode() == mode {
			return true
		}
	}
	return false
}

// Allocate claims up to count free outputs of mode, in pool order, and
// returns views on them. Fewer views than requested means the pool ran out.
func (set *OutputSet) Allocate(count int, mode Mode) (views []View) {
	for i, out := range set.outputs {
		if len(views) >= count {
			break
		}
		if out.Connected() || out.Mode() != mode {
			continue
		}
		out.setConnected(true)
		views = append(views, View{set: set, index: i})
	}
	return
}

// Connect binds every input to a free output of its mode. Either all
// inputs get bound or the set is left untouched.
func (set *OutputSet) Connect(inputs ...*Input) error {
	need := make(map[Mode]int)
	for _, in := range inputs {
		if in.Bound() {
			return ErrAlreadyBound
		}
		need[in.mode]++
	}

	for mode, count := range need {
		if !set.hasMode(mode) {
			return errors.Wrapf(ErrModeMismatch, "no %s outputs", mode)
		}
		if !set.HasAvailable(count, mode) {
			return errors.Wrapf(ErrPinsExhausted, "need %d %s, %d available", count, mode, set.Available(mode))
		}
	}

	for _, in := range inputs {
		views := set.Allocate(1, in.mode)
		in.bound = &views[0]
	}
	return nil
}

// Terminals returns the physical pins of the set, in order.
func (set *OutputSet) Terminals() (terminals []*Terminal) {
	for _, out := range set.outputs {
		if t, isTerminal := out.(*Terminal); isTerminal {
			terminals = append(terminals, t)
		}
	}
	return
}

// Channels returns the logical outputs of the set, in order.
func (set *OutputSet) Channels() (channels []*Channel) {
	for _, out := range set.outputs {
		if ch, isChannel := out.(*Channel); isChannel {
			channels = append(channels, ch)
		}
	}
	return
}

func (set *OutputSet) process(index int, s *Signal) error {
	if set.exclusive {
		for i, out := range set.outputs {
			if ch, isChannel := out.(*Channel); isChannel && i != index {
				ch.Clear()
			}
		}
	}
	return set.outputs[index].Process(s)
}

// View is the handle to one allocated output of a set.
type View struct {
	set   *OutputSet
	index int
}

func (v View) Output() Output {
	return v.set.outputs[v.index]
}

func (v View) Index() int {
	return v.index
}

func (v View) Process(s *Signal) error {
	return v.set.process(v.index, s)
}

// Release gives the output back to the pool.
func (v View) Release() {
	v.set.outputs[v.index].setConnected(false)
}
