package pins

// Input is a component-side pin. Once bound it forwards signals to one
// output of the parent's set.
type Input struct {
	mode  Mode
	bound *View
}

func NewInput(mode Mode) *Input {
	return &Input{mode: mode}
}

func NewInputs(count int, mode Mode) (inputs []*Input) {
	for i := 0; i < count; i++ {
		inputs = append(inputs, NewInput(mode))
	}
	return
}

func (in *Input) Mode() Mode {
	return in.mode
}

func (in *Input) Bound() bool {
	return in.bound != nil
}

// Output returns the output this input is bound to.
func (in *Input) Output() (Output, bool) {
	if in.bound == nil {
		return nil, false
	}
	return in.bound.Output(), true
}

// Terminal returns the physical pin this input is bound to, if any.
func (in *Input) Terminal() (*Terminal, bool) {
	out, bound := in.Output()
	if !bound {
		return nil, false
	}
	t, isTerminal := out.(*Terminal)
	return t, isTerminal
}

func (in *Input) Process(s *Signal) error {
	if in.bound == nil {
		return ErrUnbound
	}
	return in.bound.Process(s)
}

// Disconnect releases the bound output. It is a no-op on an unbound input.
func (in *Input) Disconnect() {
	if in.bound == nil {
		return
	}
	in.bound.Release()
	in.bound = nil
}

func Disconnect(inputs ...*Input) {
	for _, in := range inputs {
		in.Disconnect()
	}
}
