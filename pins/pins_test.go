package pins

import (
	"errors"
	"testing"

	"github.com/hubertat/autogarden/drivers"
)

func assertInts(t testing.TB, got, want int) {
	t.Helper()

	if got != want {
		t.Errorf("got %d want %d", got, want)
	}
}

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertErrorIs(t testing.TB, got, want error) {
	t.Helper()

	if !errors.Is(got, want) {
		t.Errorf("got error %v want %v", got, want)
	}
}

func mixedSet(hw drivers.Hardware) *OutputSet {
	return NewTerminalSet(
		NewTerminal(hw, 2, DigitalOutput),
		NewTerminal(hw, 3, DigitalOutput),
		NewTerminal(hw, 4, DigitalInput),
		NewTerminal(hw, 5, DigitalOutput),
		NewTerminal(hw, 14, AnalogInput),
	)
}

func TestParseMode(t *testing.T) {
	for mode, name := range modeNames {
		parsed, err := ParseMode(name)
		if err != nil {
			t.Fatalf("parsing %s: %v", name, err)
		}
		assertInts(t, int(parsed), int(mode))
	}

	var m Mode
	if err := m.UnmarshalText([]byte("Analog_Input")); err != nil {
		t.Fatal(err)
	}
	assertInts(t, int(m), int(AnalogInput))

	if _, err := ParseMode("pwm"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestOutputSet_Allocate(t *testing.T) {
	t.Run("takes first free pins of mode in order", func(t *testing.T) {
		set := mixedSet(drivers.NewMockHardware())

		views := set.Allocate(2, DigitalOutput)
		assertInts(t, len(views), 2)
		assertInts(t, views[0].Index(), 0)
		assertInts(t, views[1].Index(), 1)
		assertInts(t, set.Available(DigitalOutput), 1)

		views = set.Allocate(2, DigitalOutput)
		assertInts(t, len(views), 1)
		assertInts(t, views[0].Index(), 3)
		assertInts(t, set.Available(DigitalOutput), 0)
	})

	t.Run("returns min of requested and available", func(t *testing.T) {
		for requested := 0; requested <= 5; requested++ {
			set := mixedSet(drivers.NewMockHardware())
			available := set.Available(DigitalOutput)

			views := set.Allocate(requested, DigitalOutput)
			want := requested
			if available < want {
				want = available
			}
			assertInts(t, len(views), want)
			assertInts(t, set.Available(DigitalOutput), available-want)
		}
	})

	t.Run("release returns pin to pool", func(t *testing.T) {
		set := mixedSet(drivers.NewMockHardware())
		views := set.Allocate(1, AnalogInput)
		assertInts(t, set.Available(AnalogInput), 0)

		views[0].Release()
		assertInts(t, set.Available(AnalogInput), 1)
		assertBools(t, set.HasAvailable(1, AnalogInput), true)
		assertBools(t, set.HasAvailable(2, AnalogInput), false)
	})
}

func TestOutputSet_Connect(t *testing.T) {
	t.Run("binds all", func(t *testing.T) {
		set := mixedSet(drivers.NewMockHardware())
		a, b, c := NewInput(DigitalOutput), NewInput(DigitalInput), NewInput(DigitalOutput)

		err := set.Connect(a, b, c)
		if err != nil {
			t.Fatal(err)
		}

		ta, _ := a.Terminal()
		tb, _ := b.Terminal()
		tc, _ := c.Terminal()
		assertInts(t, int(ta.Number()), 2)
		assertInts(t, int(tb.Number()), 4)
		assertInts(t, int(tc.Number()), 3)
	})

	t.Run("exhausted leaves set untouched", func(t *testing.T) {
		set := mixedSet(drivers.NewMockHardware())
		inputs := NewInputs(4, DigitalOutput)

		err := set.Connect(inputs...)
		assertErrorIs(t, err, ErrPinsExhausted)
		assertInts(t, set.Available(DigitalOutput), 3)
		for _, in := range inputs {
			assertBools(t, in.Bound(), false)
		}
	})

	t.Run("missing mode is a mismatch", func(t *testing.T) {
		set := mixedSet(drivers.NewMockHardware())
		err := set.Connect(NewInput(DigitalOutput), NewInput(AnalogOutput))
		assertErrorIs(t, err, ErrModeMismatch)
		assertInts(t, set.Available(DigitalOutput), 3)
	})

	t.Run("already bound", func(t *testing.T) {
		set := mixedSet(drivers.NewMockHardware())
		in := NewInput(DigitalOutput)
		set.Connect(in)

		assertErrorIs(t, set.Connect(in), ErrAlreadyBound)
	})

	t.Run("disconnect frees the output", func(t *testing.T) {
		set := mixedSet(drivers.NewMockHardware())
		in := NewInput(AnalogInput)
		set.Connect(in)
		in.Disconnect()

		assertBools(t, in.Bound(), false)
		assertInts(t, set.Available(AnalogInput), 1)
		in.Disconnect()
	})
}

func TestInput_Process(t *testing.T) {
	hw := drivers.NewMockHardware()
	set := mixedSet(hw)

	unbound := NewInput(DigitalOutput)
	assertErrorIs(t, unbound.Process(DigitalWriteSignal(High)), ErrUnbound)
	assertInts(t, len(hw.Calls()), 0)

	out := NewInput(DigitalOutput)
	set.Connect(out)
	if err := out.Process(DigitalWriteSignal(High)); err != nil {
		t.Fatal(err)
	}
	calls := hw.Calls()
	assertInts(t, len(calls), 1)
	if calls[0] != drivers.DigitalWriteCall(2, true) {
		t.Errorf("got %v", calls[0])
	}

	sensor := NewInput(AnalogInput)
	set.Connect(sensor)
	hw.SetAnalogInput(14, 321)
	s := AnalogReadSignal()
	if err := sensor.Process(s); err != nil {
		t.Fatal(err)
	}
	assertBools(t, s.Executed, true)
	assertInts(t, s.Value, 321)
}

func TestExecute(t *testing.T) {
	hw := drivers.NewMockHardware()
	digitalIn := NewTerminal(hw, 4, DigitalInput)
	analogOut := NewTerminal(hw, 9, AnalogOutput)

	t.Run("mode mismatch does not touch hardware", func(t *testing.T) {
		err := Execute(hw, DigitalWriteSignal(High), digitalIn)
		assertErrorIs(t, err, ErrModeMismatch)
		err = Execute(hw, AnalogReadSignal(), digitalIn)
		assertErrorIs(t, err, ErrModeMismatch)
		assertInts(t, len(hw.Calls()), 0)
	})

	t.Run("digital read fills value", func(t *testing.T) {
		hw.SetDigitalInput(4, true)
		s := DigitalReadSignal()
		if err := Execute(hw, s, digitalIn); err != nil {
			t.Fatal(err)
		}
		assertInts(t, s.Value, High)
	})

	t.Run("analog write", func(t *testing.T) {
		if err := Execute(hw, AnalogWriteSignal(128), analogOut); err != nil {
			t.Fatal(err)
		}
		level, _ := hw.Level(9)
		assertInts(t, level, 128)
	})

	t.Run("hardware failure", func(t *testing.T) {
		hw.FailPin(4, nil)
		s := DigitalReadSignal()
		if err := Execute(hw, s, digitalIn); err == nil {
			t.Error("expected hardware error")
		}
		assertBools(t, s.Executed, false)
	})

	t.Run("nil signal", func(t *testing.T) {
		assertErrorIs(t, Execute(hw, nil, analogOut), ErrNoSignal)
	})
}

func TestChannelSet(t *testing.T) {
	t.Run("shared set keeps all pending", func(t *testing.T) {
		set := NewChannelSet(4, DigitalOutput, false)
		views := set.Allocate(4, DigitalOutput)
		views[1].Process(DigitalWriteSignal(High))
		views[3].Process(DigitalWriteSignal(High))

		channels := set.Channels()
		assertBools(t, channels[1].Pending() != nil, true)
		assertBools(t, channels[3].Pending() != nil, true)
		assertInts(t, channels[1].Level(), High)
	})

	t.Run("exclusive set clears siblings", func(t *testing.T) {
		set := NewChannelSet(4, DigitalOutput, true)
		views := set.Allocate(4, DigitalOutput)
		views[1].Process(DigitalWriteSignal(High))
		views[3].Process(DigitalWriteSignal(Low))

		channels := set.Channels()
		assertBools(t, channels[1].Pending() == nil, true)
		assertBools(t, channels[3].Pending() != nil, true)

		s := channels[3].Pop()
		assertInts(t, s.Value, Low)
		assertBools(t, channels[3].Pending() == nil, true)
	})

	t.Run("channel rejects other mode", func(t *testing.T) {
		set := NewChannelSet(2, AnalogInput, true)
		views := set.Allocate(1, AnalogInput)
		assertErrorIs(t, views[0].Process(DigitalWriteSignal(High)), ErrModeMismatch)
		assertErrorIs(t, views[0].Process(nil), ErrNoSignal)
	})

	t.Run("revert restores level", func(t *testing.T) {
		ch := NewChannel(0, DigitalOutput)
		must := func(err error) {
			t.Helper()
			if err != nil {
				t.Fatal(err)
			}
		}
		must(ch.Process(DigitalWriteSignal(High)))
		must(ch.Process(DigitalWriteSignal(Low)))
		ch.Revert()
		assertInts(t, ch.Level(), High)
		assertBools(t, ch.Pending() == nil, true)
	})

	t.Run("reads do not change level", func(t *testing.T) {
		ch := NewChannel(0, AnalogInput)
		ch.Process(AnalogReadSignal())
		assertInts(t, ch.Level(), 0)
		assertInts(t, ch.Index(), 0)
	})
}
