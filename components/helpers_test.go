package components

import (
	"errors"
	"testing"

	"github.com/hubertat/autogarden/drivers"
	"github.com/hubertat/autogarden/pins"
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

func assertFloats(t testing.TB, got, want float64) {
	t.Helper()

	if got != want {
		t.Errorf("got %.3f want %.3f", got, want)
	}
}

func assertErrorIs(t testing.TB, got, want error) {
	t.Helper()

	if !errors.Is(got, want) {
		t.Errorf("got error %v want %v", got, want)
	}
}

func assertCalls(t testing.TB, got, want []drivers.Call) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d calls %v\nwant %d calls %v", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("call %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func must(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newController(t testing.TB, hw drivers.Hardware, cp ControllerPins) (*Tree, *Microcontroller) {
	t.Helper()

	tree := NewTree(hw)
	mc, err := tree.NewMicrocontroller("mc", cp)
	must(t, err)
	return tree, mc
}

func pinRange(from, to uint16) (numbers []uint16) {
	for n := from; n <= to; n++ {
		numbers = append(numbers, n)
	}
	return
}

func write(pin uint16, level int) drivers.Call {
	return drivers.DigitalWriteCall(pin, level == pins.High)
}
