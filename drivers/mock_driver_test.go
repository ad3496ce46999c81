package drivers

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func assertBools(t testing.TB, got, want bool) {
	t.Helper()

	if got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func assertInts(t testing.TB, got, want int) {
	t.Helper()

	if got != want {
		t.Errorf("got %d want %d", got, want)
	}
}

func assertBoolSlices(t testing.TB, got, want []bool) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("got %v want %v", got, want)
			return
		}
	}
}

func assertUint16Slices(t testing.TB, got, want []uint16) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("got %v want %v", got, want)
			return
		}
	}
}

func TestMockHardware_ImplementsHardware(t *testing.T) {
	var _ Hardware = &MockHardware{}
	var _ Hardware = &GpIO{}
	var _ Hardware = &McpIO{}
	var _ Hardware = &SerialIO{}
}

func TestMockHardware_Records(t *testing.T) {
	md := NewMockHardware()
	md.Setup(context.Background())
	assertBools(t, md.IsReady(), true)

	md.SetPinDirection(3, DirectionOutput)
	md.WriteDigital(3, true)
	md.WriteAnalog(9, 128)
	md.ShiftOut(1, 2, MsbFirst, 8, 0b1000)
	md.Delay(time.Millisecond)

	calls := md.Calls()
	assertInts(t, len(calls), 5)
	if calls[1] != DigitalWriteCall(3, true) {
		t.Errorf("got %v want %v", calls[1], DigitalWriteCall(3, true))
	}
	if calls[3] != ShiftOutCall(1, 2, MsbFirst, 8, 0b1000) {
		t.Errorf("got %v", calls[3])
	}
	assertInts(t, len(md.Writes()), 3)

	level, written := md.Level(9)
	assertBools(t, written, true)
	assertInts(t, level, 128)

	md.Reset()
	assertInts(t, len(md.Calls()), 0)
}

func TestMockHardware_Reads(t *testing.T) {
	md := NewMockHardware()
	md.SetDigitalInput(4, true)
	md.SetAnalogInput(14, 700)

	state, err := md.ReadDigital(4)
	if err != nil {
		t.Fatal(err)
	}
	assertBools(t, state, true)

	state, _ = md.ReadDigital(5)
	assertBools(t, state, false)

	value, err := md.ReadAnalog(14)
	if err != nil {
		t.Fatal(err)
	}
	assertInts(t, value, 700)
}

func TestMockHardware_Failing(t *testing.T) {
	md := &MockHardware{}
	boom := errors.New("boom")
	md.FailPin(7, boom)

	if err := md.WriteDigital(7, true); !errors.Is(err, boom) {
		t.Errorf("got %v want %v", err, boom)
	}
	if _, err := md.ReadAnalog(7); err == nil {
		t.Error("expected error from failing pin")
	}
	if err := md.ShiftOut(1, 7, LsbFirst, 8, 0); err == nil {
		t.Error("expected error when clock pin is failing")
	}
	assertInts(t, len(md.Calls()), 0)
}

func TestMockHardware_MonitorStateChanges(t *testing.T) {
	md := &MockHardware{}
	buf := &bytes.Buffer{}
	md.MonitorStateChanges(buf)

	md.WriteDigital(2, true)
	md.WriteDigital(2, true)
	md.WriteDigital(2, false)

	want := "[pin 2] state changed to 1\n[pin 2] state changed to 0\n"
	if buf.String() != want {
		t.Errorf("got %q want %q", buf.String(), want)
	}
}

func TestMapAllDrivers(t *testing.T) {
	names := DriverNames()
	assertInts(t, len(names), 4)

	for _, name := range []string{"gpio", "mcpio", "serial", "mock"} {
		if _, found := MapAllDrivers()[name]; !found {
			t.Errorf("driver %s missing", name)
		}
	}
}
