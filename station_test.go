package autogarden

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/hubertat/autogarden/components"
	"github.com/hubertat/autogarden/drivers"
)

type waitRecorder struct {
	waited []time.Duration
	err    error
}

func (wr *waitRecorder) wait(ctx context.Context, d time.Duration) error {
	wr.waited = append(wr.waited, d)
	return wr.err
}

func stationUnderTest(t testing.TB) (*AutoGarden, *drivers.MockHardware, *WateringStation, *waitRecorder) {
	t.Helper()

	ag, hw := initGarden(t)
	ws := ag.Stations[0]
	wr := &waitRecorder{}
	ws.wait = wr.wait
	hw.Reset()
	return ag, hw, ws, wr
}

// pumpWrites lists the levels written to the pump pin, in order.
func pumpWrites(hw *drivers.MockHardware) (levels []int) {
	for _, c := range hw.Calls() {
		if c.Op == drivers.OpWriteDigital && c.Pin == pumpPin {
			levels = append(levels, c.Value)
		}
	}
	return
}

func TestStation_Activate(t *testing.T) {
	t.Run("dry soil is watered", func(t *testing.T) {
		ag, hw, ws, wr := stationUnderTest(t)
		hw.SetAnalogInput(analogPin, 100)

		err := ws.Activate(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		assertInts(t, len(wr.waited), 1)
		assertBools(t, wr.waited[0] == 10*time.Second, true)
		levels := pumpWrites(hw)
		assertInts(t, len(levels), 2)
		assertInts(t, levels[0], 1)
		assertInts(t, levels[1], 0)

		valve, _ := ag.Tree().Valve("v0")
		assertBools(t, valve.IsOpen(), false)
		state := ws.State()
		assertBools(t, state.Watering, false)
		assertBools(t, state.LastWatering.IsZero(), false)
	})

	t.Run("valve opens before pump starts", func(t *testing.T) {
		_, hw, ws, _ := stationUnderTest(t)
		hw.SetAnalogInput(analogPin, 0)
		ws.Activate(context.Background())

		firstValveWrite, firstPumpWrite := -1, -1
		for i, c := range hw.Calls() {
			if c.Op != drivers.OpWriteDigital {
				continue
			}
			if c.Pin == dmuxSharedPin && firstValveWrite < 0 {
				firstValveWrite = i
			}
			if c.Pin == pumpPin && firstPumpWrite < 0 {
				firstPumpWrite = i
			}
		}
		assertBools(t, firstValveWrite >= 0 && firstValveWrite < firstPumpWrite, true)
	})

	t.Run("wet soil is left alone", func(t *testing.T) {
		_, hw, ws, wr := stationUnderTest(t)
		hw.SetAnalogInput(analogPin, 900)

		if err := ws.Activate(context.Background()); err != nil {
			t.Fatal(err)
		}
		assertInts(t, len(wr.waited), 0)
		assertInts(t, len(pumpWrites(hw)), 0)
		assertBools(t, ws.Moisture() > 80, true)
	})

	t.Run("inactive station only reads", func(t *testing.T) {
		_, hw, ws, wr := stationUnderTest(t)
		hw.SetAnalogInput(analogPin, 0)
		ws.Status = false

		if err := ws.Activate(context.Background()); err != nil {
			t.Fatal(err)
		}
		assertInts(t, len(wr.waited), 0)
		assertBools(t, ws.State().MoistureLevel != nil, true)
	})

	t.Run("failed reading never waters", func(t *testing.T) {
		_, hw, ws, wr := stationUnderTest(t)
		hw.FailPin(analogPin, nil)

		if ws.Activate(context.Background()) == nil {
			t.Error("expected error for missing reading")
		}
		assertInts(t, len(wr.waited), 0)
		assertInts(t, len(pumpWrites(hw)), 0)
		assertBools(t, ws.Moisture() == components.NullReading, true)
		assertBools(t, ws.State().MoistureLevel == nil, true)
	})

	t.Run("pump failure closes valve", func(t *testing.T) {
		ag, hw, ws, wr := stationUnderTest(t)
		hw.SetAnalogInput(analogPin, 0)
		hw.FailPin(pumpPin, nil)

		if ws.Activate(context.Background()) == nil {
			t.Error("expected error from pump")
		}
		assertInts(t, len(wr.waited), 0)
		valve, _ := ag.Tree().Valve("v0")
		assertBools(t, valve.IsOpen(), false)
		if ws.State().Error == "" {
			t.Error("expected error in station state")
		}
	})

	t.Run("valve failure aborts", func(t *testing.T) {
		_, hw, ws, wr := stationUnderTest(t)
		hw.SetAnalogInput(analogPin, 0)
		hw.FailPin(dmuxSharedPin, nil)

		if ws.Activate(context.Background()) == nil {
			t.Error("expected error from valve")
		}
		assertInts(t, len(wr.waited), 0)
		assertInts(t, len(pumpWrites(hw)), 0)
	})

	t.Run("interrupted watering still stops", func(t *testing.T) {
		ag, hw, ws, wr := stationUnderTest(t)
		hw.SetAnalogInput(analogPin, 0)
		wr.err = context.Canceled

		if ws.Activate(context.Background()) == nil {
			t.Error("expected interruption error")
		}
		pump, _ := ag.Tree().Pump("pump")
		assertBools(t, pump.IsRunning(), false)
		assertBools(t, ws.State().LastWatering.IsZero(), true)
	})
}

// blockingWait holds a watering cycle until released.
type blockingWait struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingWait() *blockingWait {
	return &blockingWait{started: make(chan struct{}), release: make(chan struct{})}
}

func (bw *blockingWait) wait(ctx context.Context, d time.Duration) error {
	close(bw.started)
	<-bw.release
	return nil
}

func TestStation_WaterOnce(t *testing.T) {
	ag, hw, ws, _ := stationUnderTest(t)
	bw := newBlockingWait()
	ws.wait = bw.wait

	done := make(chan error, 1)
	go func() {
		done <- ws.Water(context.Background(), time.Minute)
	}()
	<-bw.started

	err := ws.Water(context.Background(), time.Minute)
	if !errors.Is(err, ErrAlreadyWatering) {
		t.Errorf("got %v want already watering", err)
	}
	hw.SetAnalogInput(analogPin, 0)
	if err := ws.Activate(context.Background()); err != nil {
		t.Errorf("activate during watering: %v", err)
	}

	pump, _ := ag.Tree().Pump("pump")
	valve, _ := ag.Tree().Valve("v0")
	assertBools(t, pump.IsRunning(), true)
	assertBools(t, valve.IsOpen(), true)
	assertBools(t, ws.IsWatering(), true)

	close(bw.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	assertBools(t, pump.IsRunning(), false)
	assertBools(t, valve.IsOpen(), false)
	assertBools(t, ws.IsWatering(), false)
	assertBools(t, ws.State().Error == "", true)

	wr := &waitRecorder{}
	ws.wait = wr.wait
	if err := ws.Water(context.Background(), time.Second); err != nil {
		t.Errorf("second cycle after the first finished: %v", err)
	}
	assertInts(t, len(wr.waited), 1)
}

func TestStation_Update(t *testing.T) {
	_, _, ws, _ := stationUnderTest(t)

	tooHigh := 150.0
	status := false
	err := ws.Update(StationConfig{Status: &status, MoistureThreshold: &tooHigh})
	if err == nil {
		t.Error("expected error for threshold 150")
	}
	assertBools(t, ws.State().Status, true)

	threshold := 55.0
	err = ws.Update(StationConfig{MoistureThreshold: &threshold})
	if err != nil {
		t.Fatal(err)
	}
	state := ws.State()
	assertBools(t, state.MoistureThreshold == 55, true)
	assertBools(t, state.Status, true)
	assertBools(t, state.WateringDuration.Duration == 10*time.Second, true)

	ws.topicPrefix = "garden"
	assertStrings(t, ws.MqttSubscribeTopic(), "garden/stations/0/set")

	ws.MqttHandle(&paho.Publish{Payload: []byte(`{"status": false, "watering_duration": 90, "moisture_threshold": 30}`)})
	state = ws.State()
	assertBools(t, state.Status, false)
	assertBools(t, state.MoistureThreshold == 30, true)
	assertBools(t, state.WateringDuration.Duration == 90*time.Second, true)

	ws.MqttHandle(&paho.Publish{Payload: []byte(`{"moisture_threshold": -1}`)})
	ws.MqttHandle(&paho.Publish{Payload: []byte(`not json`)})
	assertBools(t, ws.State().MoistureThreshold == 30, true)
}

func TestStation_Init(t *testing.T) {
	ag, _ := initGarden(t)

	cases := map[string]*WateringStation{
		"no sensor":         {Valve: "v1"},
		"no valve nor pump": {Sensor: "s1"},
		"valve is a pump":   {Valve: "pump", Sensor: "s1"},
		"bad threshold":     {Valve: "v1", Sensor: "s1", MoistureThreshold: 101},
	}
	for name, ws := range cases {
		t.Run(name, func(t *testing.T) {
			if ws.Init(ag.Tree()) == nil {
				t.Error("expected init error")
			}
		})
	}

	ws := &WateringStation{Idx: 3, Pump: "pump", Sensor: "s1"}
	if err := ws.Init(ag.Tree()); err != nil {
		t.Errorf("pump only station: %v", err)
	}
}
