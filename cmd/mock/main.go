package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hubertat/autogarden"
	"github.com/hubertat/autogarden/drivers"
	"github.com/hubertat/autogarden/pins"
)

var (
	Version string
	Build   string
)

// demoGarden is a two bed layout on fake hardware: valves behind a
// multiplexer whose select lines come from a shift register.
func demoGarden() *autogarden.AutoGarden {
	return &autogarden.AutoGarden{
		Name: "mock",
		Controller: autogarden.ControllerConfig{
			DigitalOutput: []uint16{2, 3, 4, 5, 6, 7, 8},
			DigitalInput:  []uint16{20},
			AnalogInput:   []uint16{26},
		},
		ShiftRegisters: []autogarden.ShiftRegisterConfig{
			{Name: "sr", Outputs: 8},
		},
		Multiplexers: []autogarden.MultiplexerConfig{
			{Name: "valves", Parent: "sr", SelectLines: 3, Mode: pins.DigitalOutput},
			{Name: "probes", Parent: "sr", SelectLines: 3, Mode: pins.AnalogInput},
		},
		Valves: []autogarden.ActuatorConfig{
			{Name: "tomatoes", Parent: "valves"},
			{Name: "herbs", Parent: "valves"},
		},
		Pumps: []autogarden.ActuatorConfig{{Name: "pump"}},
		MoistureSensors: []autogarden.MoistureSensorConfig{
			{Name: "tomatoes-soil", Parent: "probes"},
			{Name: "herbs-soil", Parent: "probes"},
		},
		LiquidLevelSensor: &autogarden.LiquidLevelSensorConfig{Name: "tank"},
		Stations: []*autogarden.WateringStation{
			{Idx: 0, Valve: "tomatoes", Pump: "pump", Sensor: "tomatoes-soil", Status: true, WateringDuration: autogarden.Duration{Duration: 5 * time.Second}, MoistureThreshold: 35},
			{Idx: 1, Valve: "herbs", Pump: "pump", Sensor: "herbs-soil", Status: true, WateringDuration: autogarden.Duration{Duration: 3 * time.Second}, MoistureThreshold: 20},
		},
		HkPin:       "88008800",
		HkDirectory: "./mock_homekit",
		HttpAddr:    "127.0.0.1:8080",
		FakeDriver:  drivers.NewMockHardware(),
	}
}

func main() {
	log.SetLevel(log.DebugLevel)
	log.Info("autogarden mock started", "version", Version)
	log.Info("mock instance for testing purposes, type help for commands")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ag := demoGarden()
	ag.FakeDriver.SetAnalogInput(26, 400)
	ag.FakeDriver.SetDigitalInput(20, true)

	err := ag.Init(ctx)
	defer ag.Close()
	if err != nil {
		log.Fatal("init failed", "err", err)
	}

	ag.FakeDriver.MonitorStateChanges(os.Stdout)
	ag.PrintTree(os.Stdout)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		err := ag.RunConsole(ctx, os.Stdin, os.Stdout)
		if err != nil {
			log.Error("console stopped", "err", err)
		}
	}()

	err = ag.Run(ctx, 30*time.Second, "mock: "+Version)
	if err != nil {
		log.Error("stopped", "err", err)
	}
}
