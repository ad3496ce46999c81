package autogarden

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hubertat/autogarden/components"
	"github.com/hubertat/autogarden/drivers"
	"github.com/hubertat/autogarden/mqtt"
)

type AutoGarden struct {
	Name   string
	Driver string

	Controller        ControllerConfig
	ShiftRegisters    []ShiftRegisterConfig
	Multiplexers      []MultiplexerConfig
	Valves            []ActuatorConfig
	Pumps             []ActuatorConfig
	MoistureSensors   []MoistureSensorConfig
	LiquidLevelSensor *LiquidLevelSensorConfig

	Stations []*WateringStation

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	MqttBroker string
	Influx     *InfluxTelemetry

	HttpAddr  string
	HttpToken string

	Gpio       *drivers.GpIO
	Mcp23017   *drivers.McpIO
	Serial     *drivers.SerialIO
	FakeDriver *drivers.MockHardware

	hardware    drivers.Hardware
	tree        *components.Tree
	controller  *components.Microcontroller
	levelSensor *components.LiquidLevelSensor
	mqttClient  *mqtt.MqttClient
	hkSwitches  []*hkSwitch
	hkSensors   []*hkMoisture
	ticker      *time.Ticker
}

// GardenState is published on every tick.
type GardenState struct {
	Name       string         `json:"name"`
	WaterLevel string         `json:"water_level,omitempty"`
	Stations   []StationState `json:"stations"`
	Time       time.Time      `json:"time"`
}

func (ag *AutoGarden) configuredDrivers() map[string]drivers.Hardware {
	configured := make(map[string]drivers.Hardware)

	if ag.Gpio != nil {
		configured[ag.Gpio.String()] = ag.Gpio
	}
	if ag.Mcp23017 != nil {
		configured[ag.Mcp23017.String()] = ag.Mcp23017
	}
	if ag.Serial != nil {
		configured[ag.Serial.String()] = ag.Serial
	}
	if ag.FakeDriver != nil {
		configured[ag.FakeDriver.String()] = ag.FakeDriver
	}

	return configured
}

// InitDriver picks the hardware driver named by Driver, or the only one
// configured, and sets it up.
func (ag *AutoGarden) InitDriver(ctx context.Context) error {
	configured := ag.configuredDrivers()

	var hw drivers.Hardware
	switch {
	case len(ag.Driver) > 0:
		if _, known := drivers.MapAllDrivers()[strings.ToLower(ag.Driver)]; !known {
			return errors.Errorf("unknown driver %s (known: %s)", ag.Driver, strings.Join(drivers.DriverNames(), ", "))
		}
		hw = configured[strings.ToLower(ag.Driver)]
		if hw == nil {
			return errors.Errorf("driver %s selected but not configured", ag.Driver)
		}
	case len(configured) == 1:
		for _, only := range configured {
			hw = only
		}
	case len(configured) == 0:
		return errors.New("no hardware driver configured")
	default:
		return errors.New("more than one hardware driver configured, select one with Driver")
	}

	err := hw.Setup(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to setup %s driver", hw)
	}

	ag.hardware = hw
	return nil
}

// InitStations binds every station to its components.
func (ag *AutoGarden) InitStations() error {
	seen := make(map[int]bool)
	for _, ws := range ag.Stations {
		if seen[ws.Idx] {
			return errors.Errorf("station index %d used twice", ws.Idx)
		}
		seen[ws.Idx] = true

		err := ws.Init(ag.tree)
		if err != nil {
			return errors.Wrapf(err, "station %d", ws.Idx)
		}
	}

	sort.Slice(ag.Stations, func(i, j int) bool {
		return ag.Stations[i].Idx < ag.Stations[j].Idx
	})
	return nil
}

// Init sets up the driver, builds the tree, initializes the pins and binds
// the stations. The tree is complete before any pin is touched.
func (ag *AutoGarden) Init(ctx context.Context) error {
	err := ag.InitDriver(ctx)
	if err != nil {
		return err
	}

	err = ag.BuildTree()
	if err != nil {
		return errors.Wrap(err, "configuration error")
	}

	err = ag.tree.Initialize()
	if err != nil {
		return errors.Wrap(err, "failed to initialize hardware")
	}

	err = ag.InitStations()
	if err != nil {
		return err
	}

	if len(ag.HkPin) == 8 {
		err = ag.initHomeKitThings()
		if err != nil {
			return errors.Wrap(err, "failed to prepare HomeKit accessories")
		}
	}
	return nil
}

func (ag *AutoGarden) Tree() *components.Tree {
	return ag.tree
}

func (ag *AutoGarden) Station(idx int) (*WateringStation, error) {
	for _, ws := range ag.Stations {
		if ws.Idx == idx {
			return ws, nil
		}
	}
	return nil, errors.Errorf("station %d not found", idx)
}

// WaterLevel reads the liquid level sensor, empty when there is none.
func (ag *AutoGarden) WaterLevel() (string, error) {
	if ag.levelSensor == nil {
		return "", nil
	}
	return ag.levelSensor.Read()
}

func (ag *AutoGarden) State() GardenState {
	state := GardenState{Name: ag.Name, Time: time.Now()}

	level, err := ag.WaterLevel()
	if err != nil {
		log.Error("reading water level failed", "err", err)
	}
	state.WaterLevel = level

	for _, ws := range ag.Stations {
		state.Stations = append(state.Stations, ws.State())
	}
	return state
}

// Sync activates every station once, then pushes the resulting state to
// HomeKit, mqtt and influx, whichever are enabled.
func (ag *AutoGarden) Sync(ctx context.Context) {
	for _, ws := range ag.Stations {
		err := ws.Activate(ctx)
		if err != nil {
			log.Error("station activation failed", "station", ws.Idx, "err", err)
		}
	}

	ag.syncHomeKit()

	state := ag.State()
	if ag.mqttClient != nil {
		err := ag.publishState(state)
		if err != nil {
			log.Error("publishing state failed", "err", err)
		}
	}
	if ag.Influx != nil && ag.Influx.IsReady() {
		err := ag.Influx.Write(ctx, state)
		if err != nil {
			log.Error("writing telemetry failed", "err", err)
		}
	}
}

func (ag *AutoGarden) StartTicker(ctx context.Context, interval time.Duration) {
	ag.ticker = time.NewTicker(interval)
	defer ag.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ag.ticker.C:
			ag.Sync(ctx)
		}
	}
}

func (ag *AutoGarden) stateTopic() string {
	return fmt.Sprintf("%s/garden/state", ag.Name)
}

func (ag *AutoGarden) publishState(state GardenState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	err = ag.mqttClient.Publish(ag.stateTopic(), payload)
	if err != nil {
		return errors.Wrap(err, "garden state")
	}

	for _, st := range state.Stations {
		payload, err = json.Marshal(st)
		if err != nil {
			return err
		}
		err = ag.mqttClient.Publish(stationStateTopic(ag.Name, st.Idx), payload)
		if err != nil {
			return errors.Wrapf(err, "station %d state", st.Idx)
		}
	}
	return nil
}

func (ag *AutoGarden) InitMqtt(ctx context.Context) (err error) {
	if len(ag.MqttBroker) == 0 {
		err = errors.New("mqtt broker not set")
		return
	}

	mc, err := mqtt.NewMqttClient(ag.MqttBroker, ag.Name)
	if err != nil {
		err = errors.Wrap(err, "failed to create mqtt client")
		return
	}

	ag.mqttClient = mc

	mqttHandlers := []mqtt.MqttHandler{}
	for _, ws := range ag.Stations {
		ws.topicPrefix = ag.Name
		mqttHandlers = append(mqttHandlers, ws)
	}

	err = mc.Connect(ctx, mqttHandlers)
	if err != nil {
		err = errors.Wrap(err, "failed to connect to mqtt broker")
	}

	return
}

// Run starts the ticker and, when configured, the http api and HomeKit
// bridge. It returns when ctx is done or one of them fails.
func (ag *AutoGarden) Run(ctx context.Context, interval time.Duration, firmwareVersion string) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		ag.StartTicker(ctx, interval)
		return nil
	})

	if len(ag.HttpAddr) > 0 {
		group.Go(func() error {
			return ag.StartHttp(ctx)
		})
	}

	if len(ag.HkPin) == 8 {
		group.Go(func() error {
			return ag.StartHomeKit(ctx, firmwareVersion)
		})
	} else {
		log.Info("HomeKit not configured, disabled")
	}

	return group.Wait()
}

func (ag *AutoGarden) Close() (err error) {
	for _, ws := range ag.Stations {
		stopErr := ws.Stop()
		if stopErr != nil {
			log.Error("stopping station failed", "station", ws.Idx, "err", stopErr)
		}
	}

	if ag.mqttClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ag.mqttClient.Disconnect(ctx)
	}
	if ag.Influx != nil {
		ag.Influx.Close()
	}
	if ag.hardware != nil {
		err = ag.hardware.Close()
	}

	return
}

func (ag *AutoGarden) PrintTree(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintf(writer, "=== %s on %s driver ===\n", ag.Name, ag.hardware)
	if ag.tree != nil {
		ag.tree.PrintTree(writer, ag.controller)
	}
	fmt.Fprintln(writer, "-----------------------------")
	for _, ws := range ag.Stations {
		fmt.Fprintf(writer, "| %s\n", ws)
	}
	fmt.Fprintln(writer)
}
