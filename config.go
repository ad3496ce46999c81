package autogarden

import (
	"fmt"

	"github.com/hubertat/autogarden/components"
	"github.com/hubertat/autogarden/drivers"
	"github.com/hubertat/autogarden/pins"
	"github.com/pkg/errors"
)

const defaultControllerName = "controller"

// moisture sensors report percent of the 10 bit adc range by default
const defaultMoistureScaler = 100.0 / 1023.0

type ControllerConfig struct {
	Name          string
	DigitalOutput []uint16
	DigitalInput  []uint16
	AnalogOutput  []uint16
	AnalogInput   []uint16
}

type ShiftRegisterConfig struct {
	Name     string
	Parent   string
	Outputs  int
	MsbFirst bool
}

type MultiplexerConfig struct {
	Name             string
	Parent           string
	SelectLines      int
	Channels         int
	Mode             pins.Mode
	EnableActiveHigh bool
}

type ActuatorConfig struct {
	Name           string
	Parent         string
	Inverted       bool
	DisableHomekit bool
}

type MoistureSensorConfig struct {
	Name           string
	Parent         string
	Scaler         float64
	DisableHomekit bool
}

type LiquidLevelSensorConfig struct {
	Name      string
	Parent    string
	OkWhenLow bool
}

func (ag *AutoGarden) controllerName() string {
	if len(ag.Controller.Name) > 0 {
		return ag.Controller.Name
	}
	return defaultControllerName
}

// attach puts child below the declared parent, the controller when none is
// given. Leaves are attached after every shift register and multiplexer.
func (ag *AutoGarden) attach(parentName string, child components.Handle) error {
	if len(parentName) == 0 {
		parentName = ag.controllerName()
	}

	parent, found := ag.tree.Lookup(parentName)
	if !found {
		return errors.Errorf("parent %s not declared (parents go before children)", parentName)
	}

	return ag.tree.Attach(parent, child)
}

type intermediary struct {
	name   string
	parent string
	handle components.Handle
}

func (im intermediary) String() string {
	return fmt.Sprintf("%s %s", im.handle.Ref().Kind(), im.name)
}

// attachIntermediaries attaches shift registers and multiplexers in passes,
// each one once its parent is connected to the controller, so they may
// nest in any order.
func (ag *AutoGarden) attachIntermediaries(pending []intermediary) error {
	for len(pending) > 0 {
		var rest []intermediary
		for _, im := range pending {
			if !ag.connected(im.parent) {
				rest = append(rest, im)
				continue
			}
			err := ag.attach(im.parent, im.handle)
			if err != nil {
				return errors.Wrapf(err, "%s", im)
			}
		}

		if len(rest) == len(pending) {
			return errors.Errorf("%s: parent %s not declared or not connected to the controller", rest[0], rest[0].parent)
		}
		pending = rest
	}
	return nil
}

// connected reports whether name is declared and reaches the controller.
func (ag *AutoGarden) connected(name string) bool {
	if len(name) == 0 {
		return true
	}
	c, found := ag.tree.Lookup(name)
	if !found {
		return false
	}
	_, rooted := c.Root()
	return rooted
}

// BuildTree constructs the component tree from the configuration. Any
// attach failure is a configuration error; hardware is not touched.
func (ag *AutoGarden) BuildTree() (err error) {
	if ag.hardware == nil {
		return errors.New("hardware driver not initialized")
	}

	ag.tree = components.NewTree(ag.hardware)
	ag.controller, err = ag.tree.NewMicrocontroller(ag.controllerName(), components.ControllerPins{
		DigitalOutput: ag.Controller.DigitalOutput,
		DigitalInput:  ag.Controller.DigitalInput,
		AnalogOutput:  ag.Controller.AnalogOutput,
		AnalogInput:   ag.Controller.AnalogInput,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create controller")
	}

	var intermediaries []intermediary
	for _, cfg := range ag.ShiftRegisters {
		order := drivers.LsbFirst
		if cfg.MsbFirst {
			order = drivers.MsbFirst
		}
		sr, err := ag.tree.NewShiftRegister(cfg.Name, cfg.Outputs, order)
		if err != nil {
			return err
		}
		intermediaries = append(intermediaries, intermediary{cfg.Name, cfg.Parent, sr})
	}

	for _, cfg := range ag.Multiplexers {
		mux, err := ag.tree.NewMultiplexer(cfg.Name, components.MultiplexerOptions{
			SelectLines:      cfg.SelectLines,
			Channels:         cfg.Channels,
			Mode:             cfg.Mode,
			EnableActiveHigh: cfg.EnableActiveHigh,
		})
		if err != nil {
			return err
		}
		intermediaries = append(intermediaries, intermediary{cfg.Name, cfg.Parent, mux})
	}

	err = ag.attachIntermediaries(intermediaries)
	if err != nil {
		return err
	}

	for _, cfg := range ag.Valves {
		valve, err := ag.tree.NewValve(cfg.Name, cfg.Inverted)
		if err != nil {
			return err
		}
		err = ag.attach(cfg.Parent, valve)
		if err != nil {
			return errors.Wrapf(err, "valve %s", cfg.Name)
		}
	}

	for _, cfg := range ag.Pumps {
		pump, err := ag.tree.NewPump(cfg.Name, cfg.Inverted)
		if err != nil {
			return err
		}
		err = ag.attach(cfg.Parent, pump)
		if err != nil {
			return errors.Wrapf(err, "pump %s", cfg.Name)
		}
	}

	for _, cfg := range ag.MoistureSensors {
		scaler := cfg.Scaler
		if scaler == 0 {
			scaler = defaultMoistureScaler
		}
		sensor, err := ag.tree.NewMoistureSensor(cfg.Name, scaler)
		if err != nil {
			return err
		}
		err = ag.attach(cfg.Parent, sensor)
		if err != nil {
			return errors.Wrapf(err, "moisture sensor %s", cfg.Name)
		}
	}

	if ag.LiquidLevelSensor != nil {
		cfg := ag.LiquidLevelSensor
		okValue := pins.High
		if cfg.OkWhenLow {
			okValue = pins.Low
		}
		ag.levelSensor, err = ag.tree.NewLiquidLevelSensor(cfg.Name, okValue)
		if err != nil {
			return err
		}
		err = ag.attach(cfg.Parent, ag.levelSensor)
		if err != nil {
			return errors.Wrapf(err, "liquid level sensor %s", cfg.Name)
		}
	}

	return nil
}
