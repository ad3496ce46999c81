package autogarden

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"

	"github.com/hubertat/autogarden/components"
)

// WateringStation waters one bed: when active and the soil reads drier
// than the threshold it opens the valve and runs the pump for the
// configured duration.
type WateringStation struct {
	Idx               int
	Valve             string
	Pump              string
	Sensor            string
	Status            bool
	WateringDuration  Duration
	MoistureThreshold float64
	DisableHomekit    bool

	valve  *components.Valve
	pump   *components.Pump
	sensor *components.MoistureSensor

	wait        func(ctx context.Context, d time.Duration) error
	topicPrefix string

	moisture     float64
	watering     bool
	lastWatering time.Time
	lastErr      error

	lock sync.Mutex
}

// StationConfig is a partial update, absent fields stay unchanged.
type StationConfig struct {
	Status            *bool     `json:"status"`
	WateringDuration  *Duration `json:"watering_duration"`
	MoistureThreshold *float64  `json:"moisture_threshold"`
}

type StationState struct {
	Idx               int       `json:"idx"`
	Status            bool      `json:"status"`
	MoistureLevel     *float64  `json:"moisture_level"`
	MoistureThreshold float64   `json:"moisture_threshold"`
	WateringDuration  Duration  `json:"watering_duration"`
	Watering          bool      `json:"watering"`
	LastWatering      time.Time `json:"last_watering"`
	Error             string    `json:"error,omitempty"`
}

var ErrAlreadyWatering = errors.New("watering cycle already running")

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func stationStateTopic(prefix string, idx int) string {
	return fmt.Sprintf("%s/stations/%d/state", prefix, idx)
}

func (ws *WateringStation) Init(tree *components.Tree) (err error) {
	if len(ws.Sensor) == 0 {
		return errors.New("station needs a moisture sensor")
	}
	if len(ws.Valve) == 0 && len(ws.Pump) == 0 {
		return errors.New("station needs a valve or a pump")
	}
	if ws.MoistureThreshold < 0 || ws.MoistureThreshold > 100 {
		return errors.Errorf("moisture threshold %.1f out of range (0..100)", ws.MoistureThreshold)
	}

	ws.sensor, err = tree.MoistureSensor(ws.Sensor)
	if err != nil {
		return
	}
	if len(ws.Valve) > 0 {
		ws.valve, err = tree.Valve(ws.Valve)
		if err != nil {
			return
		}
	}
	if len(ws.Pump) > 0 {
		ws.pump, err = tree.Pump(ws.Pump)
		if err != nil {
			return
		}
	}

	if ws.wait == nil {
		ws.wait = sleepContext
	}
	ws.moisture = components.NullReading
	return nil
}

func (ws *WateringStation) settings() (status bool, duration time.Duration, threshold float64) {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	return ws.Status, ws.WateringDuration.Duration, ws.MoistureThreshold
}

func (ws *WateringStation) recordReading(moisture float64) {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	ws.moisture = moisture
}

func (ws *WateringStation) startWatering() bool {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	if ws.watering {
		return false
	}
	ws.watering = true
	return true
}

func (ws *WateringStation) setWatering(watering bool, err error) {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	ws.watering = watering
	if !watering {
		ws.lastErr = err
		if err == nil {
			ws.lastWatering = time.Now()
		}
	}
}

// Moisture returns the last scaled reading, NullReading if it failed.
func (ws *WateringStation) Moisture() float64 {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	return ws.moisture
}

func (ws *WateringStation) IsWatering() bool {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	return ws.watering
}

func (ws *WateringStation) SensorName() string {
	return ws.Sensor
}

// Activate reads the soil moisture and waters when the station is active
// and the reading is below the threshold. A failed reading never waters.
func (ws *WateringStation) Activate(ctx context.Context) error {
	moisture := ws.sensor.ReadScaled()
	ws.recordReading(moisture)

	status, duration, threshold := ws.settings()
	if !status {
		return nil
	}
	if moisture == components.NullReading {
		return errors.Errorf("station %d: moisture sensor %s gave no reading", ws.Idx, ws.Sensor)
	}
	if moisture >= threshold || ws.IsWatering() {
		return nil
	}

	log.Info("watering", "station", ws.Idx, "moisture", moisture, "threshold", threshold, "duration", duration)
	return ws.Water(ctx, duration)
}

// Water runs one watering cycle: open valve, start pump, wait, stop pump,
// close valve. The valve is closed again whenever the pump fails to start.
// A station runs one cycle at a time, a second call fails with
// ErrAlreadyWatering.
func (ws *WateringStation) Water(ctx context.Context, duration time.Duration) (err error) {
	if !ws.startWatering() {
		return errors.Wrapf(ErrAlreadyWatering, "station %d", ws.Idx)
	}
	defer func() {
		ws.setWatering(false, err)
	}()

	if ws.valve != nil {
		err = ws.valve.Open()
		if err != nil {
			return errors.Wrapf(err, "station %d opening valve", ws.Idx)
		}
	}

	if ws.pump != nil {
		err = ws.pump.Start()
		if err != nil {
			err = errors.Wrapf(err, "station %d starting pump", ws.Idx)
			if ws.valve != nil {
				if closeErr := ws.valve.Close(); closeErr != nil {
					log.Error("closing valve after pump failure failed", "station", ws.Idx, "err", closeErr)
				}
			}
			return
		}
	}

	waitErr := ws.wait(ctx, duration)
	err = ws.Stop()
	if err == nil && waitErr != nil {
		err = errors.Wrapf(waitErr, "station %d watering interrupted", ws.Idx)
	}
	return
}

// Stop stops the pump and closes the valve.
func (ws *WateringStation) Stop() error {
	var pumpErr, valveErr error
	if ws.pump != nil {
		pumpErr = ws.pump.Stop()
	}
	if ws.valve != nil {
		valveErr = ws.valve.Close()
	}

	if pumpErr != nil {
		return errors.Wrapf(pumpErr, "station %d stopping pump", ws.Idx)
	}
	if valveErr != nil {
		return errors.Wrapf(valveErr, "station %d closing valve", ws.Idx)
	}
	return nil
}

// Update applies a partial configuration. Nothing changes when any field
// is invalid.
func (ws *WateringStation) Update(cfg StationConfig) error {
	if cfg.MoistureThreshold != nil && (*cfg.MoistureThreshold < 0 || *cfg.MoistureThreshold > 100) {
		return errors.Errorf("moisture threshold %.1f out of range (0..100)", *cfg.MoistureThreshold)
	}
	if cfg.WateringDuration != nil && cfg.WateringDuration.Duration < 0 {
		return errors.New("negative watering duration")
	}

	ws.lock.Lock()
	defer ws.lock.Unlock()

	if cfg.Status != nil {
		ws.Status = *cfg.Status
	}
	if cfg.WateringDuration != nil {
		ws.WateringDuration = *cfg.WateringDuration
	}
	if cfg.MoistureThreshold != nil {
		ws.MoistureThreshold = *cfg.MoistureThreshold
	}
	return nil
}

func (ws *WateringStation) State() StationState {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	state := StationState{
		Idx:               ws.Idx,
		Status:            ws.Status,
		MoistureThreshold: ws.MoistureThreshold,
		WateringDuration:  ws.WateringDuration,
		Watering:          ws.watering,
		LastWatering:      ws.lastWatering,
	}
	if ws.moisture != components.NullReading {
		moisture := ws.moisture
		state.MoistureLevel = &moisture
	}
	if ws.lastErr != nil {
		state.Error = ws.lastErr.Error()
	}
	return state
}

func (ws *WateringStation) MqttSubscribeTopic() string {
	return fmt.Sprintf("%s/stations/%d/set", ws.topicPrefix, ws.Idx)
}

func (ws *WateringStation) MqttHandle(pub *paho.Publish) {
	cfg := StationConfig{}
	err := json.Unmarshal(pub.Payload, &cfg)
	if err != nil {
		log.Error("invalid station config", "station", ws.Idx, "err", err)
		return
	}

	err = ws.Update(cfg)
	if err != nil {
		log.Error("station update rejected", "station", ws.Idx, "err", err)
		return
	}
	log.Info("station updated", "station", ws.Idx)
}

func (ws *WateringStation) String() string {
	status, duration, threshold := ws.settings()
	return fmt.Sprintf("station %d: sensor %s, valve %s, pump %s, active %t, below %.0f water for %s",
		ws.Idx, ws.Sensor, ws.Valve, ws.Pump, status, threshold, Duration{duration})
}
