package autogarden

import (
	"context"
	"fmt"
	"hash/fnv"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	hklog "github.com/brutella/hap/log"
	"github.com/brutella/hap/service"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/autogarden/components"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "autogarden"
const homeKitBridgeAuthor = "github.com/hubertat"

func uniqueId(kind components.Kind, name string) uint64 {
	hash := fnv.New64()
	hash.Write([]byte(kind.String() + "_" + name))
	return hash.Sum64()
}

// hkSwitch exposes a valve or pump as a HomeKit switch.
type hkSwitch struct {
	name  string
	kind  components.Kind
	hk    *accessory.Switch
	fault *characteristic.StatusFault

	set    func(on bool) error
	active func() bool
}

func newHkSwitch(kind components.Kind, name string, set func(bool) error, active func() bool) *hkSwitch {
	hs := &hkSwitch{name: name, kind: kind, set: set, active: active}

	hs.hk = accessory.NewSwitch(accessory.Info{
		Name:         name,
		SerialNumber: fmt.Sprintf("%s:%s", kind, name),
		Manufacturer: homeKitBridgeAuthor,
	})
	hs.hk.Id = uniqueId(kind, name)

	hs.fault = characteristic.NewStatusFault()
	hs.fault.SetValue(characteristic.StatusFaultNoFault)
	hs.hk.Switch.AddC(hs.fault.C)

	hs.hk.Switch.On.OnValueRemoteUpdate(hs.SetValue)
	return hs
}

func (hs *hkSwitch) SetValue(on bool) {
	err := hs.set(on)
	if err != nil {
		log.Error("HomeKit switch failed", "component", hs.name, "on", on, "err", err)
		hs.fault.SetValue(characteristic.StatusFaultGeneralFault)
		hs.hk.Switch.On.SetValue(hs.active())
		return
	}
	hs.fault.SetValue(characteristic.StatusFaultNoFault)
}

func (hs *hkSwitch) Sync() {
	hs.hk.Switch.On.SetValue(hs.active())
}

// hkMoisture exposes a moisture sensor as a humidity sensor.
type hkMoisture struct {
	name     string
	hk       *accessory.A
	humidity *service.HumiditySensor
	fault    *characteristic.StatusFault

	read func() float64
}

func newHkMoisture(name string, read func() float64) *hkMoisture {
	hm := &hkMoisture{name: name, read: read}

	hm.hk = accessory.New(accessory.Info{
		Name:         name,
		SerialNumber: fmt.Sprintf("%s:%s", components.KindMoistureSensor, name),
		Manufacturer: homeKitBridgeAuthor,
	}, accessory.TypeSensor)
	hm.hk.Id = uniqueId(components.KindMoistureSensor, name)

	hm.humidity = service.NewHumiditySensor()
	hm.fault = characteristic.NewStatusFault()
	hm.humidity.AddC(hm.fault.C)
	hm.hk.AddS(hm.humidity.S)

	return hm
}

func (hm *hkMoisture) Sync() {
	value := hm.read()
	if value == components.NullReading {
		hm.fault.SetValue(characteristic.StatusFaultGeneralFault)
		return
	}

	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	hm.fault.SetValue(characteristic.StatusFaultNoFault)
	hm.humidity.CurrentRelativeHumidity.SetValue(value)
}

// moistureReader prefers the reading a station already took this tick
// over sampling the sensor again.
func (ag *AutoGarden) moistureReader(sensor *components.MoistureSensor) func() float64 {
	name := sensor.Name()
	for _, ws := range ag.Stations {
		if ws.SensorName() == name {
			return ws.Moisture
		}
	}
	return sensor.ReadScaled
}

func (ag *AutoGarden) initHomeKitThings() error {
	ag.hkSwitches = nil
	ag.hkSensors = nil

	for _, cfg := range ag.Valves {
		if cfg.DisableHomekit {
			continue
		}
		valve, err := ag.tree.Valve(cfg.Name)
		if err != nil {
			return err
		}
		ag.hkSwitches = append(ag.hkSwitches, newHkSwitch(components.KindValve, cfg.Name, func(on bool) error {
			if on {
				return valve.Open()
			}
			return valve.Close()
		}, valve.IsOpen))
	}

	for _, cfg := range ag.Pumps {
		if cfg.DisableHomekit {
			continue
		}
		pump, err := ag.tree.Pump(cfg.Name)
		if err != nil {
			return err
		}
		ag.hkSwitches = append(ag.hkSwitches, newHkSwitch(components.KindPump, cfg.Name, func(on bool) error {
			if on {
				return pump.Start()
			}
			return pump.Stop()
		}, pump.IsRunning))
	}

	for _, cfg := range ag.MoistureSensors {
		if cfg.DisableHomekit {
			continue
		}
		sensor, err := ag.tree.MoistureSensor(cfg.Name)
		if err != nil {
			return err
		}
		ag.hkSensors = append(ag.hkSensors, newHkMoisture(cfg.Name, ag.moistureReader(sensor)))
	}

	return nil
}

func (ag *AutoGarden) GetHkAccessories(firmwareVersion string) (acc []*accessory.A) {
	acc = []*accessory.A{}

	for _, hs := range ag.hkSwitches {
		acc = append(acc, hs.hk.A)
	}
	for _, hm := range ag.hkSensors {
		acc = append(acc, hm.hk)
	}

	for _, a := range acc {
		if a.Info != nil && a.Info.FirmwareRevision != nil {
			a.Info.FirmwareRevision.SetValue(firmwareVersion)
		}
	}

	return
}

func (ag *AutoGarden) syncHomeKit() {
	for _, hs := range ag.hkSwitches {
		hs.Sync()
	}
	for _, hm := range ag.hkSensors {
		hm.Sync()
	}
}

func (ag *AutoGarden) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	hkName := ag.Name
	if len(hkName) < 1 {
		hkName = homeKitBridgeName
	}
	bridge := accessory.NewBridge(accessory.Info{
		Name:         hkName,
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	var store hap.Store
	if len(ag.HkDirectory) > 1 {
		store = hap.NewFsStore(ag.HkDirectory)
	} else {
		store = hap.NewFsStore(defaultHomeKitDirectory)
	}
	hkServer, err := hap.NewServer(store, bridge.A, ag.GetHkAccessories(firmwareVersion)...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = ag.HkPin
	if len(ag.HkAddress) > 0 {
		hkServer.Addr = ag.HkAddress
	}

	if ag.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	log.Info("starting HomeKit bridge", "name", hkName, "accessories", len(ag.hkSwitches)+len(ag.hkSensors))
	return hkServer.ListenAndServe(ctx)
}
