//go:build tinygo

package drivers

import (
	"context"
	"machine"
	"time"

	"github.com/pkg/errors"
)

const picoDriverName = "pico"

const picoActivityBlink = 40 * time.Millisecond

// PicoIO runs the tree directly on an RP2040. Analog reads go through the
// on-chip ADC and are scaled down to 10 bits.
type PicoIO struct {
	InvertOutputs bool
	BlinkOnWrite  bool

	isReady bool
}

func (pio *PicoIO) String() string {
	return picoDriverName
}

func (pio *PicoIO) IsReady() bool {
	return pio.isReady
}

func (pio *PicoIO) Setup(ctx context.Context) error {
	machine.InitADC()
	if pio.BlinkOnWrite {
		machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	pio.isReady = true
	return nil
}

func (pio *PicoIO) Close() error {
	pio.isReady = false
	return nil
}

func (pio *PicoIO) pin(pin uint16) (machine.Pin, error) {
	if pin > 255 {
		return 0, errors.Errorf("pin %d out of range (pico takes uint8 pin)", pin)
	}
	return machine.Pin(pin), nil
}

func (pio *PicoIO) SetPinDirection(pin uint16, dir Direction) error {
	p, err := pio.pin(pin)
	if err != nil {
		return err
	}

	if dir == DirectionOutput {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	} else {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	return nil
}

func (pio *PicoIO) blink() {
	led := machine.LED

	led.High()
	time.Sleep(picoActivityBlink)
	led.Low()
}

func (pio *PicoIO) WriteDigital(pin uint16, level bool) error {
	p, err := pio.pin(pin)
	if err != nil {
		return err
	}

	if pio.InvertOutputs {
		level = !level
	}
	p.Set(level)

	if pio.BlinkOnWrite {
		go pio.blink()
	}
	return nil
}

func (pio *PicoIO) ReadDigital(pin uint16) (bool, error) {
	p, err := pio.pin(pin)
	if err != nil {
		return false, err
	}
	return p.Get(), nil
}

func (pio *PicoIO) WriteAnalog(pin uint16, value int) error {
	return errors.Wrapf(ErrNotSupported, "pico analog write (pin %d)", pin)
}

func (pio *PicoIO) ReadAnalog(pin uint16) (int, error) {
	p, err := pio.pin(pin)
	if err != nil {
		return 0, err
	}

	adc := machine.ADC{Pin: p}
	adc.Configure(machine.ADCConfig{})
	return int(adc.Get() >> 6), nil
}

func (pio *PicoIO) ShiftOut(dataPin, clockPin uint16, order BitOrder, bits int, word uint64) error {
	return bitBangShiftOut(pio, dataPin, clockPin, order, bits, word)
}

func (pio *PicoIO) Delay(d time.Duration) {
	time.Sleep(d)
}
