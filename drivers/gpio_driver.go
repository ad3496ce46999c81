//go:build !tinygo

package drivers

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

const gpioDriverName = "gpio"

const (
	defaultPwmFrequency = 64000
	defaultPwmCycle     = 256
)

// GpIO drives Raspberry Pi header pins through /dev/gpiomem.
// Analog output uses hardware PWM, analog input is not available.
type GpIO struct {
	InvertInputs  bool
	InvertOutputs bool
	PullUpInputs  bool

	PwmFrequency int
	PwmCycle     uint32

	isReady bool
}

func (gp *GpIO) pin(pin uint16) (rpio.Pin, error) {
	if !gp.isReady {
		return 0, errors.Wrapf(ErrNotReady, "gpio pin %d", pin)
	}
	if pin > 255 {
		return 0, errors.Errorf("pin %d out of range (gpio takes uint8 pin)", pin)
	}
	return rpio.Pin(pin), nil
}

func (gp *GpIO) Setup(ctx context.Context) error {
	err := rpio.Open()
	if err != nil {
		return errors.Wrap(err, "failed to Setup gpio driver")
	}

	gp.isReady = true
	return nil
}

func (gp *GpIO) String() string {
	return gpioDriverName
}

func (gp *GpIO) IsReady() bool {
	return gp.isReady
}

func (gp *GpIO) Close() error {
	if !gp.isReady {
		return nil
	}
	gp.isReady = false
	return rpio.Close()
}

func (gp *GpIO) SetPinDirection(pin uint16, dir Direction) error {
	p, err := gp.pin(pin)
	if err != nil {
		return err
	}

	if dir == DirectionOutput {
		p.Output()
		return nil
	}

	p.Input()
	if gp.PullUpInputs {
		p.PullUp()
	}
	return nil
}

func (gp *GpIO) WriteDigital(pin uint16, level bool) error {
	p, err := gp.pin(pin)
	if err != nil {
		return err
	}

	if gp.InvertOutputs {
		level = !level
	}
	if level {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (gp *GpIO) ReadDigital(pin uint16) (bool, error) {
	p, err := gp.pin(pin)
	if err != nil {
		return false, err
	}

	state := p.Read() == rpio.High
	if gp.InvertInputs {
		state = !state
	}
	return state, nil
}

func (gp *GpIO) WriteAnalog(pin uint16, value int) error {
	p, err := gp.pin(pin)
	if err != nil {
		return err
	}

	cycle := gp.PwmCycle
	if cycle == 0 {
		cycle = defaultPwmCycle
	}
	if value < 0 || uint32(value) > cycle {
		return errors.Errorf("pwm duty %d out of range (0..%d)", value, cycle)
	}
	freq := gp.PwmFrequency
	if freq == 0 {
		freq = defaultPwmFrequency
	}

	p.Pwm()
	p.Freq(freq)
	p.DutyCycle(uint32(value), cycle)
	return nil
}

func (gp *GpIO) ReadAnalog(pin uint16) (int, error) {
	return 0, errors.Wrapf(ErrNotSupported, "gpio has no adc (pin %d)", pin)
}

func (gp *GpIO) ShiftOut(dataPin, clockPin uint16, order BitOrder, bits int, word uint64) error {
	return bitBangShiftOut(gp, dataPin, clockPin, order, bits, word)
}

func (gp *GpIO) Delay(d time.Duration) {
	time.Sleep(d)
}
