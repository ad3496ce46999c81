//go:build !tinygo

package drivers

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
)

const mcpioDriverName = "mcpio"

const mcpPinCount = 16

// McpIO drives an MCP23017 i2c port expander. It is digital only.
type McpIO struct {
	device *mcp23017.Device

	BusNo         uint8
	DevNo         uint8
	InvertInputs  bool
	InvertOutputs bool
	PullUpInputs  bool

	isReady bool
}

func (mcp *McpIO) pin(pin uint16) (uint8, error) {
	if !mcp.isReady {
		return 0, errors.Wrapf(ErrNotReady, "mcpio pin %d", pin)
	}
	if pin >= mcpPinCount {
		return 0, errors.Errorf("pin %d out of range (mcpio has %d pins)", pin, mcpPinCount)
	}
	return uint8(pin), nil
}

func (mcp *McpIO) String() string {
	return mcpioDriverName
}

func (mcp *McpIO) IsReady() bool {
	return mcp.isReady
}

func (mcp *McpIO) Setup(ctx context.Context) (err error) {
	mcp.device, err = mcp23017.Open(mcp.BusNo, mcp.DevNo)
	if err != nil {
		return errors.Wrapf(err, "failed to open mcp23017 (bus %d, dev %d)", mcp.BusNo, mcp.DevNo)
	}

	mcp.isReady = true
	return nil
}

func (mcp *McpIO) Close() error {
	if !mcp.isReady {
		return nil
	}
	mcp.isReady = false
	return mcp.device.Close()
}

func (mcp *McpIO) SetPinDirection(pin uint16, dir Direction) error {
	p, err := mcp.pin(pin)
	if err != nil {
		return err
	}

	if dir == DirectionOutput {
		return mcp.device.PinMode(p, mcp23017.OUTPUT)
	}

	err = mcp.device.PinMode(p, mcp23017.INPUT)
	if err != nil {
		return err
	}
	if mcp.PullUpInputs {
		err = mcp.device.SetPullUp(p, true)
	}
	return err
}

func (mcp *McpIO) WriteDigital(pin uint16, level bool) error {
	p, err := mcp.pin(pin)
	if err != nil {
		return err
	}

	if mcp.InvertOutputs {
		level = !level
	}
	return mcp.device.DigitalWrite(p, mcp23017.PinLevel(level))
}

func (mcp *McpIO) ReadDigital(pin uint16) (state bool, err error) {
	p, err := mcp.pin(pin)
	if err != nil {
		return
	}

	rawState, err := mcp.device.DigitalRead(p)
	if err != nil {
		return
	}

	state = bool(rawState)
	if mcp.InvertInputs {
		state = !state
	}
	return
}

func (mcp *McpIO) WriteAnalog(pin uint16, value int) error {
	return errors.Wrapf(ErrNotSupported, "mcpio analog write (pin %d)", pin)
}

func (mcp *McpIO) ReadAnalog(pin uint16) (int, error) {
	return 0, errors.Wrapf(ErrNotSupported, "mcpio analog read (pin %d)", pin)
}

func (mcp *McpIO) ShiftOut(dataPin, clockPin uint16, order BitOrder, bits int, word uint64) error {
	return bitBangShiftOut(mcp, dataPin, clockPin, order, bits, word)
}

func (mcp *McpIO) Delay(d time.Duration) {
	time.Sleep(d)
}
