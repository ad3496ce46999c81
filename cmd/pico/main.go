//go:build tinygo

// Board firmware for the serial driver: flash with
// tinygo flash -target=pico ./cmd/pico
package main

import (
	"context"
	"machine"
	"time"

	"github.com/hubertat/autogarden/drivers"
	"github.com/hubertat/autogarden/firmware"
)

const baudRate = 115200

// uartPort blocks reads until a byte arrives, the uart itself returns
// immediately when its buffer is empty.
type uartPort struct {
	uart *machine.UART
}

func (up uartPort) Read(p []byte) (int, error) {
	for up.uart.Buffered() == 0 {
		time.Sleep(time.Millisecond)
	}
	return up.uart.Read(p)
}

func (up uartPort) Write(p []byte) (int, error) {
	return up.uart.Write(p)
}

func main() {
	hw := &drivers.PicoIO{BlinkOnWrite: true}
	err := hw.Setup(context.Background())
	if err != nil {
		println("setup failed:", err.Error())
		return
	}

	uart := machine.UART0
	uart.Configure(machine.UARTConfig{BaudRate: baudRate, TX: machine.UART0_TX_PIN, RX: machine.UART0_RX_PIN})

	board := firmware.NewBoard(hw)
	board.OnRequest = func(request string, err error) {
		if err != nil {
			println(request, "failed:", err.Error())
		}
	}

	for {
		err = board.Serve(uartPort{uart: uart})
		if err != nil {
			println("serial error:", err.Error())
		}
		time.Sleep(100 * time.Millisecond)
	}
}
