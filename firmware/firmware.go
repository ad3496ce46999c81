// Package firmware answers the serial line protocol spoken by
// drivers.SerialIO, executing every request on local hardware. It runs on
// the board (see cmd/pico) and, against a mock, in tests.
package firmware

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hubertat/autogarden/drivers"
)

const maxLineLength = 128

// Board serves requests for one hardware driver.
type Board struct {
	hw drivers.Hardware

	// OnRequest, when set, is called after every handled request.
	OnRequest func(request string, err error)
}

func NewBoard(hw drivers.Hardware) *Board {
	return &Board{hw: hw}
}

// Serve handles requests until rw is exhausted. Malformed requests are
// answered with ERR and do not stop the loop.
func (b *Board) Serve(rw io.ReadWriter) error {
	scanner := bufio.NewScanner(rw)
	scanner.Buffer(make([]byte, maxLineLength), maxLineLength)

	for scanner.Scan() {
		request := strings.TrimSpace(scanner.Text())
		if len(request) == 0 {
			continue
		}

		reply, err := b.Handle(request)
		if b.OnRequest != nil {
			b.OnRequest(request, err)
		}
		if err != nil {
			reply = "ERR " + err.Error()
		}

		_, err = io.WriteString(rw, reply+"\n")
		if err != nil {
			return errors.Wrap(err, "writing reply")
		}
	}
	return scanner.Err()
}

func parsePin(arg string) (uint16, error) {
	pin, err := strconv.ParseUint(arg, 10, 16)
	if err != nil {
		return 0, errors.Errorf("invalid pin %q", arg)
	}
	return uint16(pin), nil
}

func expectArgs(args []string, count int) error {
	if len(args) != count+1 {
		return errors.Errorf("%s takes %d arguments, got %d", args[0], count, len(args)-1)
	}
	return nil
}

// Handle executes one request line and returns the reply without newline.
func (b *Board) Handle(request string) (string, error) {
	args := strings.Fields(request)
	if len(args) == 0 {
		return "", errors.New("empty request")
	}

	command := strings.ToUpper(args[0])
	if command == "PING" {
		return "OK", nil
	}

	var count int
	switch command {
	case "DR", "AR":
		count = 1
	case "PM", "DW", "AW":
		count = 2
	case "SO":
		count = 5
	default:
		return "", errors.Errorf("unknown command %s", args[0])
	}
	if err := expectArgs(args, count); err != nil {
		return "", err
	}

	pin, err := parsePin(args[1])
	if err != nil {
		return "", err
	}

	switch command {
	case "PM":
		dir := drivers.DirectionInput
		switch args[2] {
		case "O":
			dir = drivers.DirectionOutput
		case "I":
		default:
			return "", errors.Errorf("invalid direction %q", args[2])
		}
		return "OK", b.hw.SetPinDirection(pin, dir)

	case "DW":
		if args[2] != "0" && args[2] != "1" {
			return "", errors.Errorf("invalid level %q", args[2])
		}
		return "OK", b.hw.WriteDigital(pin, args[2] == "1")

	case "DR":
		level, err := b.hw.ReadDigital(pin)
		if err != nil {
			return "", err
		}
		if level {
			return "OK 1", nil
		}
		return "OK 0", nil

	case "AW":
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return "", errors.Errorf("invalid value %q", args[2])
		}
		return "OK", b.hw.WriteAnalog(pin, value)

	case "AR":
		value, err := b.hw.ReadAnalog(pin)
		if err != nil {
			return "", err
		}
		return "OK " + strconv.Itoa(value), nil
	}

	// SO <data> <clock> <M|L> <bits> <word>
	clock, err := parsePin(args[2])
	if err != nil {
		return "", err
	}
	order := drivers.LsbFirst
	switch args[3] {
	case "M":
		order = drivers.MsbFirst
	case "L":
	default:
		return "", errors.Errorf("invalid bit order %q", args[3])
	}
	bits, err := strconv.Atoi(args[4])
	if err != nil {
		return "", errors.Errorf("invalid width %q", args[4])
	}
	word, err := strconv.ParseUint(args[5], 10, 64)
	if err != nil {
		return "", errors.Errorf("invalid word %q", args[5])
	}
	return "OK", b.hw.ShiftOut(pin, clock, order, bits, word)
}
