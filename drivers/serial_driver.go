//go:build !tinygo

package drivers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

const serialDriverName = "serial"

const (
	defaultSerialBaud    = 115200
	defaultSerialTimeout = 2 * time.Second
	serialReplyOk        = "OK"
	serialReplyErr       = "ERR"
)

// SerialIO forwards pin primitives to a microcontroller running the
// autogarden firmware over a serial line. Every request is one line,
// every reply is "OK", "OK <value>" or "ERR <message>".
//
//	PM <pin> <I|O>
//	DW <pin> <0|1>
//	DR <pin>
//	AW <pin> <value>
//	AR <pin>
//	SO <data> <clock> <M|L> <bits> <word>
type SerialIO struct {
	Device    string
	Baud      int
	TimeoutMs int

	port    io.ReadWriteCloser
	reader  *bufio.Reader
	isReady bool
	lock    sync.Mutex
}

func (sio *SerialIO) String() string {
	return serialDriverName
}

func (sio *SerialIO) IsReady() bool {
	sio.lock.Lock()
	defer sio.lock.Unlock()

	return sio.isReady
}

func (sio *SerialIO) Setup(ctx context.Context) error {
	baud := sio.Baud
	if baud == 0 {
		baud = defaultSerialBaud
	}
	timeout := defaultSerialTimeout
	if sio.TimeoutMs > 0 {
		timeout = time.Duration(sio.TimeoutMs) * time.Millisecond
	}

	port, err := serial.OpenPort(&serial.Config{Name: sio.Device, Baud: baud, ReadTimeout: timeout})
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %s", sio.Device)
	}

	return sio.Attach(port)
}

// Attach takes over an already open port (or any stream) and checks the
// board answers.
func (sio *SerialIO) Attach(port io.ReadWriteCloser) error {
	sio.lock.Lock()
	defer sio.lock.Unlock()

	sio.port = port
	sio.reader = bufio.NewReader(port)
	sio.isReady = true

	_, err := sio.command("PING")
	if err != nil {
		if sio.isReady {
			sio.drop()
		}
		return errors.Wrap(err, "serial board did not answer")
	}
	return nil
}

func (sio *SerialIO) Close() error {
	sio.lock.Lock()
	defer sio.lock.Unlock()

	if !sio.isReady {
		return nil
	}
	sio.isReady = false
	return sio.port.Close()
}

// drop closes a link whose replies can no longer be matched to requests.
// A late reply would otherwise answer the next request.
func (sio *SerialIO) drop() {
	sio.isReady = false
	sio.port.Close()
}

// command sends one request line and returns the reply payload after "OK".
// Transport failures and unexpected replies drop the link, Setup opens it
// again.
func (sio *SerialIO) command(format string, args ...interface{}) (string, error) {
	if !sio.isReady {
		return "", errors.Wrap(ErrNotReady, "serial")
	}

	request := fmt.Sprintf(format, args...)
	_, err := io.WriteString(sio.port, request+"\n")
	if err != nil {
		sio.drop()
		return "", errors.Wrapf(err, "writing %q", request)
	}

	line, err := sio.reader.ReadString('\n')
	if err != nil {
		sio.drop()
		return "", errors.Wrapf(err, "reading reply to %q", request)
	}
	line = strings.TrimSpace(line)

	switch {
	case line == serialReplyOk:
		return "", nil
	case strings.HasPrefix(line, serialReplyOk+" "):
		return strings.TrimPrefix(line, serialReplyOk+" "), nil
	case strings.HasPrefix(line, serialReplyErr):
		return "", errors.Errorf("board rejected %q: %s", request, strings.TrimSpace(strings.TrimPrefix(line, serialReplyErr)))
	default:
		sio.drop()
		return "", errors.Errorf("unexpected reply to %q: %q", request, line)
	}
}

func (sio *SerialIO) exec(format string, args ...interface{}) (string, error) {
	sio.lock.Lock()
	defer sio.lock.Unlock()

	return sio.command(format, args...)
}

func (sio *SerialIO) SetPinDirection(pin uint16, dir Direction) error {
	mode := "I"
	if dir == DirectionOutput {
		mode = "O"
	}
	_, err := sio.exec("PM %d %s", pin, mode)
	return err
}

func (sio *SerialIO) WriteDigital(pin uint16, level bool) error {
	_, err := sio.exec("DW %d %d", pin, boolToLevel(level))
	return err
}

func (sio *SerialIO) ReadDigital(pin uint16) (bool, error) {
	value, err := sio.readInt("DR %d", pin)
	return value != 0, err
}

func (sio *SerialIO) WriteAnalog(pin uint16, value int) error {
	_, err := sio.exec("AW %d %d", pin, value)
	return err
}

func (sio *SerialIO) ReadAnalog(pin uint16) (int, error) {
	return sio.readInt("AR %d", pin)
}

func (sio *SerialIO) readInt(format string, pin uint16) (int, error) {
	reply, err := sio.exec(format, pin)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(reply)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing reading of pin %d", pin)
	}
	return value, nil
}

func (sio *SerialIO) ShiftOut(dataPin, clockPin uint16, order BitOrder, bits int, word uint64) error {
	if bits < 1 || bits > maxShiftOutBits {
		return errors.Errorf("shift out width %d out of range (1..%d)", bits, maxShiftOutBits)
	}
	orderFlag := "L"
	if order == MsbFirst {
		orderFlag = "M"
	}
	_, err := sio.exec("SO %d %d %s %d %d", dataPin, clockPin, orderFlag, bits, word)
	return err
}

func (sio *SerialIO) Delay(d time.Duration) {
	time.Sleep(d)
}
