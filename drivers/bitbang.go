package drivers

import "github.com/pkg/errors"

const maxShiftOutBits = 64

type digitalWriter interface {
	WriteDigital(pin uint16, level bool) error
}

// bitBangShiftOut clocks word out on dataPin one bit at a time: data is set,
// then clockPin pulses high and low.
func bitBangShiftOut(w digitalWriter, dataPin, clockPin uint16, order BitOrder, bits int, word uint64) error {
	if bits < 1 || bits > maxShiftOutBits {
		return errors.Errorf("shift out width %d out of range (1..%d)", bits, maxShiftOutBits)
	}

	for i := 0; i < bits; i++ {
		pos := i
		if order == MsbFirst {
			pos = bits - 1 - i
		}

		err := w.WriteDigital(dataPin, word&(uint64(1)<<uint(pos)) != 0)
		if err != nil {
			return errors.Wrapf(err, "shift out failed on data pin %d (bit %d)", dataPin, pos)
		}
		err = w.WriteDigital(clockPin, true)
		if err != nil {
			return errors.Wrapf(err, "shift out failed on clock pin %d", clockPin)
		}
		err = w.WriteDigital(clockPin, false)
		if err != nil {
			return errors.Wrapf(err, "shift out failed on clock pin %d", clockPin)
		}
	}

	return nil
}
