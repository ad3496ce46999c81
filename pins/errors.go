package pins

import "github.com/pkg/errors"

var (
	ErrModeMismatch  = errors.New("pin mode mismatch")
	ErrPinsExhausted = errors.New("not enough free output pins")
	ErrUnbound       = errors.New("input pin is not connected")
	ErrAlreadyBound  = errors.New("input pin already connected")
	ErrNoSignal      = errors.New("no signal")
)
