package components

import "github.com/pkg/errors"

var (
	ErrRootAttach       = errors.New("microcontroller cannot have a parent")
	ErrAlreadyAttached  = errors.New("component already has a parent")
	ErrCycle            = errors.New("attach would create a cycle")
	ErrNoOutputs        = errors.New("component has no outputs to offer")
	ErrDetached         = errors.New("component is not connected to a microcontroller")
	ErrNothingToRoute   = errors.New("no channel carries a pending signal")
	ErrNotPhysical      = errors.New("line is not bound to a microcontroller pin")
	ErrUnknownComponent = errors.New("unknown component")
	ErrDuplicateName    = errors.New("component name already in use")
	ErrWrongKind        = errors.New("component is of another kind")
	ErrExclusiveSelect  = errors.New("select lines need outputs that hold their state")
)
