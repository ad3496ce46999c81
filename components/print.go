package components

import (
	"fmt"
	"io"
	"strings"

	"github.com/hubertat/autogarden/pins"
)

// Info is a snapshot of one component, used by the http api and console.
type Info struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Parent   string   `json:"parent,omitempty"`
	Root     string   `json:"root,omitempty"`
	Bound    bool     `json:"bound"`
	Children []string `json:"children,omitempty"`
	State    string   `json:"state,omitempty"`
	Free     int      `json:"free_outputs,omitempty"`
}

func (c Component) Info() Info {
	t := c.tree
	t.lock.Lock()
	defer t.lock.Unlock()

	n := t.node(c.id)
	info := Info{
		Name:  n.name,
		Kind:  n.kind.String(),
		Bound: true,
	}
	if n.parent != NoID {
		info.Parent = t.node(n.parent).name
	}
	if n.root != NoID {
		info.Root = t.node(n.root).name
	}
	for _, child := range n.children {
		info.Children = append(info.Children, t.node(child).name)
	}
	for _, in := range n.inputs() {
		if !in.Bound() {
			info.Bound = false
		}
	}

	switch n.kind {
	case KindMicrocontroller:
		for _, mode := range []pins.Mode{pins.DigitalOutput, pins.DigitalInput, pins.AnalogOutput, pins.AnalogInput} {
			info.Free += n.controller.pins.Available(mode)
		}
	case KindShiftRegister:
		info.Free = n.register.outputs.Available(pins.DigitalOutput)
	case KindMultiplexer:
		info.Free = n.mux.channels.Available(n.mux.shared.Mode())
		info.State = "disabled"
		if n.mux.enabled {
			info.State = "enabled"
		}
	case KindValve:
		info.State = "closed"
		if n.actuator.active {
			info.State = "open"
		}
	case KindPump:
		info.State = "stopped"
		if n.actuator.active {
			info.State = "running"
		}
	}

	return info
}

// PrintTree writes an indented listing of the subtree below from.
func (t *Tree) PrintTree(w io.Writer, from Handle) error {
	return t.Walk(from, func(c Component, depth int) error {
		info := c.Info()

		line := fmt.Sprintf("%s%s (%s)", strings.Repeat("  ", depth), info.Name, info.Kind)
		if info.State != "" {
			line += " " + info.State
		}
		if info.Kind == KindShiftRegister.String() || info.Kind == KindMultiplexer.String() || info.Kind == KindMicrocontroller.String() {
			line += fmt.Sprintf(" [%d free]", info.Free)
		}
		if !info.Bound {
			line += " [unbound]"
		}

		_, err := fmt.Fprintln(w, line)
		return err
	})
}
