package components

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hubertat/autogarden/drivers"
	"github.com/hubertat/autogarden/pins"
	"github.com/pkg/errors"
)

// ID indexes a component inside its Tree.
type ID int

const NoID ID = -1

type node struct {
	name     string
	kind     Kind
	parent   ID
	root     ID
	children []ID

	controller *controllerState
	register   *shiftRegisterState
	mux        *multiplexerState
	actuator   *actuatorState
	moisture   *moistureState
	level      *levelState
}

// Tree owns every component of an installation. Components refer to each
// other by ID only; parent and root are lookups into the tree. All
// operations on a tree are serialized by its lock.
type Tree struct {
	hw     drivers.Hardware
	nodes  []*node
	names  map[string]ID
	logger *log.Logger

	lock sync.Mutex
}

func NewTree(hw drivers.Hardware) *Tree {
	return &Tree{
		hw:    hw,
		names: make(map[string]ID),
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "tree",
			Level:  log.GetLevel(),
		}),
	}
}

func (t *Tree) SetLogger(logger *log.Logger) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.logger = logger
}

func (t *Tree) Hardware() drivers.Hardware {
	return t.hw
}

func (t *Tree) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.nodes)
}

func (t *Tree) add(name string, kind Kind, n *node) (Component, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if name == "" {
		return Component{}, errors.Errorf("%s needs a name", kind)
	}
	if _, taken := t.names[name]; taken {
		return Component{}, errors.Wrap(ErrDuplicateName, name)
	}

	id := ID(len(t.nodes))
	n.name = name
	n.kind = kind
	n.parent = NoID
	n.root = NoID
	if kind == KindMicrocontroller {
		n.root = id
	}

	t.nodes = append(t.nodes, n)
	t.names[name] = id
	return Component{tree: t, id: id}, nil
}

func (t *Tree) node(id ID) *node {
	return t.nodes[id]
}

// Lookup finds a component by name.
func (t *Tree) Lookup(name string) (Component, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()

	id, found := t.names[name]
	if !found {
		return Component{}, false
	}
	return Component{tree: t, id: id}, true
}

func (t *Tree) lookup(name string, kind Kind) (Component, error) {
	c, found := t.Lookup(name)
	if !found {
		return c, errors.Wrap(ErrUnknownComponent, name)
	}
	if got := c.Kind(); got != kind {
		return c, errors.Wrapf(ErrWrongKind, "%s is a %s, not a %s", name, got, kind)
	}
	return c, nil
}

// Components lists every component in creation order.
func (t *Tree) Components() (list []Component) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for id := range t.nodes {
		list = append(list, Component{tree: t, id: ID(id)})
	}
	return
}

func (t *Tree) Microcontroller(name string) (*Microcontroller, error) {
	c, err := t.lookup(name, KindMicrocontroller)
	if err != nil {
		return nil, err
	}
	return &Microcontroller{c}, nil
}

func (t *Tree) ShiftRegister(name string) (*ShiftRegister, error) {
	c, err := t.lookup(name, KindShiftRegister)
	if err != nil {
		return nil, err
	}
	return &ShiftRegister{c}, nil
}

func (t *Tree) Multiplexer(name string) (*Multiplexer, error) {
	c, err := t.lookup(name, KindMultiplexer)
	if err != nil {
		return nil, err
	}
	return &Multiplexer{c}, nil
}

func (t *Tree) Valve(name string) (*Valve, error) {
	c, err := t.lookup(name, KindValve)
	if err != nil {
		return nil, err
	}
	return &Valve{c}, nil
}

func (t *Tree) Pump(name string) (*Pump, error) {
	c, err := t.lookup(name, KindPump)
	if err != nil {
		return nil, err
	}
	return &Pump{c}, nil
}

func (t *Tree) MoistureSensor(name string) (*MoistureSensor, error) {
	c, err := t.lookup(name, KindMoistureSensor)
	if err != nil {
		return nil, err
	}
	return &MoistureSensor{c}, nil
}

func (t *Tree) LiquidLevelSensor(name string) (*LiquidLevelSensor, error) {
	c, err := t.lookup(name, KindLiquidLevelSensor)
	if err != nil {
		return nil, err
	}
	return &LiquidLevelSensor{c}, nil
}

// Attach makes child a child of parent. The child's inputs are bound to
// free outputs first; if that fails nothing changes. On success the child
// and its whole subtree take over the parent's root.
func (t *Tree) Attach(parent, child Handle) error {
	p, c := parent.Ref(), child.Ref()
	if p.tree != t || c.tree != t {
		return errors.Wrap(ErrUnknownComponent, "component belongs to another tree")
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	err := t.attach(p.id, c.id)
	if err != nil {
		t.logger.Debug("attach rejected", "parent", t.node(p.id).name, "child", t.node(c.id).name, "err", err)
		return err
	}

	t.logger.Debug("attached", "parent", t.node(p.id).name, "child", t.node(c.id).name)
	return nil
}

func (t *Tree) attach(pid, cid ID) error {
	pn, cn := t.node(pid), t.node(cid)

	if cn.kind == KindMicrocontroller {
		return ErrRootAttach
	}
	if cn.parent != NoID {
		return errors.Wrapf(ErrAlreadyAttached, "%s is attached to %s", cn.name, t.node(cn.parent).name)
	}
	for a := pid; a != NoID; a = t.node(a).parent {
		if a == cid {
			return errors.Wrapf(ErrCycle, "%s is an ancestor of %s", cn.name, pn.name)
		}
	}

	err := t.bindInputs(cid, pid)
	if err != nil {
		return errors.Wrapf(err, "attaching %s to %s", cn.name, pn.name)
	}

	cn.parent = pid
	pn.children = append(pn.children, cid)
	t.setRoot(cid, pn.root)
	return nil
}

func (t *Tree) setRoot(id, root ID) {
	n := t.node(id)
	n.root = root
	for _, child := range n.children {
		t.setRoot(child, root)
	}
}

// outputs is the pool a component offers to its children.
func (t *Tree) outputs(id ID) *pins.OutputSet {
	n := t.node(id)
	switch n.kind {
	case KindMicrocontroller:
		return n.controller.pins
	case KindShiftRegister:
		return n.register.outputs
	case KindMultiplexer:
		return n.mux.channels
	default:
		return nil
	}
}

// bindInputs claims outputs for every input of the child. Multiplexers take
// their enable and shared signal lines from the root and only the select
// lines from the parent.
func (t *Tree) bindInputs(cid, pid ID) error {
	cn := t.node(cid)
	parentOutputs := t.outputs(pid)
	if parentOutputs == nil {
		return errors.Wrapf(ErrNoOutputs, "%s is a %s", t.node(pid).name, t.node(pid).kind)
	}

	switch cn.kind {
	case KindShiftRegister:
		return parentOutputs.Connect(cn.register.inputs()...)

	case KindMultiplexer:
		if parentOutputs.Exclusive() {
			return errors.Wrapf(ErrExclusiveSelect, "%s routes one channel at a time", t.node(pid).name)
		}
		root := t.node(pid).root
		if root == NoID {
			return errors.Wrapf(ErrDetached, "%s has no microcontroller for the enable and signal lines", t.node(pid).name)
		}
		m := cn.mux
		err := t.outputs(root).Connect(m.enable, m.shared)
		if err != nil {
			return errors.Wrap(err, "enable and signal lines")
		}
		err = parentOutputs.Connect(m.selects...)
		if err != nil {
			pins.Disconnect(m.enable, m.shared)
			return errors.Wrap(err, "select lines")
		}
		return nil

	case KindValve, KindPump:
		return parentOutputs.Connect(cn.actuator.input)

	case KindMoistureSensor:
		return parentOutputs.Connect(cn.moisture.input)

	case KindLiquidLevelSensor:
		return parentOutputs.Connect(cn.level.input)
	}

	return errors.Errorf("%s cannot be attached", cn.kind)
}

// Initialize sets the direction of every microcontroller pin and disables
// every attached multiplexer. Call it once the tree is assembled.
func (t *Tree) Initialize() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	for _, n := range t.nodes {
		if n.kind != KindMicrocontroller {
			continue
		}
		for _, terminal := range n.controller.pins.Terminals() {
			err := terminal.Initialize()
			if err != nil {
				return errors.Wrapf(err, "initializing %s of %s", terminal, n.name)
			}
		}
	}

	for _, n := range t.nodes {
		if n.kind != KindMultiplexer || n.parent == NoID {
			continue
		}
		err := n.mux.setEnabled(false)
		if err != nil {
			return errors.Wrapf(err, "disabling %s", n.name)
		}
	}

	return nil
}

// Walk calls fn for from and every descendant, depth first, in attach
// order. The tree is not locked while fn runs.
func (t *Tree) Walk(from Handle, fn func(c Component, depth int) error) error {
	if from.Ref().tree != t {
		return errors.Wrap(ErrUnknownComponent, "component belongs to another tree")
	}

	type visit struct {
		id    ID
		depth int
	}

	t.lock.Lock()
	var visits []visit
	var collect func(id ID, depth int)
	collect = func(id ID, depth int) {
		visits = append(visits, visit{id, depth})
		for _, child := range t.node(id).children {
			collect(child, depth+1)
		}
	}
	collect(from.Ref().id, 0)
	t.lock.Unlock()

	for _, v := range visits {
		err := fn(Component{tree: t, id: v.id}, v.depth)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) String() string {
	return fmt.Sprintf("tree of %d components on %s", t.Len(), t.hw)
}
