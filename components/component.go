package components

import "fmt"

// Handle is anything that refers to a component of a tree.
type Handle interface {
	Ref() Component
}

// Component is a reference to one node of a Tree. The typed handles
// (Valve, Multiplexer, ...) embed it.
type Component struct {
	tree *Tree
	id   ID
}

func (c Component) Ref() Component {
	return c
}

func (c Component) ID() ID {
	return c.id
}

func (c Component) Tree() *Tree {
	return c.tree
}

func (c Component) Name() string {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	return c.tree.node(c.id).name
}

func (c Component) Kind() Kind {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	return c.tree.node(c.id).kind
}

func (c Component) HasParent() bool {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	return c.tree.node(c.id).parent != NoID
}

func (c Component) Parent() (Component, bool) {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	parent := c.tree.node(c.id).parent
	return Component{tree: c.tree, id: parent}, parent != NoID
}

// Root returns the microcontroller at the top of the component's tree.
func (c Component) Root() (Component, bool) {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	root := c.tree.node(c.id).root
	return Component{tree: c.tree, id: root}, root != NoID
}

func (c Component) IsRoot() bool {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	return c.tree.node(c.id).root == c.id
}

func (c Component) Children() (children []Component) {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	for _, id := range c.tree.node(c.id).children {
		children = append(children, Component{tree: c.tree, id: id})
	}
	return
}

// Child searches the subtree depth first, the component itself included.
func (c Component) Child(name string) (Component, bool) {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	id := c.tree.find(c.id, name)
	return Component{tree: c.tree, id: id}, id != NoID
}

func (t *Tree) find(id ID, name string) ID {
	n := t.node(id)
	if n.name == name {
		return id
	}
	for _, child := range n.children {
		if found := t.find(child, name); found != NoID {
			return found
		}
	}
	return NoID
}

// Append attaches child below c.
func (c Component) Append(child Handle) error {
	return c.tree.Attach(c, child)
}

func (c Component) String() string {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	n := c.tree.node(c.id)
	return fmt.Sprintf("%s (%s)", n.name, n.kind)
}

// Bound reports whether all input pins of the component are connected.
func (c Component) Bound() bool {
	c.tree.lock.Lock()
	defer c.tree.lock.Unlock()

	for _, in := range c.tree.node(c.id).inputs() {
		if !in.Bound() {
			return false
		}
	}
	return true
}
