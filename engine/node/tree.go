package node

import (
	"errors"
	"fmt"
)

// RootName is the name of the node every Tree starts with.
const RootName = "root"

var (
	// ErrNodeNotFound is returned when a name does not resolve to a node in the tree.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNodeExists is returned when inserting a name that is already in use.
	ErrNodeExists = errors.New("node already exists")
	// ErrRootRemoval is returned when removing the root node.
	ErrRootRemoval = errors.New("cannot remove root node")
	// ErrCycle is returned when a node would be attached under its own subtree.
	ErrCycle = errors.New("node cannot be attached under its own subtree")
)

type tree struct {
	root  *node
	index map[string]*node
}

// Tree owns a hierarchy of nodes reachable from a single root and keeps a
// name index alongside it so lookups do not walk the tree.
type Tree interface {
	// Root returns the root node.
	Root() Node

	// Insert creates a node named name under the node named parentName.
	//
	// Parameters:
	//   - name: the new node's name
	//   - parentName: the parent's name
	//   - options: variadic list of NodeBuilderOption functions
	//
	// Returns:
	//   - Node: the new node
	//   - error: ErrNodeExists if name is taken, ErrNodeNotFound if the parent is missing
	Insert(name, parentName string, options ...NodeBuilderOption) (Node, error)

	// Attach moves child, with its subtree, under the node named parentName and indexes it.
	// child may be detached or already part of this tree (re-parenting).
	//
	// Parameters:
	//   - child: a node created with NewNode or obtained from this tree
	//   - parentName: the new parent's name
	//
	// Returns:
	//   - error: ErrNodeNotFound if the parent is missing, ErrNodeExists if a name in
	//     child's subtree already belongs to another node of the tree, ErrCycle if the
	//     parent lies inside child's subtree
	Attach(child Node, parentName string) error

	// Remove detaches the node named name with its subtree and drops their names from the index.
	//
	// Returns:
	//   - Node: the detached subtree root
	//   - error: ErrNodeNotFound if missing, ErrRootRemoval for the root
	Remove(name string) (Node, error)

	// Get looks up a node by name.
	//
	// Returns:
	//   - Node: the node
	//   - bool: false if no node of the tree has that name
	Get(name string) (Node, bool)

	// Update refreshes the world matrix of every node from the root down.
	Update()

	// Traverse visits every node in pre-order, regardless of Enabled.
	Traverse(fn func(Node))

	// Len returns the number of indexed nodes, root included.
	Len() int
}

var _ Tree = &tree{}

// NewTree creates a tree holding a single root node named "root".
//
// Parameters:
//   - options: NodeBuilderOption functions applied to the root
//
// Returns:
//   - Tree: the new tree
func NewTree(options ...NodeBuilderOption) Tree {
	root := NewNode(RootName, options...).(*node)
	return &tree{
		root:  root,
		index: map[string]*node{RootName: root},
	}
}

func (t *tree) Root() Node { return t.root }

func (t *tree) Insert(name, parentName string, options ...NodeBuilderOption) (Node, error) {
	if _, ok := t.lookup(name); ok {
		return nil, fmt.Errorf("insert %q: %w", name, ErrNodeExists)
	}
	parent, ok := t.lookup(parentName)
	if !ok {
		return nil, fmt.Errorf("insert %q under %q: %w", name, parentName, ErrNodeNotFound)
	}
	n := NewNode(name, options...).(*node)
	parent.AddChild(n)
	t.index[name] = n
	return n, nil
}

func (t *tree) Attach(child Node, parentName string) error {
	c, ok := child.(*node)
	if !ok || c == nil {
		return fmt.Errorf("attach: %w", ErrNodeNotFound)
	}
	parent, ok := t.lookup(parentName)
	if !ok {
		return fmt.Errorf("attach %q under %q: %w", c.name, parentName, ErrNodeNotFound)
	}

	var conflict error
	c.Traverse(func(n Node) {
		if existing, ok := t.lookup(n.Name()); ok && existing != n.(*node) && conflict == nil {
			conflict = fmt.Errorf("attach %q: %w: %q", c.name, ErrNodeExists, n.Name())
		}
	})
	if conflict != nil {
		return conflict
	}

	parent.AddChild(c)
	if c.parent != parent {
		return fmt.Errorf("attach %q under %q: %w", c.name, parentName, ErrCycle)
	}
	c.Traverse(func(n Node) { t.index[n.Name()] = n.(*node) })
	return nil
}

func (t *tree) Remove(name string) (Node, error) {
	n, ok := t.lookup(name)
	if !ok {
		return nil, fmt.Errorf("remove %q: %w", name, ErrNodeNotFound)
	}
	if n == t.root {
		return nil, ErrRootRemoval
	}
	n.parent.detach(n)
	n.Traverse(func(c Node) {
		if t.index[c.Name()] == c.(*node) {
			delete(t.index, c.Name())
		}
	})
	return n, nil
}

func (t *tree) Get(name string) (Node, bool) {
	n, ok := t.lookup(name)
	if !ok {
		return nil, false
	}
	return n, true
}

// lookup resolves name through the index. A stale entry (a node detached behind the
// tree's back) is evicted and the tree is searched depth-first instead.
func (t *tree) lookup(name string) (*node, bool) {
	if n, ok := t.index[name]; ok {
		if t.attached(n) {
			return n, true
		}
		delete(t.index, name)
	}
	found := t.root.find(func(c Node) bool { return c.Name() == name })
	if found == nil {
		return nil, false
	}
	t.index[name] = found
	return found, true
}

func (t *tree) attached(n *node) bool {
	for p := n; p != nil; p = p.parent {
		if p == t.root {
			return true
		}
	}
	return false
}

func (t *tree) Update() {
	t.root.UpdateWorldMatrix(nil)
}

func (t *tree) Traverse(fn func(Node)) {
	t.root.Traverse(fn)
}

func (t *tree) Len() int {
	return len(t.index)
}
