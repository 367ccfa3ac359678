package node

import (
	"slices"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
)

type node struct {
	name      string
	parent    *node
	children  []*node
	instances []mesh.Instance

	position [3]float32
	rotation [4]float32
	scale    [3]float32

	localMatrix [16]float32
	worldMatrix [16]float32
	dirty       bool
	enabled     atomic.Bool
}

// Node is an element of the transform tree. It owns a local transform, a derived
// world matrix, its children and the mesh instances attached to it.
//
// Transform setters only mark the node dirty; matrices are recomputed by UpdateWorldMatrix.
// Nodes are not safe for concurrent mutation; the scene serialises edits.
type Node interface {
	// Name returns the node's name, unique within its tree by convention.
	Name() string

	// Parent returns the node this one is attached to, or nil for a root or detached node.
	Parent() Node

	// Children returns the child nodes in insertion order.
	Children() []Node

	// AddChild attaches child under this node. A child that already has a parent is
	// removed from that parent first. Attaching a node to itself or to one of its own
	// descendants is ignored.
	//
	// Parameters:
	//   - child: the node to attach
	AddChild(child Node)

	// RemoveChild detaches child from this node.
	//
	// Parameters:
	//   - child: the node to detach
	//
	// Returns:
	//   - bool: false if child was not a direct child of this node
	RemoveChild(child Node) bool

	// Position returns the local translation.
	Position() [3]float32

	// SetPosition sets the local translation and marks the node dirty.
	SetPosition(x, y, z float32)

	// Rotation returns the local rotation quaternion (x, y, z, w).
	Rotation() [4]float32

	// SetRotation sets the local rotation quaternion and marks the node dirty.
	SetRotation(q [4]float32)

	// SetRotationFromEuler sets the local rotation from Euler angles in radians and marks the node dirty.
	SetRotationFromEuler(x, y, z float32)

	// Scale returns the local scale.
	Scale() [3]float32

	// SetScale sets the local scale and marks the node dirty.
	SetScale(x, y, z float32)

	// Dirty reports whether the local matrix is stale.
	Dirty() bool

	// Enabled reports whether the renderer should draw this node's instances.
	Enabled() bool

	// SetEnabled toggles drawing of this node's instances. Safe to call from any goroutine.
	SetEnabled(enabled bool)

	// LocalMatrix returns a copy of the local matrix as of the last update.
	LocalMatrix() []float32

	// WorldMatrix returns a copy of the world matrix as of the last update.
	WorldMatrix() []float32

	// UpdateWorldMatrix refreshes this node and its whole subtree. If the node is dirty its
	// local matrix is recomputed from position, rotation and scale. The world matrix is
	// parentWorld · local, or a copy of local when parentWorld is nil. Every child is
	// then updated against the new world matrix regardless of its own dirty flag.
	//
	// Parameters:
	//   - parentWorld: the parent's world matrix, or nil for a root
	UpdateWorldMatrix(parentWorld []float32)

	// Instances returns the attached mesh instances in insertion order.
	Instances() []mesh.Instance

	// AddInstance attaches a mesh instance to this node.
	AddInstance(inst mesh.Instance)

	// RemoveInstance detaches a mesh instance.
	//
	// Returns:
	//   - bool: false if inst was not attached to this node
	RemoveInstance(inst mesh.Instance) bool

	// Find returns the first node of this subtree, in depth-first pre-order, for which pred is true.
	//
	// Parameters:
	//   - pred: the match predicate
	//
	// Returns:
	//   - Node: the match, or nil
	Find(pred func(Node) bool) Node

	// FindByName returns the first node of this subtree named name, in depth-first pre-order.
	FindByName(name string) Node

	// Traverse visits this node and every descendant in pre-order, regardless of Enabled.
	//
	// Parameters:
	//   - fn: the visitor
	Traverse(fn func(Node))
}

var _ Node = &node{}

func (n *node) Name() string         { return n.name }
func (n *node) Position() [3]float32 { return n.position }
func (n *node) Rotation() [4]float32 { return n.rotation }
func (n *node) Scale() [3]float32    { return n.scale }
func (n *node) Dirty() bool          { return n.dirty }
func (n *node) Enabled() bool        { return n.enabled.Load() }

func (n *node) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *node) AddChild(child Node) {
	c, ok := child.(*node)
	if !ok || c == nil {
		return
	}
	for p := n; p != nil; p = p.parent {
		if p == c {
			return
		}
	}
	if c.parent != nil {
		c.parent.detach(c)
	}
	c.parent = n
	n.children = append(n.children, c)
}

func (n *node) RemoveChild(child Node) bool {
	c, ok := child.(*node)
	if !ok || c == nil || c.parent != n {
		return false
	}
	return n.detach(c)
}

func (n *node) detach(c *node) bool {
	i := slices.Index(n.children, c)
	if i < 0 {
		return false
	}
	n.children = slices.Delete(n.children, i, i+1)
	c.parent = nil
	return true
}

func (n *node) SetPosition(x, y, z float32) {
	n.position = [3]float32{x, y, z}
	n.dirty = true
}

func (n *node) SetRotation(q [4]float32) {
	n.rotation = q
	n.dirty = true
}

func (n *node) SetRotationFromEuler(x, y, z float32) {
	n.SetRotation(common.QuatFromEuler(x, y, z))
}

func (n *node) SetScale(x, y, z float32) {
	n.scale = [3]float32{x, y, z}
	n.dirty = true
}

func (n *node) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

func (n *node) LocalMatrix() []float32 {
	m := n.localMatrix
	return m[:]
}

func (n *node) WorldMatrix() []float32 {
	m := n.worldMatrix
	return m[:]
}

func (n *node) UpdateWorldMatrix(parentWorld []float32) {
	if n.dirty {
		common.FromRotationTranslationScale(n.localMatrix[:], n.rotation, n.position, n.scale)
		n.dirty = false
	}
	if parentWorld != nil {
		common.Mul4(n.worldMatrix[:], parentWorld, n.localMatrix[:])
	} else {
		n.worldMatrix = n.localMatrix
	}
	for _, c := range n.children {
		c.UpdateWorldMatrix(n.worldMatrix[:])
	}
}

func (n *node) Instances() []mesh.Instance {
	return slices.Clone(n.instances)
}

func (n *node) AddInstance(inst mesh.Instance) {
	if inst == nil {
		return
	}
	n.instances = append(n.instances, inst)
}

func (n *node) RemoveInstance(inst mesh.Instance) bool {
	i := slices.Index(n.instances, inst)
	if i < 0 {
		return false
	}
	n.instances = slices.Delete(n.instances, i, i+1)
	return true
}

func (n *node) Find(pred func(Node) bool) Node {
	if found := n.find(pred); found != nil {
		return found
	}
	return nil
}

func (n *node) find(pred func(Node) bool) *node {
	if pred(n) {
		return n
	}
	for _, c := range n.children {
		if found := c.find(pred); found != nil {
			return found
		}
	}
	return nil
}

func (n *node) FindByName(name string) Node {
	return n.Find(func(c Node) bool { return c.Name() == name })
}

func (n *node) Traverse(fn func(Node)) {
	fn(n)
	for _, c := range n.children {
		c.Traverse(fn)
	}
}
