package node

import (
	"github.com/Carmen-Shannon/oxy-terrain/common"
	"github.com/Carmen-Shannon/oxy-terrain/engine/mesh"
)

// NodeBuilderOption is a functional option for configuring a Node during construction.
type NodeBuilderOption func(*node)

// WithPosition sets the initial local translation.
//
// Parameters:
//   - x, y, z: translation components
//
// Returns:
//   - NodeBuilderOption: functional option to set the position
func WithPosition(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.position = [3]float32{x, y, z}
	}
}

// WithRotationEuler sets the initial local rotation from Euler angles in radians.
//
// Parameters:
//   - x, y, z: rotation around each axis in radians
//
// Returns:
//   - NodeBuilderOption: functional option to set the rotation
func WithRotationEuler(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.rotation = common.QuatFromEuler(x, y, z)
	}
}

// WithScale sets the initial local scale.
//
// Parameters:
//   - x, y, z: scale factors
//
// Returns:
//   - NodeBuilderOption: functional option to set the scale
func WithScale(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.scale = [3]float32{x, y, z}
	}
}

// WithEnabled sets whether the node's instances are drawn.
//
// Parameters:
//   - enabled: false to skip the node while rendering
//
// Returns:
//   - NodeBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) NodeBuilderOption {
	return func(n *node) {
		n.enabled.Store(enabled)
	}
}

// WithInstances attaches mesh instances to the node.
//
// Parameters:
//   - instances: the instances to attach
//
// Returns:
//   - NodeBuilderOption: functional option to attach instances
func WithInstances(instances ...mesh.Instance) NodeBuilderOption {
	return func(n *node) {
		for _, inst := range instances {
			n.AddInstance(inst)
		}
	}
}

// NewNode creates a detached node at the origin with identity rotation, unit scale,
// enabled and dirty so the first update computes its matrices.
//
// Parameters:
//   - name: the node name
//   - options: variadic list of NodeBuilderOption functions
//
// Returns:
//   - Node: the new node
func NewNode(name string, options ...NodeBuilderOption) Node {
	n := &node{
		name:     name,
		rotation: common.QuatIdentity(),
		scale:    [3]float32{1, 1, 1},
		dirty:    true,
	}
	common.Identity(n.localMatrix[:])
	common.Identity(n.worldMatrix[:])
	n.enabled.Store(true)
	for _, opt := range options {
		opt(n)
	}
	return n
}
