package shader

import (
	"encoding/binary"
	"strings"

	"github.com/Carmen-Shannon/oxy-terrain/common"
)

// mat3ColumnStride is the byte distance between mat3x3 columns in the uniform address space.
const mat3ColumnStride = 16

// BlockWriter packs shader inputs into the byte layout of a program's uniform block and
// records the texture unit each sampled texture reads from.
//
// Locations are block member indices followed by texture indices, so a location from
// Location can be handed out as a uniform slot and passed back to the setters.
type BlockWriter struct {
	block    UniformBlock
	textures []TextureBinding
	data     []byte
	units    []int
}

// NewBlockWriter creates a zeroed staging copy of r's uniform block. Every texture reads
// from unit 0 until SetInt assigns another.
//
// Parameters:
//   - r: the reflected program
//
// Returns:
//   - *BlockWriter: the writer
func NewBlockWriter(r Reflection) *BlockWriter {
	w := &BlockWriter{
		textures: r.Textures,
		units:    make([]int, len(r.Textures)),
	}
	if r.HasBlock {
		w.block = r.Block
		w.data = make([]byte, r.Block.Size)
	}
	return w
}

// Location returns the slot for a block member or texture named name, or -1.
func (w *BlockWriter) Location(name string) int {
	for i, m := range w.block.Members {
		if m.Name == name {
			return i
		}
	}
	for i, t := range w.textures {
		if t.Name == name {
			return len(w.block.Members) + i
		}
	}
	return -1
}

// SetInt writes an integer input. On a texture slot it selects the texture unit; on an f32
// member it is converted to float.
//
// Parameters:
//   - loc: a slot from Location
//   - v: the value
func (w *BlockWriter) SetInt(loc int, v int32) {
	if t := loc - len(w.block.Members); t >= 0 {
		if t < len(w.units) {
			w.units[t] = int(v)
		}
		return
	}
	if loc < 0 {
		return
	}
	m := w.block.Members[loc]
	if m.Type == "f32" {
		w.put(m, []float32{float32(v)})
		return
	}
	binary.LittleEndian.PutUint32(w.data[m.Offset:], uint32(v))
}

// SetFloats writes a float, vector or matrix input. mat3x3 values are expanded to the
// padded column layout; anything longer than the member is truncated.
//
// Parameters:
//   - loc: a slot from Location
//   - v: the values in column-major order
func (w *BlockWriter) SetFloats(loc int, v []float32) {
	if loc < 0 || loc >= len(w.block.Members) {
		return
	}
	m := w.block.Members[loc]
	if strings.HasPrefix(m.Type, "mat3x3") && len(v) == 9 {
		for c := range 3 {
			dst := w.data[m.Offset+uint64(c*mat3ColumnStride):]
			copy(dst[:12], common.SliceToBytes(v[c*3:c*3+3]))
		}
		return
	}
	w.put(m, v)
}

func (w *BlockWriter) put(m Member, v []float32) {
	src := common.SliceToBytes(v)
	if uint64(len(src)) > m.Size {
		src = src[:m.Size]
	}
	copy(w.data[m.Offset:], src)
}

// Bytes returns the staged block. The slice is reused by later writes.
func (w *BlockWriter) Bytes() []byte {
	return w.data
}

// Unit returns the texture unit the i-th reflected texture reads from.
func (w *BlockWriter) Unit(i int) int {
	if i < 0 || i >= len(w.units) {
		return 0
	}
	return w.units[i]
}
