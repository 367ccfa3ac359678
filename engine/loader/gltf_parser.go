package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// glbMagic opens every GLB container.
const glbMagic = "glTF"

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errNoDocument         = errors.New("no document loaded")
	errOutOfRange         = errors.New("accessor reads past the end of its buffer")
)

type gltfParserImpl struct {
	baseDir  string
	document *gltf.Document
}

// gltfParser loads a glTF or GLB document and decodes typed accessor data out of its buffers.
type gltfParser interface {
	// Parse loads a .gltf or .glb file. GLB is detected by its magic number.
	//
	// Parameters:
	//   - path: path to the file; external buffers resolve relative to its directory
	//
	// Returns:
	//   - error: error if reading or decoding fails
	Parse(path string) error

	// ParseReader decodes a document from r. External buffer URIs resolve against the
	// working directory.
	//
	// Parameters:
	//   - r: the document bytes
	//   - isGLB: true if r must hold a GLB container
	//
	// Returns:
	//   - error: error if reading or decoding fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the decoded document, or nil before a successful parse.
	Document() *gltf.Document

	// BaseDir returns the directory external URIs resolve against.
	BaseDir() string

	// ReadBufferView returns the bytes covered by a buffer view.
	ReadBufferView(index int) ([]byte, error)

	ReadPositions(accessorIndex int) ([][3]float32, error)
	ReadNormals(accessorIndex int) ([][3]float32, error)
	ReadTexCoords(accessorIndex int) ([][2]float32, error)

	// ReadColors reads COLOR_0 as RGBA in [0, 1]. VEC3 colors get an alpha of 1.
	ReadColors(accessorIndex int) ([][4]float32, error)

	// ReadIndices widens UNSIGNED_BYTE, UNSIGNED_SHORT and UNSIGNED_INT indices to uint32.
	ReadIndices(accessorIndex int) ([]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltf.Document {
	return p.document
}

func (p *gltfParserImpl) BaseDir() string {
	return p.baseDir
}

func (p *gltfParserImpl) Parse(path string) error {
	doc, err := gltf.Open(path)
	if err != nil {
		return err
	}
	p.baseDir = filepath.Dir(path)
	return p.finish(doc)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if isGLB && !bytes.HasPrefix(data, []byte(glbMagic)) {
		return errInvalidGLBMagic
	}

	var doc gltf.Document
	if err := gltf.NewDecoderFS(bytes.NewReader(data), os.DirFS(".")).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode glTF: %w", err)
	}
	p.baseDir = "."
	return p.finish(&doc)
}

func (p *gltfParserImpl) finish(doc *gltf.Document) error {
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	p.document = doc
	return nil
}

func (p *gltfParserImpl) ReadBufferView(index int) ([]byte, error) {
	if p.document == nil {
		return nil, errNoDocument
	}
	if index < 0 || index >= len(p.document.BufferViews) {
		return nil, fmt.Errorf("buffer view index %d out of range", index)
	}

	bv := p.document.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(p.document.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}
	buf := p.document.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(buf) {
		return nil, fmt.Errorf("buffer view %d: %w", index, errOutOfRange)
	}
	return buf[bv.ByteOffset:end], nil
}

// accessor returns an accessor after checking that every element it addresses lies
// inside its buffer view.
func (p *gltfParserImpl) accessor(index int) (*gltf.Accessor, error) {
	if p.document == nil {
		return nil, errNoDocument
	}
	if index < 0 || index >= len(p.document.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", index)
	}

	acc := p.document.Accessors[index]
	if acc.BufferView == nil {
		return acc, nil
	}
	view, err := p.ReadBufferView(*acc.BufferView)
	if err != nil {
		return nil, err
	}

	elementSize := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if elementSize == 0 {
		return nil, fmt.Errorf("accessor %d: unknown layout %v/%v", index, acc.Type, acc.ComponentType)
	}
	stride := elementSize
	if s := p.document.BufferViews[*acc.BufferView].ByteStride; s > 0 {
		stride = s
	}
	if acc.Count > 0 && acc.ByteOffset+(acc.Count-1)*stride+elementSize > len(view) {
		return nil, fmt.Errorf("accessor %d: %w", index, errOutOfRange)
	}
	return acc, nil
}

func (p *gltfParserImpl) ReadPositions(accessorIndex int) ([][3]float32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	return modeler.ReadPosition(p.document, acc, nil)
}

func (p *gltfParserImpl) ReadNormals(accessorIndex int) ([][3]float32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	return modeler.ReadNormal(p.document, acc, nil)
}

func (p *gltfParserImpl) ReadTexCoords(accessorIndex int) ([][2]float32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	return modeler.ReadTextureCoord(p.document, acc, nil)
}

func (p *gltfParserImpl) ReadColors(accessorIndex int) ([][4]float32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	rgba, err := modeler.ReadColor(p.document, acc, nil)
	if err != nil {
		return nil, err
	}

	out := make([][4]float32, len(rgba))
	for i, c := range rgba {
		out[i] = [4]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadIndices(accessorIndex int) ([]uint32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("index accessor is not SCALAR: type=%v", acc.Type)
	}
	return modeler.ReadIndices(p.document, acc, nil)
}

func componentSize(c gltf.ComponentType) int {
	switch c {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		return 4
	}
	return 0
}

func componentCount(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 0
}
