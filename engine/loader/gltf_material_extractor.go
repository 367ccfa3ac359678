package loader

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
)

type gltfMaterialResolverImpl struct {
	parser gltfParser
	// urls caches resolved texture URLs by glTF texture index.
	urls map[int]string
}

// gltfMaterialResolver reduces a glTF material to what the engine's shading consumes: a
// base color and an optional base color texture URL.
type gltfMaterialResolver interface {
	// Resolve looks up a primitive's material.
	//
	// Parameters:
	//   - materialIndex: the primitive's material index, or nil for the default material
	//
	// Returns:
	//   - [4]float32: the base color factor, white when unset
	//   - string: a URL the texture manager can fetch, or "" when untextured
	//   - error: error if the material or texture reference is invalid
	Resolve(materialIndex *int) ([4]float32, string, error)
}

var _ gltfMaterialResolver = &gltfMaterialResolverImpl{}

func newGLTFMaterialResolver(parser gltfParser) gltfMaterialResolver {
	return &gltfMaterialResolverImpl{
		parser: parser,
		urls:   make(map[int]string),
	}
}

func (r *gltfMaterialResolverImpl) Resolve(materialIndex *int) ([4]float32, string, error) {
	color := [4]float32{1, 1, 1, 1}
	if materialIndex == nil {
		return color, "", nil
	}

	doc := r.parser.Document()
	if *materialIndex < 0 || *materialIndex >= len(doc.Materials) {
		return color, "", fmt.Errorf("material index %d out of range", *materialIndex)
	}
	pbr := doc.Materials[*materialIndex].PBRMetallicRoughness
	if pbr == nil {
		return color, "", nil
	}
	if f := pbr.BaseColorFactor; f != nil {
		color = [4]float32{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
	}
	if pbr.BaseColorTexture == nil {
		return color, "", nil
	}

	url, err := r.textureURL(pbr.BaseColorTexture.Index)
	if err != nil {
		return color, "", fmt.Errorf("material %d: %w", *materialIndex, err)
	}
	return color, url, nil
}

// textureURL maps a texture to a fetchable location: external images become paths
// relative to the document, embedded images become base64 data URIs.
func (r *gltfMaterialResolverImpl) textureURL(textureIndex int) (string, error) {
	if url, ok := r.urls[textureIndex]; ok {
		return url, nil
	}

	doc := r.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return "", fmt.Errorf("texture index %d out of range", textureIndex)
	}
	src := doc.Textures[textureIndex].Source
	if src == nil {
		return "", fmt.Errorf("texture %d has no source image", textureIndex)
	}
	if *src < 0 || *src >= len(doc.Images) {
		return "", fmt.Errorf("image index %d out of range", *src)
	}
	img := doc.Images[*src]

	var url string
	switch {
	case img.BufferView != nil:
		data, err := r.parser.ReadBufferView(*img.BufferView)
		if err != nil {
			return "", fmt.Errorf("image %d: %w", *src, err)
		}
		url = "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	case img.IsEmbeddedResource():
		url = img.URI
	case img.URI != "":
		url = filepath.Join(r.parser.BaseDir(), filepath.FromSlash(img.URI))
	default:
		return "", fmt.Errorf("image %d has neither uri nor bufferView", *src)
	}

	r.urls[textureIndex] = url
	return url, nil
}
