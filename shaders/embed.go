// Package shaders embeds the viewer's default shader programs and the chunks they include.
package shaders

import "embed"

// FS holds every program (name.vert, name.frag, name.wgsl) at its root and the include
// chunks under ChunkDir.
//
//go:embed *.vert *.frag *.wgsl chunks/*
var FS embed.FS

// ChunkDir is the directory inside FS holding @oxy:include chunks.
const ChunkDir = "chunks"

// Default is the program instances use unless they name another.
const Default = "default"
