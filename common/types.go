// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// PixelFormat describes the channel layout of TextureStagingData.Pixels.
type PixelFormat int

const (
	// PixelFormatRGBA is 4 bytes per pixel.
	PixelFormatRGBA PixelFormat = iota
	// PixelFormatRGB is 3 bytes per pixel, tightly packed (unpack alignment 1).
	PixelFormatRGB
)

// BytesPerPixel returns the stride of a single pixel in this format.
func (f PixelFormat) BytesPerPixel() int {
	if f == PixelFormatRGB {
		return 3
	}
	return 4
}

// TextureFilter selects min/mag filtering for a texture.
type TextureFilter int

const (
	TextureFilterNearest TextureFilter = iota
	TextureFilterLinear
)

// TextureWrap selects the addressing mode for coordinates outside [0, 1].
type TextureWrap int

const (
	TextureWrapRepeat TextureWrap = iota
	TextureWrapClampToEdge
)

// TextureStagingData holds decoded pixel data for a texture pending GPU upload.
// Textures are decoded off the render goroutine and uploaded from it.
type TextureStagingData struct {
	// Pixels is the raw pixel data laid out row by row in Format.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Format is the channel layout of Pixels.
	Format PixelFormat
	// Filter is applied to both minification and magnification.
	Filter TextureFilter
	// Wrap is applied to both S and T coordinates.
	Wrap TextureWrap
}

// Valid reports whether Pixels holds exactly Width*Height pixels of Format.
func (t TextureStagingData) Valid() bool {
	return t.Width > 0 && t.Height > 0 && len(t.Pixels) == int(t.Width)*int(t.Height)*t.Format.BytesPerPixel()
}
