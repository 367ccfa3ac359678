package texture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/Carmen-Shannon/oxy-terrain/common"
	"golang.org/x/image/tiff"
)

// ErrChannelMismatch is returned when a raster does not carry three channels of width·height samples.
var ErrChannelMismatch = errors.New("raster channels do not match dimensions")

// Raster is decoded image data kept at source precision: one slice of samples per
// channel, each width·height long, row-major.
type Raster struct {
	Width    int
	Height   int
	Channels [][]float64
}

// Decode reads a TIFF or GeoTIFF image into a three channel Raster. Grayscale images
// repeat their single band in every channel; 16 bit samples keep their full range.
//
// Parameters:
//   - r: the TIFF bytes
//
// Returns:
//   - Raster: the decoded samples
//   - error: error if the stream is not a decodable TIFF
func Decode(r io.Reader) (Raster, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return Raster{}, fmt.Errorf("tiff decode: %w", err)
	}
	return FromImage(img), nil
}

// FromImage extracts three channels from any image.Image.
func FromImage(img image.Image) Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	n := w * h

	switch src := img.(type) {
	case *image.Gray16:
		band := make([]float64, n)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				band[y*w+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return Raster{Width: w, Height: h, Channels: [][]float64{band, band, band}}
	case *image.Gray:
		band := make([]float64, n)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				band[y*w+x] = float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return Raster{Width: w, Height: h, Channels: [][]float64{band, band, band}}
	}

	red, green, blue := make([]float64, n), make([]float64, n), make([]float64, n)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cr, cg, cb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			red[i], green[i], blue[i] = float64(cr), float64(cg), float64(cb)
		}
	}
	return Raster{Width: w, Height: h, Channels: [][]float64{red, green, blue}}
}

// Normalize maps each of the first three channels independently from its own min..max
// range onto 0..255 and interleaves them as tightly packed RGB. A flat channel maps to 0.
//
// Parameters:
//   - r: the raster to convert
//
// Returns:
//   - common.TextureStagingData: RGB pixels with nearest filtering and clamp-to-edge wrapping
//   - error: ErrChannelMismatch if there are fewer than three channels or any has the wrong length
func Normalize(r Raster) (common.TextureStagingData, error) {
	n := r.Width * r.Height
	if n == 0 || len(r.Channels) < 3 {
		return common.TextureStagingData{}, fmt.Errorf("%w: %d channels for %dx%d", ErrChannelMismatch, len(r.Channels), r.Width, r.Height)
	}

	pixels := make([]byte, n*3)
	for c, band := range r.Channels[:3] {
		if len(band) != n {
			return common.TextureStagingData{}, fmt.Errorf("%w: channel %d has %d samples, want %d", ErrChannelMismatch, c, len(band), n)
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range band {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		span := hi - lo
		for i, v := range band {
			if span > 0 {
				pixels[i*3+c] = uint8(math.Round((v - lo) / span * 255))
			}
		}
	}

	return common.TextureStagingData{
		Pixels: pixels,
		Width:  uint32(r.Width),
		Height: uint32(r.Height),
		Format: common.PixelFormatRGB,
		Filter: common.TextureFilterNearest,
		Wrap:   common.TextureWrapClampToEdge,
	}, nil
}

// Load fetches, decodes and normalizes the texture at url.
//
// Parameters:
//   - ctx: cancels an in-progress fetch
//   - url: the texture location
//
// Returns:
//   - common.TextureStagingData: RGB pixels ready for upload
//   - error: error if any stage fails
func Load(ctx context.Context, url string) (common.TextureStagingData, error) {
	rc, err := Fetch(ctx, url)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	defer rc.Close()

	raster, err := Decode(rc)
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("texture %q: %w", url, err)
	}
	return Normalize(raster)
}

// Checkerboard returns the 2×2 magenta/black RGBA texture shown while a texture loads.
func Checkerboard() common.TextureStagingData {
	return common.TextureStagingData{
		Pixels: []byte{
			255, 0, 255, 255, 0, 0, 0, 255,
			0, 0, 0, 255, 255, 0, 255, 255,
		},
		Width:  2,
		Height: 2,
		Format: common.PixelFormatRGBA,
		Filter: common.TextureFilterNearest,
		Wrap:   common.TextureWrapRepeat,
	}
}
