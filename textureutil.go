package kompute

import (
	"image"
	"os"

	// Register the common decoders for TextureFromFile.
	_ "image/jpeg"
	_ "image/png"

	"github.com/cockroachdb/errors"
	xdraw "golang.org/x/image/draw"
)

// TextureFromFile decodes an image file and builds a four channel uint8
// texture from it. PNG and JPEG are always decodable, other formats work
// when their decoder is registered.
func TextureFromFile(device *Device, path string, opts ImageOptions, sampler SamplerOptions) (*TypedTexture[uint8], error) {
	reader, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer reader.Close()

	src, _, err := image.Decode(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return TextureFromImage(device, src, opts, sampler)
}

// TextureFromImage converts src to RGBA and builds a four channel uint8
// texture holding its pixels.
func TextureFromImage(device *Device, src image.Image, opts ImageOptions, sampler SamplerOptions) (*TypedTexture[uint8], error) {
	rgba := rgbaImage(src)
	b := rgba.Bounds()
	return NewTypedTexture[uint8](device, rgba.Pix, uint32(b.Dx()), uint32(b.Dy()), 4, opts, sampler)
}

// ScaledTextureFromImage rescales src to width by height and builds a
// four channel uint8 texture from the result. The scaler matches the
// requested sampler filter, nearest neighbour for FilterNearest and
// bilinear for FilterLinear.
func ScaledTextureFromImage(device *Device, src image.Image, width, height uint32, opts ImageOptions, sampler SamplerOptions) (*TypedTexture[uint8], error) {
	b := src.Bounds()
	if uint32(b.Dx()) == width && uint32(b.Dy()) == height {
		return TextureFromImage(device, src, opts, sampler)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	scalerFor(sampler.Filter).Scale(scaled, scaled.Bounds(), src, b, xdraw.Src, nil)
	return NewTypedTexture[uint8](device, scaled.Pix, width, height, 4, opts, sampler)
}

// ToRGBA exports the host-visible pixels of a four channel uint8 image
// or texture as an image.RGBA. For device residency this reads the
// staging allocation, so run a sync-local operation first to see device
// results.
func (b *ImageBase) ToRGBA() (*image.RGBA, error) {
	if b.dataType != DataTypeUInt8 {
		return nil, errors.Wrapf(ErrDataTypeMismatch, "exporting %s image as RGBA", b.dataType)
	}
	if b.channels != 4 {
		return nil, errors.Newf("exporting image as RGBA requires 4 channels, have %d", b.channels)
	}

	data, err := b.RawData()
	if err != nil {
		return nil, err
	}

	m := image.NewRGBA(image.Rect(0, 0, int(b.width), int(b.height)))
	copy(m.Pix, data)
	return m, nil
}

// rgbaImage returns src as an RGBA image, converting only when needed.
func rgbaImage(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), src, b.Min, xdraw.Src)
	return rgba
}

func scalerFor(f Filter) xdraw.Scaler {
	if f == FilterLinear {
		return xdraw.BiLinear
	}
	return xdraw.NearestNeighbor
}
