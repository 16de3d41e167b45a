package kompute

import (
	"image"
	"image/color"
	"testing"

	"github.com/cockroachdb/errors"
	xdraw "golang.org/x/image/draw"
)

func TestRGBAImagePassThrough(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if have := rgbaImage(src); have != src {
		t.Error("rgbaImage copied an image that was already RGBA")
	}
}

func TestRGBAImageConverts(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 40, G: 50, B: 60, A: 255})

	rgba := rgbaImage(src)
	if rgba.Bounds().Dx() != 2 || rgba.Bounds().Dy() != 1 {
		t.Fatalf("converted bounds = %v, want 2x1", rgba.Bounds())
	}
	if c := rgba.RGBAAt(0, 0); c.R != 10 || c.G != 20 || c.B != 30 || c.A != 255 {
		t.Errorf("pixel (0,0) = %+v, want 10/20/30/255", c)
	}
	if c := rgba.RGBAAt(1, 0); c.R != 40 || c.G != 50 || c.B != 60 {
		t.Errorf("pixel (1,0) = %+v, want 40/50/60", c)
	}
}

func TestRGBAImageOffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(3, 3, 5, 5))
	src.SetNRGBA(3, 3, color.NRGBA{R: 99, A: 255})

	rgba := rgbaImage(src)
	if rgba.Bounds().Min != (image.Point{}) {
		t.Errorf("converted image bounds start at %v, want origin", rgba.Bounds().Min)
	}
	if c := rgba.RGBAAt(0, 0); c.R != 99 {
		t.Errorf("pixel (0,0) = %+v, want R=99", c)
	}
}

func TestScalerFor(t *testing.T) {
	if scalerFor(FilterNearest) != xdraw.Scaler(xdraw.NearestNeighbor) {
		t.Error("FilterNearest did not select the nearest neighbour scaler")
	}
	if scalerFor(FilterLinear) != xdraw.Scaler(xdraw.BiLinear) {
		t.Error("FilterLinear did not select the bilinear scaler")
	}
}

func TestToRGBARequiresByteChannels(t *testing.T) {
	wrongType := testStorageImage(MemoryTypeHost)
	wrongType.dataType = DataTypeFloat32
	if _, err := wrongType.ToRGBA(); !errors.Is(err, ErrDataTypeMismatch) {
		t.Errorf("float32 image ToRGBA = %v, want ErrDataTypeMismatch", err)
	}

	wrongChannels := testStorageImage(MemoryTypeHost)
	wrongChannels.channels = 3
	if _, err := wrongChannels.ToRGBA(); err == nil {
		t.Error("3 channel image ToRGBA returned nil error")
	}

	storage := testStorageImage(MemoryTypeStorage)
	if _, err := storage.ToRGBA(); !errors.Is(err, ErrNoHostVisibleMemory) {
		t.Errorf("storage image ToRGBA = %v, want ErrNoHostVisibleMemory", err)
	}
}
