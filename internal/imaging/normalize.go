// Package imaging turns uploaded bytes into the two per-request views used by
// the pipeline: a unit-scaled RGB tensor for the models and a BGR display
// copy for compositing and transport.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jdeng/goheif"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Size is the spatial resolution both classifiers were trained on.
const Size = 224

const Channels = 3

// MaxPixels bounds the declared extent of an upload before it is decoded.
const MaxPixels = 40_000_000

var (
	ErrDecode = errors.New("unreadable image")
	ErrShape  = errors.New("tensor violates the model input contract")
)

var (
	heicDecode       = goheif.Decode
	heicDecodeConfig = goheif.DecodeConfig
)

// Tensor is a single-batch NHWC float tensor, RGB order, values in [0,1].
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// Display is an 8-bit image in BGR order, the layout gocv encodes and blends.
type Display struct {
	Width  int
	Height int
	Pix    []uint8
}

// Normalize decodes data once and derives both views from the decoded image.
func Normalize(data []byte) (Tensor, Display, error) {
	img, format, err := decode(data)
	if err != nil {
		return Tensor{}, Display{}, err
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return Tensor{}, Display{}, fmt.Errorf("%w: %s image has no pixels", ErrDecode, format)
	}

	resized := resize.Resize(Size, Size, opaque(img), resize.Bicubic)
	return fromImage(resized)
}

// opaque drops alpha without compositing so transparent pixels keep their
// colour through the premultiplied resize.
func opaque(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.A = 0xff
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

func decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty buffer", ErrDecode)
	}

	mime := mimetype.Detect(data)
	if mime.Is("image/heic") || mime.Is("image/heif") {
		cfg, err := heicConfig(data)
		if err != nil {
			return nil, "", fmt.Errorf("%w: heic: %v", ErrDecode, err)
		}
		if err := checkExtent(cfg); err != nil {
			return nil, "", fmt.Errorf("%w: heic: %v", ErrDecode, err)
		}
		img, err := decodeHEIC(data)
		if err != nil {
			return nil, "", fmt.Errorf("%w: heic: %v", ErrDecode, err)
		}
		return img, "heic", nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrDecode, mime.String(), err)
	}
	if err := checkExtent(cfg); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrDecode, mime.String(), err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrDecode, mime.String(), err)
	}
	return img, format, nil
}

func checkExtent(cfg image.Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("declared size %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("declared size %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxPixels)
	}
	return nil
}

// The HEIC helpers convert a panic in the container parser into an error.

func heicConfig(data []byte) (cfg image.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			cfg, err = image.Config{}, fmt.Errorf("malformed container: %v", r)
		}
	}()
	return heicDecodeConfig(bytes.NewReader(data))
}

func decodeHEIC(data []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("malformed container: %v", r)
		}
	}()
	return heicDecode(bytes.NewReader(data))
}

// fromImage fills both views from an opaque image at the target size.
func fromImage(img image.Image) (Tensor, Display, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w != Size || h != Size {
		return Tensor{}, Display{}, fmt.Errorf("%w: resized to %dx%d", ErrShape, w, h)
	}

	t := Tensor{
		Shape: [4]int{1, h, w, Channels},
		Data:  make([]float32, h*w*Channels),
	}
	d := Display{Width: w, Height: h, Pix: make([]uint8, h*w*Channels)}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*w + x) * Channels

			t.Data[i] = float32(c.R) / 255
			t.Data[i+1] = float32(c.G) / 255
			t.Data[i+2] = float32(c.B) / 255

			d.Pix[i] = c.B
			d.Pix[i+1] = c.G
			d.Pix[i+2] = c.R
		}
	}
	return t, d, nil
}

// Validate enforces the shape and range contract shared by both models.
func (t Tensor) Validate() error {
	if t.Shape != [4]int{1, Size, Size, Channels} {
		return fmt.Errorf("%w: shape %v", ErrShape, t.Shape)
	}
	if len(t.Data) != Size*Size*Channels {
		return fmt.Errorf("%w: %d values", ErrShape, len(t.Data))
	}
	for _, v := range t.Data {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("%w: value %v outside [0,1]", ErrShape, v)
		}
	}
	return nil
}

// Scaled returns a copy of the tensor data multiplied by k.
func (t Tensor) Scaled(k float32) []float32 {
	out := make([]float32, len(t.Data))
	for i, v := range t.Data {
		out[i] = v * k
	}
	return out
}
