package gradcam

import (
	"fmt"
	"image"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/imaging"
	"gocv.io/x/gocv"
)

const (
	ImageWeight   = 0.6
	HeatmapWeight = 0.4
)

// Composite blends a jet-coloured, bilinearly upscaled heatmap over the
// display image and returns the PNG encoding.
func Composite(display imaging.Display, h Heatmap) ([]byte, error) {
	base, err := display.Mat()
	if err != nil {
		return nil, err
	}
	defer base.Close()

	colored, err := Colorize(h, display.Width, display.Height)
	if err != nil {
		return nil, err
	}
	defer colored.Close()

	blended := gocv.NewMat()
	defer blended.Close()
	// CV_8U arithmetic saturates, which clips the blend to [0,255].
	gocv.AddWeighted(base, ImageWeight, colored, HeatmapWeight, 0, &blended)
	if blended.Empty() {
		return nil, fmt.Errorf("blend produced an empty image")
	}

	return imaging.EncodeMat(blended)
}

// Colorize upsamples h to width×height and maps it through the jet palette.
// The caller closes the returned Mat.
func Colorize(h Heatmap, width, height int) (gocv.Mat, error) {
	if len(h.Values) != h.Height*h.Width || len(h.Values) == 0 {
		return gocv.Mat{}, fmt.Errorf("heatmap holds %d values for %dx%d", len(h.Values), h.Width, h.Height)
	}
	if width <= 0 || height <= 0 {
		return gocv.Mat{}, fmt.Errorf("invalid overlay size %dx%d", width, height)
	}

	small := gocv.NewMatWithSize(h.Height, h.Width, gocv.MatTypeCV32F)
	defer small.Close()
	for y := 0; y < h.Height; y++ {
		for x := 0; x < h.Width; x++ {
			small.SetFloatAt(y, x, h.At(y, x))
		}
	}

	large := gocv.NewMat()
	defer large.Close()
	gocv.Resize(small, &large, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	if large.Empty() {
		return gocv.Mat{}, fmt.Errorf("resize produced an empty image")
	}
	large.MultiplyFloat(255)

	gray := gocv.NewMat()
	defer gray.Close()
	large.ConvertTo(&gray, gocv.MatTypeCV8U)
	if gray.Empty() {
		return gocv.Mat{}, fmt.Errorf("conversion produced an empty image")
	}

	colored := gocv.NewMat()
	gocv.ApplyColorMap(gray, &colored, gocv.ColormapJet)
	if colored.Empty() {
		colored.Close()
		return gocv.Mat{}, fmt.Errorf("colormap produced an empty image")
	}
	return colored, nil
}
