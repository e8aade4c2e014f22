package imaging

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Mat copies the display pixels into a CV_8UC3 Mat. The caller closes it.
func (d Display) Mat() (gocv.Mat, error) {
	if len(d.Pix) != d.Width*d.Height*Channels || d.Width == 0 {
		return gocv.Mat{}, fmt.Errorf("display buffer holds %d bytes for %dx%d", len(d.Pix), d.Width, d.Height)
	}
	return gocv.NewMatFromBytes(d.Height, d.Width, gocv.MatTypeCV8UC3, d.Pix)
}

// EncodePNG encodes the display copy for transport.
func EncodePNG(d Display) ([]byte, error) {
	mat, err := d.Mat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	return EncodeMat(mat)
}

// EncodeMat PNG-encodes a BGR Mat into a Go-owned buffer.
func EncodeMat(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
