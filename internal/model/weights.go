package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
)

// Layer is a head layer with its frozen parameters resolved.
type Layer struct {
	Name       string
	Kind       string
	Activation string
	In         int
	Units      int
	Kernel     []float32 // row-major [In, Units]
	Bias       []float32 // [Units]
}

// LoadHead resolves the head layers of meta, reading dense parameters from
// .npy files relative to dir. Input widths are inferred from the feature tap.
func LoadHead(meta Metadata, dir string) ([]Layer, error) {
	if meta.FeatureTap == nil {
		return nil, ErrNoTap
	}
	if len(meta.Head) == 0 {
		return nil, fmt.Errorf("metadata %q declares no head layers", meta.Name)
	}

	width := int(meta.FeatureTap.Shape[3])
	spatial := true
	layers := make([]Layer, 0, len(meta.Head))

	for _, spec := range meta.Head {
		l := Layer{Name: spec.Name, Kind: spec.Kind, Activation: spec.Activation, In: width, Units: width}

		switch spec.Kind {
		case LayerGlobalAveragePooling:
			spatial = false
		case LayerDense:
			if spatial {
				return nil, fmt.Errorf("dense layer %q must follow global pooling", spec.Name)
			}
			kernel, err := readNpy(filepath.Join(dir, spec.Kernel), width*spec.Units)
			if err != nil {
				return nil, fmt.Errorf("layer %q kernel: %w", spec.Name, err)
			}
			bias, err := readNpy(filepath.Join(dir, spec.Bias), spec.Units)
			if err != nil {
				return nil, fmt.Errorf("layer %q bias: %w", spec.Name, err)
			}
			l.Units = spec.Units
			l.Kernel = kernel
			l.Bias = bias
			width = spec.Units
		}

		layers = append(layers, l)
	}

	if spatial {
		return nil, fmt.Errorf("head of %q never pools the feature map", meta.Name)
	}
	if width != meta.Classes() {
		return nil, fmt.Errorf("head produces %d outputs, model declares %d", width, meta.Classes())
	}
	return layers, nil
}

func readNpy(path string, want int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var data []float32
	if err := npyio.Read(f, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(data) != want {
		return nil, fmt.Errorf("%s holds %d values, expected %d", path, len(data), want)
	}
	return data, nil
}
