package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadMetadata reads and validates a metadata file written next to an
// exported graph.
func LoadMetadata(path string) (Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, fmt.Errorf("invalid metadata %s: %w", path, err)
	}
	return meta, nil
}

func (m Metadata) Validate() error {
	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("input_name and output_name are required")
	}
	if len(m.InputShape) != 4 || m.InputShape[0] != 1 {
		return fmt.Errorf("input_shape must be [1,H,W,C], got %v", m.InputShape)
	}
	if len(m.OutputShape) != 2 || m.OutputShape[0] != 1 || m.OutputShape[1] < 1 {
		return fmt.Errorf("output_shape must be [1,N], got %v", m.OutputShape)
	}
	if m.ImageSize != 0 && (int64(m.ImageSize) != m.InputShape[1] || int64(m.ImageSize) != m.InputShape[2]) {
		return fmt.Errorf("image_size %d does not match input_shape %v", m.ImageSize, m.InputShape)
	}

	if m.FeatureTap != nil {
		s := m.FeatureTap.Shape
		if m.FeatureTap.OutputName == "" || len(s) != 4 || s[0] != 1 {
			return fmt.Errorf("feature_tap %q must name an output of shape [1,H,W,C]", m.FeatureTap.Layer)
		}
	}

	for i, l := range m.Head {
		switch l.Kind {
		case LayerGlobalAveragePooling, LayerDropout:
		case LayerDense:
			if l.Units <= 0 || l.Kernel == "" || l.Bias == "" {
				return fmt.Errorf("head[%d] %q: dense layers need units, kernel and bias", i, l.Name)
			}
			switch l.Activation {
			case "", ActivationLinear, ActivationReLU, ActivationSoftmax:
			default:
				return fmt.Errorf("head[%d] %q: unsupported activation %q", i, l.Name, l.Activation)
			}
		default:
			return fmt.Errorf("head[%d] %q: unsupported layer kind %q", i, l.Name, l.Kind)
		}
	}
	return nil
}

// Scale returns PixelScale, defaulting to 1.
func (m Metadata) Scale() float32 {
	if m.PixelScale == 0 {
		return 1
	}
	return m.PixelScale
}

// Classes is the length of the output distribution.
func (m Metadata) Classes() int {
	return int(m.OutputShape[1])
}
