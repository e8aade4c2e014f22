package model

// Metadata describes one exported ONNX graph: its I/O tensors and, for the
// disease model, the named sub-components of the composition.
type Metadata struct {
	Name        string  `json:"name"`
	InputName   string  `json:"input_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputName  string  `json:"output_name"`
	OutputShape []int64 `json:"output_shape"`
	ImageSize   int     `json:"image_size"`

	// PixelScale is the factor applied to a [0,1] tensor to reach the value
	// range the graph was trained on. Zero means 1.
	PixelScale float32 `json:"pixel_scale,omitempty"`

	FeatureTap *FeatureTap `json:"feature_tap,omitempty"`
	Head       []LayerSpec `json:"head,omitempty"`
}

// FeatureTap names the feature extractor sub-network whose output the graph
// exposes as an additional output.
type FeatureTap struct {
	Layer      string  `json:"layer"`
	OutputName string  `json:"output_name"`
	Shape      []int64 `json:"shape"`
}

const (
	LayerGlobalAveragePooling = "global_average_pooling"
	LayerDense                = "dense"
	LayerDropout              = "dropout"

	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSoftmax = "softmax"
)

// LayerSpec is one layer of the classification head, in forward order.
type LayerSpec struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Activation string  `json:"activation,omitempty"`
	Units      int     `json:"units,omitempty"`
	Rate       float64 `json:"rate,omitempty"`
	Kernel     string  `json:"kernel,omitempty"`
	Bias       string  `json:"bias,omitempty"`
}

// FeatureMap is a single-batch NHWC activation volume.
type FeatureMap struct {
	Height   int
	Width    int
	Channels int
	Data     []float32
}

// At returns the activation at (y, x, c).
func (f FeatureMap) At(y, x, c int) float32 {
	return f.Data[(y*f.Width+x)*f.Channels+c]
}

func numElements(shape []int64) int {
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}
