package gradcam

import (
	"fmt"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/model"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Head is the classification head of the frozen disease model, replayed as a
// differentiable graph on top of a captured feature map.
type Head struct {
	layers  []model.Layer
	classes int
}

func NewHead(layers []model.Layer) (*Head, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("head has no layers")
	}
	classes := layers[len(layers)-1].Units
	for _, l := range layers {
		if l.Kind == model.LayerDense && len(l.Kernel) != l.In*l.Units {
			return nil, fmt.Errorf("layer %q: kernel holds %d values, expected %d", l.Name, len(l.Kernel), l.In*l.Units)
		}
	}
	return &Head{layers: layers, classes: classes}, nil
}

func (h *Head) Classes() int {
	return h.classes
}

// Pass is the result of one differentiated head evaluation.
type Pass struct {
	Probabilities []float32
	// Gradient of the selected class score w.r.t. the feature map, NHWC.
	Gradient []float32
}

// Backward evaluates the head on fm and differentiates the score of
// classIndex with respect to fm. A fresh graph is built per call.
func (h *Head) Backward(fm model.FeatureMap, classIndex int) (Pass, error) {
	if classIndex < 0 || classIndex >= h.classes {
		return Pass{}, fmt.Errorf("%w: %d not in [0,%d)", ErrClassIndex, classIndex, h.classes)
	}
	if len(fm.Data) != fm.Height*fm.Width*fm.Channels || len(fm.Data) == 0 {
		return Pass{}, fmt.Errorf("feature map holds %d values for %dx%dx%d", len(fm.Data), fm.Height, fm.Width, fm.Channels)
	}

	g := G.NewGraph()

	features := G.NewTensor(g, tensor.Float32, 4,
		G.WithShape(1, fm.Height, fm.Width, fm.Channels),
		G.WithName("feature_map"),
		G.WithValue(tensor.New(tensor.WithShape(1, fm.Height, fm.Width, fm.Channels), tensor.WithBacking(clone(fm.Data)))))

	out, err := h.forward(g, features)
	if err != nil {
		return Pass{}, err
	}

	onehot := make([]float32, h.classes)
	onehot[classIndex] = 1
	mask := G.NewMatrix(g, tensor.Float32,
		G.WithShape(1, h.classes),
		G.WithName("class_mask"),
		G.WithValue(tensor.New(tensor.WithShape(1, h.classes), tensor.WithBacking(onehot))))

	selected, err := G.HadamardProd(out, mask)
	if err != nil {
		return Pass{}, fmt.Errorf("select class: %w", err)
	}
	score, err := G.Sum(selected)
	if err != nil {
		return Pass{}, fmt.Errorf("class score: %w", err)
	}

	grads, err := G.Grad(score, features)
	if err != nil {
		return Pass{}, fmt.Errorf("differentiate head: %w", err)
	}

	var probsVal, gradVal G.Value
	G.Read(out, &probsVal)
	G.Read(grads[0], &gradVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return Pass{}, fmt.Errorf("run head graph: %w", err)
	}

	probs, err := float32s(probsVal, h.classes)
	if err != nil {
		return Pass{}, fmt.Errorf("probabilities: %w", err)
	}
	grad, err := float32s(gradVal, len(fm.Data))
	if err != nil {
		return Pass{}, fmt.Errorf("gradient: %w", err)
	}
	return Pass{Probabilities: probs, Gradient: grad}, nil
}

func (h *Head) forward(g *G.ExprGraph, x *G.Node) (*G.Node, error) {
	var err error
	for _, l := range h.layers {
		switch l.Kind {
		case model.LayerGlobalAveragePooling:
			if x, err = G.Mean(x, 1, 2); err != nil {
				return nil, fmt.Errorf("%s: %w", l.Name, err)
			}
		case model.LayerDropout:
			// identity at inference
		case model.LayerDense:
			if x, err = dense(g, x, l); err != nil {
				return nil, fmt.Errorf("%s: %w", l.Name, err)
			}
		default:
			return nil, fmt.Errorf("%s: unsupported layer kind %q", l.Name, l.Kind)
		}
	}
	return x, nil
}

func dense(g *G.ExprGraph, x *G.Node, l model.Layer) (*G.Node, error) {
	w := G.NewMatrix(g, tensor.Float32,
		G.WithShape(l.In, l.Units),
		G.WithName(l.Name+"/kernel"),
		G.WithValue(tensor.New(tensor.WithShape(l.In, l.Units), tensor.WithBacking(clone(l.Kernel)))))
	b := G.NewMatrix(g, tensor.Float32,
		G.WithShape(1, l.Units),
		G.WithName(l.Name+"/bias"),
		G.WithValue(tensor.New(tensor.WithShape(1, l.Units), tensor.WithBacking(clone(l.Bias)))))

	y, err := G.Mul(x, w)
	if err != nil {
		return nil, err
	}
	if y, err = G.Add(y, b); err != nil {
		return nil, err
	}

	switch l.Activation {
	case model.ActivationReLU:
		return G.Rectify(y)
	case model.ActivationSoftmax:
		return G.SoftMax(y)
	default:
		return y, nil
	}
}

func float32s(v G.Value, n int) ([]float32, error) {
	if v == nil {
		return nil, fmt.Errorf("value not computed")
	}
	data, ok := v.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected value type %T", v.Data())
	}
	if len(data) != n {
		return nil, fmt.Errorf("got %d values, expected %d", len(data), n)
	}
	return clone(data), nil
}

func clone(src []float32) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
