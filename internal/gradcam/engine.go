// Package gradcam computes gradient-weighted class activation maps against
// the frozen disease model: the feature extractor output is read from the
// graph's tap point and the head is replayed as a differentiable graph.
package gradcam

import (
	"errors"
	"fmt"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/imaging"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/model"
)

var ErrClassIndex = errors.New("class index out of range")

// FeatureExtractor runs the frozen network up to its tap point.
type FeatureExtractor interface {
	Features(input []float32) (model.FeatureMap, error)
}

type Engine struct {
	extractor FeatureExtractor
	head      *Head
}

func NewEngine(extractor FeatureExtractor, head *Head) *Engine {
	return &Engine{extractor: extractor, head: head}
}

// Explanation is the output of one Explain call.
type Explanation struct {
	Heatmap Heatmap
	Overlay []byte
}

// Heatmap computes the normalised activation map for classIndex.
func (e *Engine) Heatmap(input imaging.Tensor, classIndex int) (Heatmap, error) {
	if err := e.checkClass(classIndex); err != nil {
		return Heatmap{}, err
	}
	if err := input.Validate(); err != nil {
		return Heatmap{}, err
	}

	fm, err := e.extractor.Features(input.Data)
	if err != nil {
		return Heatmap{}, fmt.Errorf("feature extractor: %w", err)
	}
	return e.FeatureHeatmap(fm, classIndex)
}

// FeatureHeatmap computes the map from a feature map already captured at the
// tap point, without running the frozen network again.
func (e *Engine) FeatureHeatmap(fm model.FeatureMap, classIndex int) (Heatmap, error) {
	if err := e.checkClass(classIndex); err != nil {
		return Heatmap{}, err
	}

	pass, err := e.head.Backward(fm, classIndex)
	if err != nil {
		return Heatmap{}, err
	}

	weights, err := ChannelWeights(fm, pass.Gradient)
	if err != nil {
		return Heatmap{}, err
	}
	return Combine(fm, weights)
}

// Explain computes the heatmap for classIndex and composites it onto display.
func (e *Engine) Explain(input imaging.Tensor, display imaging.Display, classIndex int) (Explanation, error) {
	h, err := e.Heatmap(input, classIndex)
	if err != nil {
		return Explanation{}, err
	}
	return overlay(display, h)
}

// ExplainFeatures is Explain for a feature map captured during classification.
func (e *Engine) ExplainFeatures(fm model.FeatureMap, display imaging.Display, classIndex int) (Explanation, error) {
	h, err := e.FeatureHeatmap(fm, classIndex)
	if err != nil {
		return Explanation{}, err
	}
	return overlay(display, h)
}

func overlay(display imaging.Display, h Heatmap) (Explanation, error) {
	png, err := Composite(display, h)
	if err != nil {
		return Explanation{}, fmt.Errorf("composite overlay: %w", err)
	}
	return Explanation{Heatmap: h, Overlay: png}, nil
}

func (e *Engine) checkClass(classIndex int) error {
	if classIndex < 0 || classIndex >= e.head.Classes() {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrClassIndex, classIndex, e.head.Classes())
	}
	return nil
}
