package diagnosis

import (
	"fmt"
	"math"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/imaging"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/model"
)

// GateThreshold is the minimum gate probability for an in-domain image.
// Inherited without a documented derivation; pending calibration.
const GateThreshold = 0.5

// Classifier is a frozen model that maps one input tensor to a distribution.
// model.Session implements it for both the gate and the disease model.
type Classifier interface {
	Predict(input []float32) ([]float32, error)
}

// TapClassifier also returns the feature map captured at its tap point during
// the same inference. model.Session implements it.
type TapClassifier interface {
	Classifier
	Run(input []float32) ([]float32, model.FeatureMap, error)
}

// DomainGate rejects images that are not chest X-rays before any diagnosis.
type DomainGate struct {
	model Classifier
	// scale maps the unit tensor back to the gate's training pixel range.
	scale float32
}

func NewDomainGate(m Classifier, scale float32) *DomainGate {
	if scale == 0 {
		scale = 1
	}
	return &DomainGate{model: m, scale: scale}
}

// IsInDomain never mutates t. A tensor outside the shape contract is simply
// not in domain; only a runtime failure returns an error.
func (g *DomainGate) IsInDomain(t imaging.Tensor) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, nil
	}

	out, err := g.model.Predict(t.Scaled(g.scale))
	if err != nil {
		return false, err
	}
	if len(out) == 0 {
		return false, fmt.Errorf("%w: gate returned no output", model.ErrInference)
	}
	return out[0] >= GateThreshold, nil
}

// Classification is the immutable result of the disease classifier.
type Classification struct {
	Index         int
	RawLabel      string
	Disease       string
	Probabilities []float32
	// Confidence is 100 × the winning probability, unrounded.
	Confidence float64
	// Features is the tap output of the same run; empty when the model has
	// no tap.
	Features model.FeatureMap
}

type DiseaseClassifier struct {
	model  Classifier
	labels *model.LabelTable
}

func NewDiseaseClassifier(m Classifier, labels *model.LabelTable) *DiseaseClassifier {
	return &DiseaseClassifier{model: m, labels: labels}
}

func (c *DiseaseClassifier) Labels() *model.LabelTable {
	return c.labels
}

func (c *DiseaseClassifier) Classify(t imaging.Tensor) (Classification, error) {
	if err := t.Validate(); err != nil {
		return Classification{}, err
	}

	var probs []float32
	var fm model.FeatureMap
	var err error
	if tm, ok := c.model.(TapClassifier); ok {
		probs, fm, err = tm.Run(t.Data)
	} else {
		probs, err = c.model.Predict(t.Data)
	}
	if err != nil {
		return Classification{}, err
	}
	if len(probs) != c.labels.Len() {
		return Classification{}, fmt.Errorf("%w: %d probabilities for %d labels (labels %s)",
			model.ErrInference, len(probs), c.labels.Len(), c.labels.Version)
	}

	idx := argmax(probs)
	raw, err := c.labels.Label(idx)
	if err != nil {
		return Classification{}, err
	}

	return Classification{
		Index:         idx,
		RawLabel:      raw,
		Disease:       c.labels.Canonical(raw),
		Probabilities: probs,
		Confidence:    float64(probs[idx]) * 100,
		Features:      fm,
	}, nil
}

// argmax returns the first index of the maximum.
func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// RoundConfidence rounds a percentage to two decimals.
func RoundConfidence(c float64) float64 {
	return math.Round(c*100) / 100
}
