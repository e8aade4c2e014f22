package diagnosis

import (
	"errors"
	"testing"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/imaging"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/model"
)

type fakeModel struct {
	out      []float32
	err      error
	calls    int
	lastMax  float32
	lastSize int
}

func (f *fakeModel) Predict(input []float32) ([]float32, error) {
	f.calls++
	f.lastSize = len(input)
	f.lastMax = 0
	for _, v := range input {
		if v > f.lastMax {
			f.lastMax = v
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float32, len(f.out))
	copy(out, f.out)
	return out, nil
}

func testLabels() *model.LabelTable {
	return &model.LabelTable{
		Version: "test",
		Normal:  "NORMAL",
		Classes: []string{"COVID19", "NORMAL", "PNEUMONIA", "TURBERCULOSIS"},
		Aliases: map[string]string{"TURBERCULOSIS": "TUBERCULOSIS", "COVID19": "COVID-19"},
	}
}

func filledTensor(v float32) imaging.Tensor {
	t := imaging.Tensor{
		Shape: [4]int{1, imaging.Size, imaging.Size, imaging.Channels},
		Data:  make([]float32, imaging.Size*imaging.Size*imaging.Channels),
	}
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

func TestDomainGateRescalesToPixelRange(t *testing.T) {
	m := &fakeModel{out: []float32{0.9}}
	gate := NewDomainGate(m, 255)
	tensor := filledTensor(1)

	ok, err := gate.IsInDomain(tensor)
	if err != nil || !ok {
		t.Fatalf("expected in-domain, got %v, %v", ok, err)
	}
	if m.lastMax != 255 {
		t.Fatalf("gate must see 0-255 pixels, max was %v", m.lastMax)
	}
	if tensor.Data[0] != 1 {
		t.Fatal("gate must not rescale the shared tensor in place")
	}
}

func TestDomainGateThreshold(t *testing.T) {
	tests := []struct {
		prob float32
		want bool
	}{
		{0.5, true},
		{0.99, true},
		{0.4999, false},
		{0, false},
	}

	for _, tt := range tests {
		gate := NewDomainGate(&fakeModel{out: []float32{tt.prob}}, 255)
		got, err := gate.IsInDomain(filledTensor(0.5))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("IsInDomain(p=%v) = %v, expected %v", tt.prob, got, tt.want)
		}
	}
}

func TestDomainGateIsDeterministic(t *testing.T) {
	gate := NewDomainGate(&fakeModel{out: []float32{0.73}}, 255)
	tensor := filledTensor(0.3)

	first, _ := gate.IsInDomain(tensor)
	for i := 0; i < 5; i++ {
		if got, _ := gate.IsInDomain(tensor); got != first {
			t.Fatalf("decision changed on call %d", i)
		}
	}
}

func TestDomainGateShapeMismatchIsNotInDomain(t *testing.T) {
	m := &fakeModel{out: []float32{1}}
	gate := NewDomainGate(m, 255)

	ok, err := gate.IsInDomain(imaging.Tensor{Shape: [4]int{1, 7, 7, 3}, Data: make([]float32, 147)})
	if err != nil || ok {
		t.Fatalf("expected false without error, got %v, %v", ok, err)
	}
	if m.calls != 0 {
		t.Fatal("model must not run on a malformed tensor")
	}
}

func TestDomainGateRuntimeFailure(t *testing.T) {
	boom := errors.New("ort: run failed")
	gate := NewDomainGate(&fakeModel{err: boom}, 255)
	if _, err := gate.IsInDomain(filledTensor(0)); !errors.Is(err, boom) {
		t.Fatalf("expected runtime error, got %v", err)
	}
}

func TestDiseaseClassifierCanonicalises(t *testing.T) {
	m := &fakeModel{out: []float32{0.05, 0.1, 0.15, 0.7}}
	c := NewDiseaseClassifier(m, testLabels())

	got, err := c.Classify(filledTensor(0.2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Index != 3 || got.RawLabel != "TURBERCULOSIS" || got.Disease != "TUBERCULOSIS" {
		t.Fatalf("unexpected classification %+v", got)
	}
	if RoundConfidence(got.Confidence) != 70 {
		t.Fatalf("expected 70%% confidence, got %v", got.Confidence)
	}
	if m.lastMax > 1 {
		t.Fatal("disease model must receive the unit-scaled tensor")
	}
}

func TestDiseaseClassifierRejectsWrongDistribution(t *testing.T) {
	c := NewDiseaseClassifier(&fakeModel{out: []float32{0.5, 0.5}}, testLabels())
	if _, err := c.Classify(filledTensor(0)); !errors.Is(err, model.ErrInference) {
		t.Fatalf("expected inference error, got %v", err)
	}
}

func TestRoundConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{91.4, 91.4},
		{59.994, 59.99},
		{59.996, 60},
		{100, 100},
	}
	for _, tt := range tests {
		if got := RoundConfidence(tt.in); got != tt.want {
			t.Errorf("RoundConfidence(%v) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}
