package gradcam

import (
	"math"
	"testing"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/model"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

// 2x2 spatial grid, 2 channels, NHWC.
func tinyFeatures(ch0, ch1 [4]float32) model.FeatureMap {
	fm := model.FeatureMap{Height: 2, Width: 2, Channels: 2, Data: make([]float32, 8)}
	for p := 0; p < 4; p++ {
		fm.Data[p*2] = ch0[p]
		fm.Data[p*2+1] = ch1[p]
	}
	return fm
}

func TestChannelWeightsAveragesSpatially(t *testing.T) {
	fm := tinyFeatures([4]float32{}, [4]float32{})
	grad := []float32{
		1, -2,
		3, -2,
		5, -2,
		7, -2,
	}

	w, err := ChannelWeights(fm, grad)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(w[0], 4) || !approx(w[1], -2) {
		t.Fatalf("expected [4 -2], got %v", w)
	}

	if _, err := ChannelWeights(fm, grad[:3]); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name    string
		fm      model.FeatureMap
		weights []float32
		want    [4]float32
	}{
		{
			name:    "single channel normalised by max",
			fm:      tinyFeatures([4]float32{1, 2, 3, 4}, [4]float32{9, 9, 9, 9}),
			weights: []float32{1, 0},
			want:    [4]float32{0.25, 0.5, 0.75, 1},
		},
		{
			name:    "negative evidence clipped",
			fm:      tinyFeatures([4]float32{2, 0, 0, 1}, [4]float32{0, 1, 0, 0}),
			weights: []float32{1, -1},
			want:    [4]float32{1, 0, 0, 0.5},
		},
		{
			name:    "zero weights stay zero",
			fm:      tinyFeatures([4]float32{1, 2, 3, 4}, [4]float32{5, 6, 7, 8}),
			weights: []float32{0, 0},
			want:    [4]float32{},
		},
		{
			name:    "all negative stays zero",
			fm:      tinyFeatures([4]float32{1, 2, 3, 4}, [4]float32{}),
			weights: []float32{-1, 0},
			want:    [4]float32{},
		},
		{
			name:    "nan is not positive evidence",
			fm:      tinyFeatures([4]float32{float32(math.NaN()), 1, 0, 0}, [4]float32{}),
			weights: []float32{1, 0},
			want:    [4]float32{0, 1, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Combine(tt.fm, tt.weights)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Height != 2 || h.Width != 2 {
				t.Fatalf("heatmap must keep feature-map resolution, got %dx%d", h.Width, h.Height)
			}
			for i, v := range h.Values {
				if math.IsNaN(float64(v)) || v < 0 || v > 1 {
					t.Fatalf("value %v at %d outside [0,1]", v, i)
				}
				if !approx(v, tt.want[i]) {
					t.Fatalf("expected %v, got %v", tt.want, h.Values)
				}
			}
		})
	}
}

func TestCombineRejectsWrongWeightCount(t *testing.T) {
	if _, err := Combine(tinyFeatures([4]float32{}, [4]float32{}), []float32{1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCombineBeyondFloat32Range(t *testing.T) {
	// Each product is 1e60, far past float32 max.
	fm := tinyFeatures([4]float32{1e30, 2e30, 0, 1e30}, [4]float32{})
	h, err := Combine(fm, []float32{1e30, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [4]float32{0.5, 1, 0, 0.5}
	for i, v := range h.Values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("value %v at %d is not finite", v, i)
		}
		if !approx(v, want[i]) {
			t.Fatalf("expected %v, got %v", want, h.Values)
		}
	}
	if h.Max() != 1 {
		t.Fatalf("expected peak 1, got %v", h.Max())
	}
}
