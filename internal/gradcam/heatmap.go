package gradcam

import (
	"fmt"
	"math"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/model"
)

// Heatmap is a single-channel map at feature-map resolution, values in [0,1].
type Heatmap struct {
	Height int
	Width  int
	Values []float32
}

func (h Heatmap) At(y, x int) float32 {
	return h.Values[y*h.Width+x]
}

// Max is 0 for a degenerate map.
func (h Heatmap) Max() float32 {
	var m float32
	for _, v := range h.Values {
		if v > m {
			m = v
		}
	}
	return m
}

// ChannelWeights averages grad over the two spatial axes, one weight per channel.
func ChannelWeights(fm model.FeatureMap, grad []float32) ([]float32, error) {
	if len(grad) != len(fm.Data) {
		return nil, fmt.Errorf("gradient holds %d values, feature map %d", len(grad), len(fm.Data))
	}

	sums := make([]float64, fm.Channels)
	for i, g := range grad {
		sums[i%fm.Channels] += float64(g)
	}

	n := float64(fm.Height * fm.Width)
	weights := make([]float32, fm.Channels)
	for c, s := range sums {
		weights[c] = float32(s / n)
	}
	return weights, nil
}

// Combine forms the rectified, max-normalised weighted sum of the channel
// activation maps. A map with no positive evidence stays all zero.
func Combine(fm model.FeatureMap, weights []float32) (Heatmap, error) {
	if len(weights) != fm.Channels {
		return Heatmap{}, fmt.Errorf("%d weights for %d channels", len(weights), fm.Channels)
	}

	acc := make([]float64, fm.Height*fm.Width)
	var peak float64
	for p := range acc {
		row := fm.Data[p*fm.Channels : (p+1)*fm.Channels]
		var sum float64
		for c, a := range row {
			sum += float64(a) * float64(weights[c])
		}
		if sum > 0 && !math.IsInf(sum, 0) {
			acc[p] = sum
			peak = math.Max(peak, sum)
		}
	}

	// Normalise before narrowing so sums beyond float32 range stay finite.
	h := Heatmap{Height: fm.Height, Width: fm.Width, Values: make([]float32, len(acc))}
	if peak == 0 {
		return h, nil
	}
	for i, v := range acc {
		h.Values[i] = float32(v / peak)
	}
	return h, nil
}
