package check

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Fences are the acceptance bounds of an outlier test, in the tested scale.
type Fences struct {
	Low, High float64
}

// TukeyFences returns Q1 - k·IQR and Q3 + k·IQR using Tukey's hinges.
func TukeyFences(values []float64, k float64) (Fences, error) {
	q, err := stats.Quartile(values)
	if err != nil {
		return Fences{}, err
	}
	iqr := q.Q3 - q.Q1
	return Fences{Low: q.Q1 - k*iqr, High: q.Q3 + k*iqr}, nil
}

// TukeyOutliers marks the values outside the Tukey fences.
func TukeyOutliers(values []float64, k float64) ([]bool, Fences, error) {
	f, err := TukeyFences(values, k)
	if err != nil {
		return nil, Fences{}, err
	}
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v < f.Low || v > f.High
	}
	return out, f, nil
}

// GrubbsOutliers runs the Smirnov-Grubbs test repeatedly, removing the most
// extreme value while it is significant at alpha, and marks every removed
// value. Testing stops when fewer than minN values remain.
func GrubbsOutliers(values []float64, alpha float64, minN int) []bool {
	out := make([]bool, len(values))
	remaining := append([]float64(nil), values...)

	for len(remaining) >= minN && len(remaining) >= 3 {
		n := float64(len(remaining))
		mean, err := stats.Mean(remaining)
		if err != nil {
			break
		}
		sd, err := stats.StandardDeviationSample(remaining)
		if err != nil || sd == 0 {
			break
		}
		lo, _ := stats.Min(remaining)
		hi, _ := stats.Max(remaining)
		far := hi
		if math.Abs(lo-mean) > math.Abs(hi-mean) {
			far = lo
		}

		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}.Quantile(1 - alpha/n/2)
		tau := (n - 1) * t / math.Sqrt(n*(n-2)+n*t*t)
		if math.Abs(far-mean)/sd < tau {
			break
		}

		kept := remaining[:0:0]
		for _, v := range remaining {
			if v != far {
				kept = append(kept, v)
			}
		}
		for i, v := range values {
			if v == far {
				out[i] = true
			}
		}
		remaining = kept
	}
	return out
}
