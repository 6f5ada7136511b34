package slope

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// LambdaSequence returns a non-increasing penalty sequence of length p.
//
//   - bh: the Benjamini-Hochberg critical values
//     Phi^-1(1 - (j+1) q / (2p)), j = 0..p-1.
//   - gaussian: the bh sequence inflated for the variance of the
//     estimates with n observations, flattened where it would increase.
//   - oscar: theta1 + theta2 (p - j - 1).
//   - lasso: all ones.
func LambdaSequence(typ LambdaType, p, n int, q, theta1, theta2 float64) ([]float64, error) {

	if p < 1 {
		return nil, invalidf("lambda sequence: p = %d must be positive", p)
	}

	lambda := make([]float64, p)

	switch typ {
	case LambdaBH, LambdaGaussian:
		if q <= 0 || q >= 1 {
			return nil, invalidf("lambda sequence: q = %v must lie in (0, 1)", q)
		}
		for j := range lambda {
			lambda[j] = distuv.UnitNormal.Quantile(1 - float64(j+1)*q/float64(2*p))
		}
		if typ == LambdaGaussian {
			if n < 1 {
				return nil, invalidf("gaussian lambda sequence requires the number of observations")
			}
			gaussianAdjust(lambda, n)
		}
	case LambdaOSCAR:
		for j := range lambda {
			lambda[j] = theta1 + theta2*float64(p-j-1)
		}
	case LambdaLasso:
		for j := range lambda {
			lambda[j] = 1
		}
	default:
		return nil, invalidf("unknown lambda type %q", typ)
	}

	return lambda, nil
}

func gaussianAdjust(lambda []float64, n int) {
	var sumSq float64
	for i := 1; i < len(lambda); i++ {
		sumSq += lambda[i-1] * lambda[i-1]
		w := 1 / math.Max(1, float64(n-i-1))
		lambda[i] *= math.Sqrt(1 + w*sumSq)
		if lambda[i] > lambda[i-1] {
			for k := i; k < len(lambda); k++ {
				lambda[k] = lambda[i-1]
			}
			return
		}
	}
}

// checkLambda validates a caller supplied sequence and returns a copy
// sorted in decreasing order.
func checkLambda(lambda []float64, size int) ([]float64, error) {
	if len(lambda) != size {
		return nil, invalidf("lambda has length %d, expected %d (features times responses)", len(lambda), size)
	}
	z := make([]float64, size)
	for i, v := range lambda {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalidf("lambda[%d] = %v must be finite and non-negative", i, v)
		}
		z[i] = v
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(z)))
	return z, nil
}
