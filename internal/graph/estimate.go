package graph

import "github.com/roach88/depres/internal/ir"

// Estimator supplies per-functor runtime estimates. The values are only
// used to order terminal outputs and never affect correctness.
type Estimator interface {
	RuntimeAverage(f *ir.Functor) float64
	InvalidationRate(f *ir.Functor) float64
}

// DescriptorEstimator reads the estimates carried on the descriptors.
type DescriptorEstimator struct{}

// RuntimeAverage returns f.RuntimeAverage.
func (DescriptorEstimator) RuntimeAverage(f *ir.Functor) float64 { return f.RuntimeAverage }

// InvalidationRate returns f.InvalidationRate.
func (DescriptorEstimator) InvalidationRate(f *ir.Functor) float64 { return f.InvalidationRate }

// TimeEstimate sums the runtime average of every node in set.
// A nil estimator reads the descriptors.
func (g *Graph) TimeEstimate(set []NodeID, est Estimator) float64 {
	if est == nil {
		est = DescriptorEstimator{}
	}
	var total float64
	for _, n := range set {
		total += est.RuntimeAverage(g.Descriptor(n))
	}
	return total
}
