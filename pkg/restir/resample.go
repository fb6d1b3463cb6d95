package restir

import (
	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/pkg/reservoir"
)

// maxNeighbors bounds the candidates a single resampling step can gather
const maxNeighbors = 64

// candidate is a reservoir borrowed from another pixel, with the surface it
// was built for
type candidate struct {
	surface   SurfaceData
	reservoir reservoir.Reservoir
}

// resample combines the center reservoir with candidates from other
// surfaces, applying the correction of the configured bias mode
func (fc *frameContext) resample(center SurfaceData, own reservoir.Reservoir, candidates []candidate, rng *core.PixelSampler) reservoir.Reservoir {
	if fc.config.BiasMode.Unbiased() {
		return fc.resampleUnbiased(center, own, candidates, rng)
	}
	return fc.resampleBiased(center, own, candidates, rng)
}

// resampleBiased merges raw weight sums and retargets the survivor at the
// center surface, ignoring the change of domain
func (fc *frameContext) resampleBiased(center SurfaceData, own reservoir.Reservoir, candidates []candidate, rng *core.PixelSampler) reservoir.Reservoir {
	out := own
	for _, c := range candidates {
		out = reservoir.Merge(out, c.reservoir, rng.Get1D())
	}
	if out.IsEmpty() {
		return out
	}
	out.TargetPDF = fc.targetPDF(center, out.Sample)
	out.Finalize(1 / float64(out.M))
	return out
}

// resampleUnbiased reweights every borrowed sample by the domain correction
// and normalizes by the candidates that could have produced the survivor:
// 1/Z counting domains with p̂ > 0 that see it, or the MIS weight
// p̂_sel / Σ M_k p̂_k over those same domains
func (fc *frameContext) resampleUnbiased(center SurfaceData, own reservoir.Reservoir, candidates []candidate, rng *core.PixelSampler) reservoir.Reservoir {
	var out reservoir.Reservoir
	selected := -1 // index into candidates, -1 for the center's own sample

	out.Combine(own, own.WSum, own.TargetPDF, rng.Get1D())
	for i, c := range candidates {
		r := c.reservoir
		var pHat float64
		if r.HasSample() {
			pHat = fc.targetPDF(center, r.Sample)
		}
		weight := r.WSum * DomainCorrection(pHat, r.TargetPDF)
		if out.Combine(r, weight, pHat, rng.Get1D()) {
			selected = i
		}
	}
	if !out.HasSample() {
		out.W = 0
		return out
	}

	y := out.Sample
	pCenter := out.TargetPDF
	z := float64(own.M)
	pSum := float64(own.M) * pCenter
	pSelected := pCenter
	for i, c := range candidates {
		p := fc.targetPDF(c.surface, y)
		if p > 0 && !fc.visibleFrom(c.surface, y) {
			p = 0
		}
		if p > 0 {
			z += float64(c.reservoir.M)
			pSum += float64(c.reservoir.M) * p
		}
		if i == selected {
			pSelected = p
		}
	}

	switch {
	case fc.config.BiasMode == UnbiasedMIS && pSum > 0:
		out.Finalize(pSelected / pSum)
	case z > 0:
		out.Finalize(1 / z)
		// Domains that cannot see y leave the history; with M = Z the stored
		// WSum stays the sum of weights actually streamed
		out.M = int(z)
	default:
		out.W = 0
	}
	out.Normalize()
	return out
}
