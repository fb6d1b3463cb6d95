package restir

import (
	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/reservoir"
)

// generateKernel reconstructs the surface of a pixel and resamples its
// initial candidates into one reservoir
func (fc *frameContext) generateKernel(data *frame.RenderData, surfaces []SurfaceData, reservoirs []reservoir.Reservoir) func(x, y int) {
	return func(x, y int) {
		i := fc.index(x, y)
		s := fc.loadSurface(x, y, data)
		surfaces[i] = s
		reservoirs[i] = fc.initialReservoir(x, y, s)
	}
}

// initialReservoir streams light and BRDF candidates through RIS. Candidates
// from the two strategies are weighted by the balance heuristic, so each
// weight is p̂ / (the candidate-count-weighted average of both densities).
func (fc *frameContext) initialReservoir(x, y int, s SurfaceData) reservoir.Reservoir {
	var r reservoir.Reservoir
	if !s.Valid {
		return r
	}

	rng := fc.rng(PassLoadSurface, 0, x, y)
	lightCount := float64(fc.config.CandidateCount)
	brdfCount := float64(fc.config.BRDFCandidateCount)
	total := lightCount + brdfCount

	misWeight := func(pHat, pLight, pBRDF float64) float64 {
		if pHat <= 0 {
			return 0
		}
		denom := lightCount*pLight + brdfCount*pBRDF
		if denom <= 0 {
			return 0
		}
		return pHat * total / denom
	}

	for range fc.config.CandidateCount {
		uSelect := rng.Get1D()
		uLight := rng.Get2D()
		uRIS := rng.Get1D()

		index, selProb := fc.sampler.SampleLight(s.Position, s.Normal, uSelect)
		if index < 0 || selProb <= 0 {
			r.Update(reservoir.Sample{}, 0, 0, uRIS)
			continue
		}
		uv, pdf := fc.lights[index].Sample(uLight)
		sample := reservoir.Sample{Light: int32(index), UV: uv}
		pHat := fc.targetPDF(s, sample)

		var pBRDF float64
		if brdfCount > 0 && pHat > 0 {
			pBRDF = fc.brdfPDF(s, sample)
		}
		r.Update(sample, misWeight(pHat, selProb*pdf, pBRDF), pHat, uRIS)
	}

	for range fc.config.BRDFCandidateCount {
		u := rng.Get2D()
		uLobe := rng.Get1D()
		uRIS := rng.Get1D()

		wi, pdf, ok := fc.sampleBRDF(s, u, uLobe)
		if !ok || pdf <= 0 {
			r.Update(reservoir.Sample{}, 0, 0, uRIS)
			continue
		}
		sample, ok := fc.traceLight(s, wi)
		if !ok {
			r.Update(reservoir.Sample{}, 0, 0, uRIS)
			continue
		}
		pHat := fc.targetPDF(s, sample)
		var pLight, pBRDF float64
		if pHat > 0 {
			pLight = fc.lightPDF(s, sample)
			pBRDF = fc.brdfPDF(s, sample)
		}
		r.Update(sample, misWeight(pHat, pLight, pBRDF), pHat, uRIS)
	}

	r.Finalize(1 / float64(r.M))

	// Visibility reuse: an occluded survivor carries no weight forward
	if r.HasSample() {
		ls, c := fc.shade(s, r.Sample)
		if c.IsZero() || !fc.visible(s, ls) {
			r.Invalidate()
		}
	}
	return r
}
