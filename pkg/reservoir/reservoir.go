// Package reservoir implements weighted reservoir sampling over light samples.
package reservoir

import (
	"fmt"

	"github.com/df07/go-restir-di/pkg/core"
)

// Sample names one point on one light: an index into the active light list
// and the light's own surface coordinates
type Sample struct {
	Light int32
	UV    core.Vec2
}

// Reservoir holds the single surviving sample of a resampled stream. The
// zero value is the empty reservoir.
type Reservoir struct {
	Sample    Sample
	TargetPDF float64 // p̂ of Sample at the owning surface
	WSum      float64 // Sum of resampling weights seen so far
	M         int     // Number of candidates seen so far
	W         float64 // Unbiased contribution weight of Sample
}

// IsEmpty reports whether the reservoir has seen no candidates
func (r Reservoir) IsEmpty() bool {
	return r.M == 0
}

// HasSample reports whether the reservoir holds a sample that can contribute
func (r Reservoir) HasSample() bool {
	return r.WSum > 0 && r.TargetPDF > 0
}

// Update streams one candidate into the reservoir and reports whether it was
// selected. u is uniform in [0,1).
func (r *Reservoir) Update(sample Sample, weight, targetPDF, u float64) bool {
	r.M++
	return r.insert(sample, weight, targetPDF, u)
}

// Combine streams the sample of another reservoir with a caller-computed
// weight, counting all of other's candidates
func (r *Reservoir) Combine(other Reservoir, weight, targetPDF, u float64) bool {
	r.M += other.M
	return r.insert(other.Sample, weight, targetPDF, u)
}

func (r *Reservoir) insert(sample Sample, weight, targetPDF, u float64) bool {
	if !(weight > 0) || !core.IsFinite(weight) {
		return false
	}
	r.WSum += weight
	if u*r.WSum < weight {
		r.Sample = sample
		r.TargetPDF = targetPDF
		return true
	}
	return false
}

// Merge combines two reservoirs: a's sample survives with probability
// a.WSum/(a.WSum+b.WSum), M and WSum are summed and W is refreshed from the
// surviving TargetPDF. An empty side is the identity.
func Merge(a, b Reservoir, u float64) Reservoir {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}

	out := a
	out.M = a.M + b.M
	out.WSum = a.WSum + b.WSum
	if u*out.WSum >= a.WSum {
		out.Sample = b.Sample
		out.TargetPDF = b.TargetPDF
	}
	out.Finalize(1 / float64(out.M))
	return out
}

// Finalize sets W = WSum · normalization / TargetPDF. normalization is 1/M
// for plain resampling, 1/Z or an MIS weight for unbiased reuse.
func (r *Reservoir) Finalize(normalization float64) {
	if r.TargetPDF <= 0 || !(normalization > 0) {
		r.W = 0
		return
	}
	w := r.WSum * normalization / r.TargetPDF
	if !core.IsFinite(w) {
		w = 0
	}
	r.W = w
}

// Normalize rewrites WSum so W == WSum / (M · TargetPDF) holds again after a
// 1/Z or MIS finalize
func (r *Reservoir) Normalize() {
	r.WSum = r.W * float64(r.M) * r.TargetPDF
}

// CapM clamps the candidate count to limit, scaling WSum so the
// contribution weight is unchanged
func (r *Reservoir) CapM(limit int) {
	if limit <= 0 || r.M <= limit {
		return
	}
	r.WSum *= float64(limit) / float64(r.M)
	r.M = limit
}

// Invalidate drops the sample after a failed visibility test while keeping
// the candidate count
func (r *Reservoir) Invalidate() {
	r.W = 0
	r.WSum = 0
}

func (r Reservoir) String() string {
	return fmt.Sprintf("Reservoir{light=%d uv=(%.3f,%.3f) p̂=%.4g wSum=%.4g M=%d W=%.4g}",
		r.Sample.Light, r.Sample.UV.X, r.Sample.UV.Y, r.TargetPDF, r.WSum, r.M, r.W)
}
