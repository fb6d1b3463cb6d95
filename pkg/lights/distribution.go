package lights

import (
	"sort"
)

// Distribution1D is a piecewise-constant density over [0,1) built from
// non-negative function values.
type Distribution1D struct {
	fn       []float64
	cdf      []float64
	integral float64
}

// NewDistribution1D builds the distribution. All-zero input falls back to uniform.
func NewDistribution1D(values []float64) *Distribution1D {
	n := len(values)
	d := &Distribution1D{
		fn:  make([]float64, n),
		cdf: make([]float64, n+1),
	}
	for i, v := range values {
		d.fn[i] = max(0, v)
	}

	for i := 1; i <= n; i++ {
		d.cdf[i] = d.cdf[i-1] + d.fn[i-1]/float64(n)
	}
	d.integral = d.cdf[n]
	if d.integral == 0 {
		for i := 1; i <= n; i++ {
			d.cdf[i] = float64(i) / float64(n)
		}
	} else {
		for i := 1; i <= n; i++ {
			d.cdf[i] /= d.integral
		}
	}
	return d
}

// Count returns the number of pieces
func (d *Distribution1D) Count() int {
	return len(d.fn)
}

// Integral returns the integral of the function over [0,1)
func (d *Distribution1D) Integral() float64 {
	return d.integral
}

// offset finds the piece whose CDF interval contains u
func (d *Distribution1D) offset(u float64) int {
	i := sort.Search(len(d.cdf), func(i int) bool { return d.cdf[i] > u }) - 1
	return max(0, min(len(d.fn)-1, i))
}

// SampleContinuous returns x in [0,1), its density and the piece index
func (d *Distribution1D) SampleContinuous(u float64) (x, pdf float64, index int) {
	i := d.offset(u)
	du := u - d.cdf[i]
	if width := d.cdf[i+1] - d.cdf[i]; width > 0 {
		du /= width
	}
	n := float64(len(d.fn))
	x = (float64(i) + du) / n
	return min(x, 1-1e-12), d.pdfAt(i), i
}

// SampleDiscrete picks a piece with probability proportional to its value
func (d *Distribution1D) SampleDiscrete(u float64) (index int, probability float64) {
	i := d.offset(u)
	return i, d.DiscreteProbability(i)
}

// DiscreteProbability returns the chance SampleDiscrete picks index
func (d *Distribution1D) DiscreteProbability(index int) float64 {
	if index < 0 || index >= len(d.fn) {
		return 0
	}
	return d.cdf[index+1] - d.cdf[index]
}

// PDF returns the continuous density at x in [0,1)
func (d *Distribution1D) PDF(x float64) float64 {
	n := len(d.fn)
	if n == 0 {
		return 0
	}
	return d.pdfAt(max(0, min(n-1, int(x*float64(n)))))
}

func (d *Distribution1D) pdfAt(i int) float64 {
	if d.integral == 0 {
		return 1
	}
	return d.fn[i] / d.integral
}

// Distribution2D samples (u, v) in [0,1)² proportionally to a grid of values,
// row-major with v selecting the row.
type Distribution2D struct {
	conditional []*Distribution1D
	marginal    *Distribution1D
}

// NewDistribution2D builds the distribution from width*height values
func NewDistribution2D(values []float64, width, height int) *Distribution2D {
	d := &Distribution2D{conditional: make([]*Distribution1D, height)}
	rows := make([]float64, height)
	for y := 0; y < height; y++ {
		d.conditional[y] = NewDistribution1D(values[y*width : (y+1)*width])
		rows[y] = d.conditional[y].Integral()
	}
	d.marginal = NewDistribution1D(rows)
	return d
}

// Sample returns a point in [0,1)² and its density
func (d *Distribution2D) Sample(u, v float64) (uv [2]float64, pdf float64) {
	y, pdfY, row := d.marginal.SampleContinuous(v)
	x, pdfX, _ := d.conditional[row].SampleContinuous(u)
	return [2]float64{x, y}, pdfX * pdfY
}

// PDF returns the density of the point (x, y)
func (d *Distribution2D) PDF(x, y float64) float64 {
	height := len(d.conditional)
	row := max(0, min(height-1, int(y*float64(height))))
	return d.marginal.PDF(y) * d.conditional[row].PDF(x)
}
