// Package cpu evaluates packed wave cascades on the CPU. It mirrors the
// wave compute kernel texel for texel and backs displacement queries, image
// dumps and devices without compute support.
package cpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/gerstner/internal/cascade"
	"github.com/gogpu/gerstner/internal/parallel"
)

// Source is the packed data the kernel reads.
type Source struct {
	Groups []cascade.WaveGroup4
	Params [cascade.Count + 1]cascade.Params
	First  int
	Last   int
}

// Frame holds the per-dispatch uniforms.
type Frame struct {
	Time float32

	// AxisX is the primary wave direction. Layers are evaluated in the wave
	// frame so that they tile; AxisX is applied where they are sampled.
	AxisX mgl32.Vec2
}

// Field is one evaluated texture array. Layers outside [First, Last] are nil.
type Field struct {
	Resolution int
	First      int
	Last       int
	Layers     [cascade.Count][]mgl32.Vec4
}

// Displacement evaluates cascade c at wave-frame position (x, z). The result
// is (dx, dy, dz, cumulative variance), exactly what the kernel writes.
func Displacement(src *Source, c int, x, z float32, f Frame) mgl32.Vec4 {
	if c < 0 || c >= cascade.Count {
		return mgl32.Vec4{}
	}
	start, end := int(src.Params[c].StartIndex), int(src.Params[c+1].StartIndex)
	end = min(end, len(src.Groups))

	var d mgl32.Vec3
	for j := start; j < end; j++ {
		g := &src.Groups[j]
		for e := range 4 {
			dx, dz := g.DirX[e], g.DirZ[e]
			angle := g.K[e]*(dx*x+dz*z) - g.Omega[e]*f.Time + g.Phase[e]
			s, co := math.Sincos(float64(angle))
			d[0] += g.ChopAmp[e] * dx * float32(co)
			d[1] += g.Amp[e] * float32(s)
			d[2] += g.ChopAmp[e] * dz * float32(co)
		}
	}
	return d.Vec4(src.Params[c].CumulativeVariance)
}

// Sample sums cascades [first, last] at world position (x, z): the position
// is rotated into the wave frame and the horizontal displacement back out.
func Sample(src *Source, first, last int, x, z float32, f Frame) mgl32.Vec3 {
	var d mgl32.Vec3
	if first < 0 {
		return d
	}
	ax := axis(f.AxisX)
	u := ax.X()*x + ax.Y()*z
	v := ax.X()*z - ax.Y()*x
	for c := first; c <= last; c++ {
		d = d.Add(Displacement(src, c, u, v, f).Vec3())
	}
	return mgl32.Vec3{
		ax.X()*d[0] - ax.Y()*d[2],
		d[1],
		ax.Y()*d[0] + ax.X()*d[2],
	}
}

// axis treats a zero direction as +x.
func axis(a mgl32.Vec2) mgl32.Vec2 {
	if a == (mgl32.Vec2{}) {
		return mgl32.Vec2{1, 0}
	}
	return a
}

// TexelCenter returns the wave-frame position sampled by texel i of a cascade
// layer of the given resolution.
func TexelCenter(c, resolution, i int) float32 {
	return (float32(i) + 0.5) * cascade.Diameter(c) / float32(resolution)
}

// Evaluator fills Fields using a worker pool.
type Evaluator struct {
	pool *parallel.WorkerPool
}

// NewEvaluator starts an evaluator with the given number of workers;
// workers <= 0 means GOMAXPROCS.
func NewEvaluator(workers int) *Evaluator {
	return &Evaluator{pool: parallel.NewWorkerPool(workers)}
}

// Close stops the workers.
func (e *Evaluator) Close() {
	e.pool.Close()
}

// Evaluate writes the populated cascades of src at time f into dst.
func (e *Evaluator) Evaluate(src *Source, resolution int, f Frame, dst *Field) {
	dst.Resolution = resolution
	dst.First, dst.Last = src.First, src.Last
	for c := range cascade.Count {
		if src.First < 0 || c < src.First || c > src.Last {
			dst.Layers[c] = nil
			continue
		}
		n := resolution * resolution
		if cap(dst.Layers[c]) < n {
			dst.Layers[c] = make([]mgl32.Vec4, n)
		}
		dst.Layers[c] = dst.Layers[c][:n]
	}
	if src.First < 0 {
		return
	}

	rows := (src.Last - src.First + 1) * resolution
	e.pool.Bands(rows, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			c := src.First + r/resolution
			y := r % resolution
			z := TexelCenter(c, resolution, y)
			layer := dst.Layers[c]
			for x := range resolution {
				layer[y*resolution+x] = Displacement(src, c, TexelCenter(c, resolution, x), z, f)
			}
		}
	})
}
