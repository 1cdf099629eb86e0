package cpu

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/gerstner/internal/cascade"
	"github.com/gogpu/gerstner/spectrum"
)

func singleWave(k, amp, chop, omega, phase float32) *Source {
	src := &Source{First: 0, Last: 0}
	g := cascade.WaveGroup4{}
	g.K = [4]float32{k, 1, 1, 1}
	g.Amp[0] = amp
	g.DirX[0] = 1
	g.Omega[0] = omega
	g.Phase[0] = phase
	g.ChopAmp[0] = chop
	src.Groups = []cascade.WaveGroup4{g}
	for c := 1; c <= cascade.Count; c++ {
		src.Params[c].StartIndex = 1
	}
	src.Params[0].CumulativeVariance = 0.25
	return src
}

func TestDisplacement_SingleWave(t *testing.T) {
	src := singleWave(2, 0.5, -0.3, 3, 0.1)
	f := Frame{Time: 0.7, AxisX: mgl32.Vec2{1, 0}}

	got := Displacement(src, 0, 0.4, 9, f)

	angle := 2*0.4 - 3*0.7 + 0.1
	want := mgl32.Vec4{
		float32(-0.3 * math.Cos(angle)),
		float32(0.5 * math.Sin(angle)),
		0,
		0.25,
	}
	if !got.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("Displacement() = %v, want %v", got, want)
	}
}

func TestSample_AxisRotatesDirection(t *testing.T) {
	src := singleWave(1, 1, -1, 0, 0)
	// Rotating +x by 90 degrees makes the wave travel along +z.
	f := Frame{AxisX: mgl32.Vec2{0, 1}}

	got := Sample(src, 0, 0, 5, 0.3, f)
	if math.Abs(float64(got.Y())-math.Sin(0.3)) > 1e-5 {
		t.Errorf("dy = %v, want sin(0.3) = %v", got.Y(), math.Sin(0.3))
	}
	if math.Abs(float64(got.X())) > 1e-6 {
		t.Errorf("dx = %v, want 0", got.X())
	}
	if math.Abs(float64(got.Z())+math.Cos(0.3)) > 1e-5 {
		t.Errorf("dz = %v, want %v", got.Z(), -math.Cos(0.3))
	}

	if got := Sample(src, -1, -1, 5, 0.3, f); got != (mgl32.Vec3{}) {
		t.Errorf("Sample() with no cascades = %v, want zero", got)
	}
}

// slicedWave packs one 0.3 m wave travelling at 20 degrees, which lands in
// cascade 2 (a 2 m tile) at resolution 32.
func slicedWave(t *testing.T) *Source {
	t.Helper()
	var s cascade.Slicer
	res, err := s.Slice(cascade.Input{
		Wavelengths:         []float32{0.3},
		Amplitudes:          []float32{0.5},
		AnglesDeg:           []float32{20},
		Phases:              []float32{1.1},
		ComponentsPerOctave: 1,
		Resolution:          32,
		MinTexelsPerWave:    3,
		Gravity:             9.81,
		Spectrum:            spectrum.Default(),
	})
	if err != nil {
		t.Fatalf("Slice() error = %v", err)
	}
	if res.First != 2 || res.Last != 2 {
		t.Fatalf("First, Last = %d, %d, want 2, 2", res.First, res.Last)
	}
	return &Source{Groups: res.Groups, Params: res.Params, First: res.First, Last: res.Last}
}

func near(got, want []float32) bool {
	for i := range got {
		if math.Abs(float64(got[i]-want[i])) > 1e-3 {
			return false
		}
	}
	return true
}

func TestLayerTiles(t *testing.T) {
	src := slicedWave(t)
	const c = 2
	d := cascade.Diameter(c)
	p := mgl32.Vec2{0.37, -1.21}

	tests := []struct {
		name    string
		heading float64
	}{
		{"0", 0},
		{"30", 30},
		{"90", 90},
		{"137", 137},
		{"-71", -71},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sin, cos := math.Sincos(tt.heading * math.Pi / 180)
			ax := mgl32.Vec2{float32(cos), float32(sin)}
			f := Frame{Time: 0.8, AxisX: ax}

			// The evaluated layer repeats every tile along both axes.
			at := Displacement(src, c, p.X(), p.Y(), f)
			for _, off := range []mgl32.Vec2{{d, 0}, {0, d}, {-d, 2 * d}} {
				got := Displacement(src, c, p.X()+off.X(), p.Y()+off.Y(), f)
				if !near(got[:], at[:]) {
					t.Errorf("layer at p+%v = %v, want %v", off, got, at)
				}
			}

			// Sampling the repeated layer in the wave frame gives the same
			// surface as evaluating the world position directly.
			world := Sample(src, c, c, p.X(), p.Y(), f)
			u := ax.X()*p.X() + ax.Y()*p.Y()
			v := ax.X()*p.Y() - ax.Y()*p.X()
			local := Displacement(src, c, cascade.Repeat(u, d), cascade.Repeat(v, d), f)
			want := mgl32.Vec3{
				ax.X()*local.X() - ax.Y()*local.Z(),
				local.Y(),
				ax.Y()*local.X() + ax.X()*local.Z(),
			}
			if !near(world[:], want[:]) {
				t.Errorf("Sample() = %v, repeated layer gives %v", world, want)
			}

			// A tile step along the heading leaves the world surface unchanged.
			step := ax.Mul(d)
			if got := Sample(src, c, c, p.X()+step.X(), p.Y()+step.Y(), f); !near(got[:], world[:]) {
				t.Errorf("Sample() one tile along heading = %v, want %v", got, world)
			}
		})
	}
}

func TestDisplacement_EmptyCascade(t *testing.T) {
	src := singleWave(1, 1, 1, 0, 0)
	if got := Displacement(src, 3, 1, 1, Frame{AxisX: mgl32.Vec2{1, 0}}); got.Vec3() != (mgl32.Vec3{}) {
		t.Errorf("Displacement() in empty cascade = %v, want zero", got)
	}
	if got := Displacement(src, cascade.Count, 1, 1, Frame{}); got != (mgl32.Vec4{}) {
		t.Errorf("Displacement() out of range = %v, want zero", got)
	}
}

func TestEvaluator_MatchesDisplacement(t *testing.T) {
	src := singleWave(4*math.Pi, 0.2, -0.1, 2, 1)
	f := Frame{Time: 1.5, AxisX: mgl32.Vec2{0.6, 0.8}}

	ev := NewEvaluator(3)
	defer ev.Close()

	var field Field
	ev.Evaluate(src, 8, f, &field)

	if field.Layers[1] != nil {
		t.Error("unpopulated layer was allocated")
	}
	layer := field.Layers[0]
	if len(layer) != 64 {
		t.Fatalf("len(layer) = %d, want 64", len(layer))
	}
	for y := range 8 {
		for x := range 8 {
			want := Displacement(src, 0, TexelCenter(0, 8, x), TexelCenter(0, 8, y), f)
			if got := layer[y*8+x]; got != want {
				t.Errorf("texel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestEvaluator_Unpopulated(t *testing.T) {
	ev := NewEvaluator(1)
	defer ev.Close()

	field := Field{}
	field.Layers[0] = make([]mgl32.Vec4, 4)
	ev.Evaluate(&Source{First: -1, Last: -1}, 2, Frame{}, &field)
	for c, l := range field.Layers {
		if l != nil {
			t.Errorf("layer %d = %d texels, want nil", c, len(l))
		}
	}
}

func TestTexelCenter(t *testing.T) {
	if got := TexelCenter(0, 32, 0); got != 0.5*0.5/32 {
		t.Errorf("TexelCenter(0, 32, 0) = %v, want %v", got, 0.5*0.5/32)
	}
	if got := TexelCenter(3, 4, 3); got != 3.5 {
		t.Errorf("TexelCenter(3, 4, 3) = %v, want 3.5", got)
	}
}

func TestRGBA16F(t *testing.T) {
	layer := []mgl32.Vec4{{0.5, -2, 1, 0}, {65504, -0.25, 3, 1024}}
	b := AppendRGBA16F(nil, layer)
	if len(b) != 2*BytesPerTexel {
		t.Fatalf("len = %d, want %d", len(b), 2*BytesPerTexel)
	}
	// 0.5 in binary16 is 0x3800.
	if b[0] != 0x00 || b[1] != 0x38 {
		t.Errorf("first channel bytes = %#x %#x, want 0x00 0x38", b[0], b[1])
	}
	got := DecodeRGBA16F(b)
	for i := range layer {
		if got[i] != layer[i] {
			t.Errorf("texel %d = %v, want %v", i, got[i], layer[i])
		}
	}
}
