package gerstner

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gerstner/internal/gpu/gputest"
	"github.com/gogpu/gerstner/lod"
)

// recordingTarget collects draw parameters.
type recordingTarget struct {
	procedural []lod.DrawParams
	meshes     []*lod.Mesh
	vertices   []uint32
}

func (r *recordingTarget) DrawProcedural(p lod.DrawParams, vertexCount uint32) {
	r.procedural = append(r.procedural, p)
	r.vertices = append(r.vertices, vertexCount)
}

func (r *recordingTarget) DrawMesh(p lod.DrawParams, m *lod.Mesh) {
	r.procedural = append(r.procedural, p)
	r.meshes = append(r.meshes, m)
}

func newCompositor(t *testing.T, g fakeGPU, reg *lod.Registry) *Compositor {
	t.Helper()
	c, err := NewCompositor(g.dev, g.queue, gputypes.TextureFormatRGBA16Float, reg)
	if err != nil {
		t.Fatalf("NewCompositor() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func drawAllLods(t *testing.T, c *Compositor, enc *gputest.Encoder, resolution int) []int {
	t.Helper()
	drawn := make([]int, CascadeCount)
	for i := range CascadeCount {
		target := LodTarget{Size: CascadeDiameter(i), LodAlpha: 0.5}
		n, err := c.DrawLod(enc, target, i, CascadeCount, resolution, DefaultMinTexelsPerWave)
		if err != nil {
			t.Fatalf("DrawLod(%d) error = %v", i, err)
		}
		drawn[i] = n
	}
	return drawn
}

func TestCompositor_OneBatchPerLod(t *testing.T) {
	g := newFakeGPU()
	reg := lod.NewRegistry()
	s := mustNew(t, WithSpectrum(loudSpectrum()), WithRegistrar(reg), g.option())
	comp := newCompositor(t, g, reg)

	enc := &gputest.Encoder{}
	if err := s.Update(enc); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	comp.BeginFrame()
	drawn := drawAllLods(t, comp, enc, s.Resolution())

	for i, n := range drawn {
		if n != 1 {
			t.Errorf("LOD %d drew %d batches, want 1", i, n)
		}
	}
	if got := enc.Draws(); got != CascadeCount {
		t.Errorf("Draws() = %d, want %d", got, CascadeCount)
	}
	for _, rp := range enc.Render {
		if !slices.Equal(rp.Draws, []uint32{lod.ProceduralVertexCount}) {
			t.Errorf("pass draws = %v, want one fullscreen triangle", rp.Draws)
		}
		if !rp.Ended {
			t.Error("render pass not ended")
		}
	}
}

func TestCompositor_MeshBatches(t *testing.T) {
	g := newFakeGPU()
	reg := lod.NewRegistry()
	quad := lod.Quad(20)
	s := mustNew(t,
		WithSpectrum(loudSpectrum()),
		WithRegistrar(reg),
		WithMesh(quad),
		WithTransform(mgl32.Translate3D(5, 0, 5)),
		g.option(),
	)
	comp := newCompositor(t, g, reg)

	enc := &gputest.Encoder{}
	if err := s.Update(enc); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	drawAllLods(t, comp, enc, s.Resolution())

	for _, rp := range enc.Render {
		if len(rp.Draws) != 0 {
			t.Errorf("procedural draws = %v, want none", rp.Draws)
		}
		if !slices.Equal(rp.IndexedDraws, []uint32{uint32(len(quad.Indices))}) {
			t.Errorf("indexed draws = %v, want [%d]", rp.IndexedDraws, len(quad.Indices))
		}
	}
}

func TestCompositor_WeightGating(t *testing.T) {
	g := newFakeGPU()
	reg := lod.NewRegistry()
	s := mustNew(t, WithSpectrum(loudSpectrum()), WithRegistrar(reg), g.option())
	comp := newCompositor(t, g, reg)

	if err := s.Update(&gputest.Encoder{}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	s.SetWeight(0)

	enc := &gputest.Encoder{}
	drawAllLods(t, comp, enc, s.Resolution())
	if got := enc.Draws(); got != 0 {
		t.Errorf("Draws() with zero weight = %d, want 0", got)
	}
}

func TestCompositor_Forget(t *testing.T) {
	g := newFakeGPU()
	reg := lod.NewRegistry()
	s := mustNew(t, WithSpectrum(loudSpectrum()), WithRegistrar(reg), g.option())
	comp := newCompositor(t, g, reg)

	if err := s.Update(&gputest.Encoder{}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	drawAllLods(t, comp, &gputest.Encoder{}, s.Resolution())
	comp.Forget(s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	enc := &gputest.Encoder{}
	drawn := drawAllLods(t, comp, enc, 32)
	if slices.ContainsFunc(drawn, func(n int) bool { return n != 0 }) {
		t.Errorf("drawn after Close = %v, want all zero", drawn)
	}
}

func TestCompositor_NilEncoder(t *testing.T) {
	g := newFakeGPU()
	comp := newCompositor(t, g, nil)
	if _, err := comp.DrawLod(nil, LodTarget{}, 0, 1, 32, 3); err != ErrNilEncoder {
		t.Errorf("DrawLod(nil) error = %v, want %v", err, ErrNilEncoder)
	}
	if comp.Registry() == nil {
		t.Error("Registry() = nil for a compositor created without one")
	}
}

func TestBatch_DrawParams(t *testing.T) {
	reg := lod.NewRegistry()
	s := mustNew(t,
		WithSpectrum(loudSpectrum()),
		WithRegistrar(reg),
		WithWeight(0.5),
		WithShallowWaterAttenuation(0.25),
		WithFeather(0.2, 0.3),
	)
	if err := s.Regenerate(); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	inputs := reg.Inputs(batchCategory)
	if len(inputs) != CascadeCount {
		t.Fatalf("registered batches = %d, want %d", len(inputs), CascadeCount)
	}

	tests := []struct {
		name       string
		weight     float32
		wantWeight float32
		wantDraw   bool
	}{
		{"full", 1, 0.5, true},
		{"half", 0.5, 0.25, true},
		{"zero", 0, 0, false},
		{"negative", -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target recordingTarget
			inputs[3].Draw(&target, tt.weight, true, 2)
			if !tt.wantDraw {
				if len(target.procedural) != 0 {
					t.Errorf("drew %d times, want 0", len(target.procedural))
				}
				return
			}
			if len(target.procedural) != 1 {
				t.Fatalf("drew %d times, want 1", len(target.procedural))
			}
			p := target.procedural[0]
			if p.Weight != tt.wantWeight {
				t.Errorf("Weight = %v, want %v", p.Weight, tt.wantWeight)
			}
			if p.SliceIndex != 3 || p.LodIndex != 2 || !p.Transition {
				t.Errorf("SliceIndex, LodIndex, Transition = %d, %d, %v, want 3, 2, true",
					p.SliceIndex, p.LodIndex, p.Transition)
			}
			if want := s.MinWavelength(3) * 1.5; p.AverageWavelength != want {
				t.Errorf("AverageWavelength = %v, want %v", p.AverageWavelength, want)
			}
			if p.RespectShallowWaterAttenuation != 0.25 || p.FeatherWaveStart != 0.2 || p.FeatherFromSplineEnds != 0.3 {
				t.Errorf("attenuation, feathers = %v, %v, %v, want 0.25, 0.2, 0.3",
					p.RespectShallowWaterAttenuation, p.FeatherWaveStart, p.FeatherFromSplineEnds)
			}
			if p.Source != nil {
				t.Errorf("Source = %v for a headless shape, want nil", p.Source)
			}
			if target.vertices[0] != lod.ProceduralVertexCount {
				t.Errorf("vertex count = %d, want %d", target.vertices[0], lod.ProceduralVertexCount)
			}
		})
	}
}

func TestLodMinWavelength(t *testing.T) {
	for c := range CascadeCount {
		got := lodMinWavelength(CascadeDiameter(c), 32, 3)
		if want := CascadeMinWavelength(c, 32, 3); got != want {
			t.Errorf("lodMinWavelength(D(%d)) = %v, want %v", c, got, want)
		}
	}
	if got := lodMinWavelength(10, 0, 3); got != 0 {
		t.Errorf("lodMinWavelength(res 0) = %v, want 0", got)
	}
}
