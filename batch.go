package gerstner

import (
	"github.com/gogpu/gerstner/internal/cascade"
	"github.com/gogpu/gerstner/lod"
)

// batchCategory is the registrar category wave batches are added under.
const batchCategory = 0

// batch draws one cascade layer of a shape into the LOD whose wavelength
// range matches the cascade.
type batch struct {
	shape      *Shape
	slice      int
	wavelength float32
}

func (b *batch) Wavelength() float32 { return b.wavelength }

func (b *batch) Enabled() bool {
	b.shape.mu.Lock()
	defer b.shape.mu.Unlock()
	return !b.shape.closed
}

// params returns the draw parameters, or false when the combined weight
// leaves nothing to draw. The caller holds the shape lock.
func (b *batch) params(weight float32, transition bool, lodIdx int) (lod.DrawParams, bool) {
	s := b.shape
	w := weight * s.opts.weight
	if w <= 0 {
		return lod.DrawParams{}, false
	}
	p := lod.DrawParams{
		LodIndex:                       lodIdx,
		Weight:                         w,
		Transition:                     transition,
		SliceIndex:                     b.slice,
		AverageWavelength:              b.wavelength * 1.5,
		Axis:                           s.primaryWaveDirection(),
		RespectShallowWaterAttenuation: s.opts.respectShallowWater,
		FeatherWaveStart:               s.opts.featherWaveStart,
		FeatherFromSplineEnds:          s.opts.featherFromSplineEnds,
		Transform:                      s.opts.transform,
	}
	if s.res != nil {
		p.Source = s.res
	}
	return p, true
}

// proceduralBatch covers the whole LOD with a fullscreen triangle.
type proceduralBatch struct{ batch }

func (b *proceduralBatch) Draw(target lod.DrawTarget, weight float32, transition bool, lodIdx int) {
	b.shape.mu.Lock()
	p, ok := b.params(weight, transition, lodIdx)
	b.shape.mu.Unlock()
	if ok {
		target.DrawProcedural(p, lod.ProceduralVertexCount)
	}
}

// meshBatch limits the waves to the footprint of a mesh.
type meshBatch struct {
	batch
	mesh *lod.Mesh
}

func (b *meshBatch) Draw(target lod.DrawTarget, weight float32, transition bool, lodIdx int) {
	b.shape.mu.Lock()
	p, ok := b.params(weight, transition, lodIdx)
	b.shape.mu.Unlock()
	if ok {
		target.DrawMesh(p, b.mesh)
	}
}

// rebuildBatches replaces the registered batches with one per populated
// cascade. The caller holds the shape lock.
func (s *Shape) rebuildBatches() {
	s.removeBatches()
	if s.registrar == nil || s.result.First < 0 {
		return
	}
	for c := s.result.First; c <= s.result.Last; c++ {
		base := batch{
			shape:      s,
			slice:      c,
			wavelength: cascade.MinWavelength(c, s.opts.resolution, s.ocean.MinTexelsPerWave()),
		}
		var in lod.Input
		if s.opts.mesh != nil {
			in = &meshBatch{batch: base, mesh: s.opts.mesh}
		} else {
			in = &proceduralBatch{batch: base}
		}
		s.batches = append(s.batches, in)
		s.registrar.Add(batchCategory, in)
	}
}

func (s *Shape) removeBatches() {
	if s.registrar != nil {
		for _, in := range s.batches {
			s.registrar.Remove(in)
		}
	}
	s.batches = s.batches[:0]
}
