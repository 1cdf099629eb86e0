// Package lod defines the contract between wave inputs and a renderer's
// level-of-detail compositor, plus a wavelength-keyed Registry that
// implements it.
//
// An input is a draw that contributes displacement to one or more LOD
// slices. The compositor decides which slice an input belongs in from its
// wavelength, so that each LOD only accumulates the waves it can resolve.
package lod

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ProceduralVertexCount is the vertex count of a fullscreen triangle.
const ProceduralVertexCount = 3

// Input is one registered draw.
type Input interface {
	// Wavelength decides which LOD slice the input is drawn into.
	Wavelength() float32

	Enabled() bool

	// Draw records the input into target. weight scales the contribution;
	// transition is set when drawing into the last LOD, which has to blend
	// in waves too long for any slice.
	Draw(target DrawTarget, weight float32, transition bool, lodIdx int)
}

// Registrar is the registration side of a compositor.
type Registrar interface {
	Add(category int, in Input)
	Remove(in Input)
}

// DrawParams are the per-draw values a target binds before drawing.
type DrawParams struct {
	LodIndex   int
	Weight     float32
	Transition bool

	// SliceIndex selects the wave-buffer layer to sample.
	SliceIndex        int
	AverageWavelength float32

	// Axis is the primary wave direction the layer was evaluated in. Zero
	// means +x.
	Axis mgl32.Vec2

	RespectShallowWaterAttenuation float32
	FeatherWaveStart               float32
	FeatherFromSplineEnds          float32

	// Transform maps mesh vertices to world space. Ignored by procedural draws.
	Transform mgl32.Mat4

	// Source identifies the wave texture array to sample. Its concrete type
	// is owned by the target.
	Source any
}

// DrawTarget receives the draws of one LOD pass.
type DrawTarget interface {
	// DrawProcedural draws vertexCount generated vertices, no vertex buffer.
	DrawProcedural(p DrawParams, vertexCount uint32)

	// DrawMesh draws m transformed by p.Transform.
	DrawMesh(p DrawParams, m *Mesh)
}

// Vertex is a mesh vertex. UV.X runs along the shape, 0 and 1 at its ends;
// UV.Y runs from 0 at the outer edge towards 1 inside.
type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
}

// VertexSize is the encoded size of a Vertex in bytes.
const VertexSize = 5 * 4

// Mesh is indexed triangle geometry that limits where waves are drawn.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

// Quad returns a flat square of the given size centred on the origin in
// the XZ plane, with UV.Y = 1 everywhere so nothing is feathered.
func Quad(size float32) *Mesh {
	h := size / 2
	return &Mesh{
		Name: "quad",
		Vertices: []Vertex{
			{Position: mgl32.Vec3{-h, 0, -h}, UV: mgl32.Vec2{0, 1}},
			{Position: mgl32.Vec3{h, 0, -h}, UV: mgl32.Vec2{1, 1}},
			{Position: mgl32.Vec3{h, 0, h}, UV: mgl32.Vec2{1, 1}},
			{Position: mgl32.Vec3{-h, 0, h}, UV: mgl32.Vec2{0, 1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
