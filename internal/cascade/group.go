package cascade

import (
	"encoding/binary"
	"math"
)

// WaveGroup4 holds four packed wave components. Field order matches the
// order in which the compute kernel reads a group.
type WaveGroup4 struct {
	K       [4]float32 // wavenumber 2π/λ
	Amp     [4]float32
	DirX    [4]float32
	DirZ    [4]float32
	Omega   [4]float32
	Phase   [4]float32
	ChopAmp [4]float32
}

// GroupSize is the encoded size of one WaveGroup4 in bytes.
const GroupSize = 7 * 4 * 4

// ParamsSize is the encoded size of one Params entry in bytes.
const ParamsSize = 8

// Params is the per-cascade entry read by the kernel. Entry c+1's
// StartIndex is the exclusive end of cascade c.
type Params struct {
	StartIndex         int32
	CumulativeVariance float32
}

// clearLane makes lane e a no-op for the kernel.
func (g *WaveGroup4) clearLane(e int) {
	g.K[e] = 1
	g.Amp[e] = 0
	g.DirX[e] = 0
	g.DirZ[e] = 0
	g.Omega[e] = 0
	g.Phase[e] = 0
	g.ChopAmp[e] = 0
}

func (g *WaveGroup4) fields() [7]*[4]float32 {
	return [7]*[4]float32{&g.K, &g.Amp, &g.DirX, &g.DirZ, &g.Omega, &g.Phase, &g.ChopAmp}
}

// AppendGroups appends the little-endian encoding of groups to dst.
func AppendGroups(dst []byte, groups []WaveGroup4) []byte {
	for i := range groups {
		for _, f := range groups[i].fields() {
			for _, v := range f {
				dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
			}
		}
	}
	return dst
}

// AppendParams appends the little-endian encoding of params to dst.
func AppendParams(dst []byte, params []Params) []byte {
	for _, p := range params {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(p.StartIndex)) //nolint:gosec // start index is never negative
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(p.CumulativeVariance))
	}
	return dst
}
