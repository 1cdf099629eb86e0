package cpu

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"
)

// BytesPerTexel is the size of one RGBA16Float texel.
const BytesPerTexel = 8

// AppendRGBA16F appends layer as tightly packed RGBA16Float texels, the
// format of the wave texture array.
func AppendRGBA16F(dst []byte, layer []mgl32.Vec4) []byte {
	for _, v := range layer {
		for _, c := range v {
			dst = binary.LittleEndian.AppendUint16(dst, float16.Fromfloat32(c).Bits())
		}
	}
	return dst
}

// DecodeRGBA16F is the inverse of AppendRGBA16F.
func DecodeRGBA16F(src []byte) []mgl32.Vec4 {
	out := make([]mgl32.Vec4, len(src)/BytesPerTexel)
	for i := range out {
		for c := range 4 {
			bits := binary.LittleEndian.Uint16(src[i*BytesPerTexel+c*2:])
			out[i][c] = float16.Frombits(bits).Float32()
		}
	}
	return out
}
