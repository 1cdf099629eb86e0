// Package gpu owns the hal objects behind a wave shape: the device, the
// displacement texture array with its wave buffers, the compute dispatch
// that fills the array and the render pipelines that composite its layers
// into LOD targets.
//
// Everything here records into caller-provided command encoders. Submission
// and presentation belong to the caller.
package gpu
