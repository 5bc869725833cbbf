// Package opd decodes OPD containers: animated centroid datasets stored as a
// JSON header followed by big-endian centroid records and quantized,
// frame-major 3D samples.
//
// Binary layout:
//
//	offset 0:    4 bytes      magic ".opd"
//	offset 4:    4 bytes      u32 header length L
//	offset 8:    L bytes      UTF-8 JSON header
//	offset 8+L:  count*16     centroid records (u32 parent id, f32 x, y, z)
//	thereafter:               frame samples, precision bytes each, 3 per point
//
// The package works on a fully resident, decompressed buffer and performs no I/O.
package opd
