// Package histogram reassembles time-chunked histogram properties.
//
// A time-chunked property stores, at each timestep, only the trailing
// window of a time-binned series that ends at the halo's own time. The
// full history is rebuilt on read by walking the progenitor chain and
// placing each stored chunk at its position in time.
//
// Reassembly modes:
//   - raw: the stored chunk as is
//   - place: the chunk zero-padded into a full-length array
//   - major: chunks along the major progenitor chain; later steps win overlaps
//   - sum: chunks from every progenitor; chunks at the same time add up,
//     chunks at a later time overwrite
//
// NaN bins are unknown: they are never written into or summed into the result.
package histogram
