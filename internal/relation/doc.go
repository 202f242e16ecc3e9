// Package relation resolves corresponding halos across timesteps.
//
// A Strategy expands breadth-first from each source halo along typed links,
// one hop at a time, moving monotonically toward the target timestep. Each
// source produces one Row: nil (null) when no candidate is reachable, the
// hop ceiling is breached before any candidate was found, or an explored
// branch contains a same-timestep edge. Rows are never an error; only an unknown relation kind is fatal.
//
// Two policies select among candidates:
//   - Major keeps the single best candidate
//   - All keeps every candidate, best first
//
// Candidates are ordered by hop depth ascending, then path weight (product
// of link weights) descending, then halo number ascending.
package relation
