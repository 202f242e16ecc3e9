// Package crosslink joins equivalent halos of two simulations with
// "sameas" links.
//
// Linking is driven by a pair of match catalogs computed elsewhere from
// particle data: forward maps each halo number of the source timestep to a
// halo number of the target, backward does the reverse. A link is created
// only where both agree.
package crosslink
