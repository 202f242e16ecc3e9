// Package ingest loads halo catalogs described in YAML into a store.
//
// A catalog lists simulations, their timesteps and halos with property
// values, then the links between halos. Halos are addressed as
// "simulation/extension/number".
package ingest
