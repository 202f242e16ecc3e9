// Package graph defines the halo catalog model: halos, timesteps ordered
// within a simulation, and typed directed links between halos in different
// timesteps.
//
// Reader is the boundary every traversal and evaluation layer reads through.
// The SQLite store implements it for persisted catalogs; Memory implements it
// for tests and small in-process catalogs.
//
// A missing link is "not yet computed", never an error. Readers return an
// empty slice for it and a null value for missing properties.
package graph
