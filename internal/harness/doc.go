// Package harness runs halodb scenarios: a catalog, a sequence of query
// and calc steps with expected values, and assertions over the result.
//
// # Scenario Format
//
//	name: merger_tree
//	description: "What this scenario validates"
//	catalog: catalogs/tree.yaml
//	histograms:
//	  SFR_histogram: {nbins: 10, tmax_gyr: 10, minimum_store_gyr: 1}
//	steps:
//	  - query: earlier(1).Mvir
//	    halos: [sim/ts3/1, sim/ts3/2]
//	    expect: [10.0, 20.0]
//	  - calc: Mvir * 2
//	    as: Mvir2
//	    timestep: sim/ts2
//	  - query: later(1.5)
//	    timestep: sim/ts1
//	    error: ARGUMENT_TYPE
//	assertions:
//	  - type: null_rows
//	    step: 0
//	    count: 0
//	  - type: final_property
//	    halo: sim/ts2/1
//	    property: Mvir2
//	    expect: 20.0
//
// Catalog paths are relative to the scenario file. Expected halo
// references are written as !halo sim/ts2/1.
//
// # Assertion Types
//
//   - null_rows: a step produced exactly count null rows
//   - final_property: a stored property has the expected value after all steps
//   - trace_count: an expression was run exactly count times
//
// # Deterministic Testing
//
// Every run loads the catalog into a fresh in-memory SQLite store with a
// process-local write lock, so traces are reproducible and can be
// compared against golden files under testdata/golden.
package harness
