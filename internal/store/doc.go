// Package store provides SQLite-backed persistent storage for halo catalogs.
//
// The store holds simulations, timesteps, halos, typed properties and
// weighted links, and implements graph.Catalog for the query engine.
//
// # Writes
//
// Every write runs inside WithTx. The store's writelock.Handle is acquired
// when the outermost transaction begins and released after it commits or
// rolls back, so writers in separate processes sharing a lock backend are
// serialized. Nested WithTx calls join the open transaction. Reads never
// take the lock.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// Every read query has an ORDER BY so results are deterministic.
package store
