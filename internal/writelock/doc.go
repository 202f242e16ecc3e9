// Package writelock serializes catalog write transactions across workers.
//
// A Backend provides mutual exclusion at some scope: Local within one
// process, File across processes on one host (flock), Redis across hosts.
// A Handle wraps a Backend for one worker and makes it reentrant: nested
// Acquire calls from the holder only bump a depth counter, and the backend
// lock is released when the outermost Release runs.
//
// The store acquires its Handle when a write transaction begins and
// releases it after commit or rollback. Reads never touch the lock.
package writelock
