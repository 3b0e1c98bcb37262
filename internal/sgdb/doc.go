// Package sgdb persists scene graph snapshots to SQLite.
//
// Snapshots are point-in-time copies of a graph: every node, edge and
// agent trajectory entry, keyed by a generated snapshot id. The schema
// is managed with versioned migrations; the database also exposes the
// debug surface (live SQL console, backup download) on the admin mux.
package sgdb
