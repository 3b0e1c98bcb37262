// Package sgviz serves the monitoring surface for a shared scene
// graph: JSON status endpoints, debug charts rendered with go-echarts,
// and PNG growth plots written with gonum/plot. All graph access goes
// through the shared graph's read API so handlers never block writers
// for longer than a snapshot takes.
package sgviz
