// Package graph defines the block graph edited by Blockstudio.
// Blocks live in an arena keyed by BlockID; sequence (Next/Prev) and
// containment (Parent/Children) relations are ID fields, so the graph holds
// no pointer cycles.
package graph
