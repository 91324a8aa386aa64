// Package graph holds the directed people graph.
//
// Titles are interned to int64 ids that stay stable for the lifetime of a
// Graph, even across removal and re-insertion. Adjacency is kept in a
// gonum simple.DirectedGraph whose edges carry the infobox fields that
// produced them. Removing a node removes every incident edge with it.
//
// Graph is not safe for concurrent use. The crawler serializes writers and
// hands readers a Clone.
package graph
