// Package community partitions the people graph for display grouping.
//
// Partitioning runs gonum's Louvain modularity optimization on the
// undirected projection of the graph. The random source is seeded and
// nodes are visited in id order, so the same graph always yields the same
// communities, and so the same colors.
package community
