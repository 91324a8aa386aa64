// Package export turns the people graph into a render-ready view.
//
// A View is recomputed from a graph snapshot on every call: communities
// come from the community package, positions from the layout package, and
// portraits, summaries and user-added flags from the page cache. The view
// is the only thing a renderer needs; selection events are answered by
// DescribeSelection and DescribeRelation, which read the cache only.
package export
