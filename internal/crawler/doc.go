// Package crawler builds the people graph.
//
// The Builder owns one graph.Graph and expands it breadth first from a
// requested person, following the links of every person's infobox. Pages
// come from a wiki.Store, so titles fetched by earlier operations are
// never fetched again, even after Reset.
//
// # Levels
//
// Each level of an expansion is handled in three steps:
//  1. fetch the pages of the frontier and collect their infobox links
//  2. fetch and classify every linked page in one batched call
//  3. commit the edges of the whole level under the write lock
//
// A level is committed completely or not at all. Cancellation and remote
// failures are checked between levels, so the graph always holds whole
// levels.
//
// # Operations
//
// Only one of AddPerson, RemovePerson and Reset runs at a time. A call
// made while another is running fails with ErrBusy rather than queueing,
// which mirrors an interface that disables its controls while busy.
// Readers use Snapshot, which does not wait for a running operation to
// finish.
//
// # Usage
//
//	builder := crawler.NewBuilder(store, crawler.WithMaxDepth(3))
//	ok, err := builder.AddPerson(ctx, "Aristotle", 2)
//	g := builder.Snapshot()
package crawler
