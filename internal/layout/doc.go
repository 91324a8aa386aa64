// Package layout computes 2D display positions for the people graph.
//
// Every connected component is laid out on its own with gonum's Eades
// force-directed algorithm and normalized to a disc whose radius grows
// with the component. Components are then packed in rows, largest first,
// so disconnected groups never overlap. Isolated nodes sit at the center
// of their own small cell.
//
// The layout is deterministic: the random source is seeded per component
// and nodes are visited in title order.
package layout
