// Package infobox extracts relations from the infobox of a wiki page.
//
// The input is the raw wikitext of a page's lead section. The infobox is a
// template made of "field = value" parameters separated by pipes:
//
//	{{Infobox philosopher
//	| name       = Aristotle
//	| birth_date = 384 BC
//	| teacher    = [[Plato]]
//	}}
//
// Parsing happens in two passes. A tokenizer splits the template body into
// parameters on pipes that are not nested inside links or other templates,
// then a link scanner walks each value for [[Target]] and
// [[Target|Display]] markup.
//
// # Malformed Markup
//
// Wikitext is written by hand and is often broken. The parser never fails:
// an unclosed link, an empty target or a parameter without a valid field
// name simply yields no match for that occurrence. A missed relation is
// acceptable, an invented one is not.
//
// # Usage
//
//	box := infobox.Parse(page.Sidebar)
//	for _, rel := range box.Relations() {
//	    fmt.Println(rel.Field, rel.Targets)
//	}
//
//	links := infobox.ExtractLinks(page.Sidebar)
//	labels := infobox.LinkInfo(page.Sidebar, "Plato") // ["teacher"]
package infobox
