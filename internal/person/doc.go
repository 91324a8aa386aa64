// Package person decides whether a wiki page describes a person.
//
// The heuristic is deliberately coarse: a page is a person when its infobox
// carries a birth date field. Group articles, fictional characters with a
// birth date and people whose infobox omits the date are all misjudged, and
// that is accepted. Pages without retrievable content are never people.
package person
