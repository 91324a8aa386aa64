// Package model defines the core data structures shared across peoplenet.
//
// This package contains the Page type, which represents one remote page
// (infobox text, intro summary and portrait) as seen by the crawler.
//
// Models live in their own package so that the wiki store, the crawler and
// the exporter can share them without import cycles.
package model
