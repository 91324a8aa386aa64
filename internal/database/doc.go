// Package database provides a SQLite-backed page cache for peoplenet.
//
// PageCache implements wiki.Cache on top of two tables:
//   - pages: one row per canonical title with sidebar, summary, portrait
//     and the user-added flag
//   - aliases: requested spellings and redirects mapped to canonical titles
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. A batch commit maps directly onto one transaction
//
// An empty directory opens a private in-memory database, which behaves
// like wiki.MemoryCache. A directory keeps fetched pages across runs so a
// repeated crawl needs no remote calls; user-added flags are cleared on
// open because the graph itself is never persisted.
package database
