// Package wiki fetches and memoizes pages from a MediaWiki content API.
//
// Two layers live here:
//
//   - Client talks HTTP to the api.php endpoint. It knows the wire format,
//     applies per-request timeouts, bounded retries with exponential backoff
//     and client-side rate limiting. Client implements Source.
//   - Store sits on top of any Source. It serves already visited titles
//     from a Cache, splits the rest into batches of at most 50 titles,
//     follows continuation until exhausted, resolves normalization and
//     redirects to canonical titles and commits every batch atomically.
//
// A title that has been fetched once, person or not, is never fetched
// again for the lifetime of the Cache. Missing pages are cached as empty
// pages.
//
// # Errors
//
// Transport failures, HTTP errors and API error objects are returned as
// *RemoteError, which matches ErrRemote:
//
//	pages, err := store.FetchPages(ctx, titles)
//	if errors.Is(err, wiki.ErrRemote) {
//	    // nothing from the failing batch was cached; retrying is safe
//	}
package wiki
