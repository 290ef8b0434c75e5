// Package pagination maps UI-sized "virtual" pages onto a fixed-size
// upstream paginated source and plans the page-number controls around them.
//
// TMDB serves 20 results per page, but a grid may want 18 per page. The
// Translator computes which upstream pages cover the requested range,
// fetches one or two of them and slices out exactly the items to render:
//
//	tr, err := pagination.NewTranslator[tmdb.Title](source, 20)
//	res, err := tr.Translate(ctx, pagination.Request{Page: 2, PageSize: 18})
//	// res.Items == upstream[18:36], res.TotalItems from upstream page 1
//
// The page bar is derived from the current page and the total page count:
//
//	total := pagination.TotalPages(res.TotalItems, 18)
//	plan := pagination.NewPlan(2, total)
//	// [1] [2] [3] [4] … [N]
//
// Callers that issue loads asynchronously tag each one with a token from
// Generations and drop any result whose token is no longer current.
//
// The BatchFetcher fetches a set of upstream pages in parallel with a
// bounded worker pool. It is used to warm the pages behind the next
// virtual page.
package pagination
