// Package pagination walks link-paginated identity-provider endpoints.
//
// List endpoints return a JSON array per page and announce the following
// page in the Link response header:
//
//	link: <https://example.okta.com/api/v1/users?limit=200&after=00u1>; rel="next"
//
// The Fetcher follows rel="next" links sequentially until none is present,
// yielding records lazily in page order:
//
//	fetcher := pagination.NewFetcher(apiClient, pagination.DefaultConfig())
//	for raw, err := range fetcher.All(ctx, usersURL) {
//		if err != nil {
//			return err
//		}
//		// decode raw
//	}
//
// Rate limit waits happen inside the page getter, between pages.
// A missing or malformed Link header ends the walk without error.
package pagination
