// Package news is the read path the rest of the application uses: it
// fetches trending news and supported topics through the news API client
// and keeps the local caches in step.
//
// Trending pages are cached by the client's response cache. The repository
// records every page that came from the network so that later requests for
// the same page can be answered locally while fresh, and so that refreshing
// the first page of a listing invalidates the cached later pages.
//
// Topics change rarely and are kept in a TopicStore for MaxTopicsAge.
//
// Example usage:
//
//	repo := news.NewRepository(apiClient, apiClient.Cache(), sqliteStore)
//	page, err := repo.FetchTrendingNews(ctx, client.TrendingQuery{
//		Topic:    "general",
//		Language: "en",
//	})
//	topics, err := repo.FetchSupportedTopics(ctx)
package news
