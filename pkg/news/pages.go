package news

import (
	"context"
	"sort"

	"github.com/Sternrassler/trendnow-cache/pkg/client"
	"github.com/Sternrassler/trendnow-cache/pkg/models"
	"github.com/Sternrassler/trendnow-cache/pkg/pagination"
)

// TrendingPages fetches the pages of one trending listing through a Repository.
type TrendingPages struct {
	repo  *Repository
	query client.TrendingQuery
}

// Pages returns a pagination.PageFetcher for the listing selected by q.
// The page of q is ignored.
func (r *Repository) Pages(q client.TrendingQuery) *TrendingPages {
	q.Page = 0
	return &TrendingPages{repo: r, query: q}
}

// FetchPage implements pagination.PageFetcher.
func (p *TrendingPages) FetchPage(ctx context.Context, pageNum int) ([]models.News, int, error) {
	q := p.query
	q.Page = pageNum

	res, err := p.repo.FetchTrendingNews(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return res.News, res.TotalPages, nil
}

// FetchAllTrendingNews fetches every page of a listing, up to cfg.MaxPages,
// and returns the items in page order. On partial failure the pages fetched
// so far are returned together with the error.
func (r *Repository) FetchAllTrendingNews(ctx context.Context, q client.TrendingQuery, cfg pagination.Config) ([]models.News, error) {
	bf := pagination.NewBatchFetcher[[]models.News](r.Pages(q), cfg)
	pages, err := bf.FetchAllPages(ctx)

	nums := make([]int, 0, len(pages))
	for n := range pages {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	var all []models.News
	for _, n := range nums {
		all = append(all, pages[n]...)
	}
	return all, err
}
