package client

import (
	"testing"

	"github.com/Sternrassler/trendnow-cache/pkg/cache"
)

func TestTrendingQuery_RawQuery(t *testing.T) {
	tests := []struct {
		name  string
		query TrendingQuery
		want  string
	}{
		{
			name:  "first page without country",
			query: TrendingQuery{Topic: "general", Language: "en"},
			want:  "topic=general&language=en",
		},
		{
			name:  "page one is omitted",
			query: TrendingQuery{Topic: "general", Language: "en", Country: "US", Page: 1},
			want:  "topic=general&language=en&country=US",
		},
		{
			name:  "later page",
			query: TrendingQuery{Topic: "general", Language: "en", Country: "US", Page: 3},
			want:  "topic=general&language=en&country=US&page=3",
		},
		{
			name:  "values are escaped",
			query: TrendingQuery{Topic: "science & tech", Language: "pt-BR"},
			want:  "topic=science+%26+tech&language=pt-BR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.RawQuery(); got != tt.want {
				t.Errorf("RawQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrendingQuery_FirstPageIsParent(t *testing.T) {
	base := TrendingQuery{Topic: "science & tech", Language: "en", Country: "DE"}
	parent := "https://api.com" + base.Endpoint()

	for page := 1; page <= 4; page++ {
		q := base
		q.Page = page
		url := "https://api.com" + q.Endpoint()

		if got := cache.ParentURL(url); got != parent {
			t.Errorf("ParentURL(page %d) = %q, want %q", page, got, parent)
		}
	}
}
