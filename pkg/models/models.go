// Package models holds the news API wire types shared by the client,
// the stores and the proxy.
package models

// Publisher is the outlet a news item was published by.
type Publisher struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Favicon string `json:"favicon"`
}

// News is one trending news item.
type News struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Excerpt   string    `json:"excerpt"`
	Thumbnail string    `json:"thumbnail"`
	Date      string    `json:"date"`
	Publisher Publisher `json:"publisher"`
}

// Topic is a news category supported by the API.
// CreatedAt is set locally (ms since epoch) when topics are persisted.
type Topic struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// PaginationResponse is the envelope of paged endpoints.
type PaginationResponse[T any] struct {
	Success    bool `json:"success"`
	Size       int  `json:"size"`
	Page       int  `json:"page"`
	TotalPages int  `json:"totalPages"`
	Data       []T  `json:"data"`
}

// BasicResponse is the envelope of non-paged endpoints.
type BasicResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}
