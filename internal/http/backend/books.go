package backend

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwise1/bookgroups/internal/model"
	"github.com/pkg/errors"
)

const (
	OpSearchBooks     = "SearchBooks"
	OpBestBookshelves = "BestBookshelves"

	MsgSearchBooksFailed     = "failed to search books"
	MsgBestBookshelvesFailed = "failed to load recommended bookshelves"
)

// BookSearchQuery is the query string of the book search.
type BookSearchQuery struct {
	Query string `url:"query"`
	Page  int    `url:"page"`
}

// SearchBooks returns one page of book search results for keyword.
// Endpoint: GET /books/search?query=&page=
func (c *Client) SearchBooks(ctx context.Context, keyword string, page int) (model.Page[model.Book], error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return model.Page[model.Book]{}, fail(ctx, OpSearchBooks, ErrorCodeInvalidArgument, MsgSearchBooksFailed, errors.New("empty search keyword"))
	}
	if page < 1 {
		page = 1
	}

	var result *model.Page[model.Book]
	if err := c.send(ctx, http.MethodGet, "/books/search", BookSearchQuery{Query: keyword, Page: page}, nil, &result); err != nil {
		return model.Page[model.Book]{}, fail(ctx, OpSearchBooks, classify(err), MsgSearchBooksFailed, err)
	}
	if result == nil {
		return model.Page[model.Book]{}, fail(ctx, OpSearchBooks, ErrorCodeEmptyResponse, MsgSearchBooksFailed, nil)
	}
	return *result, nil
}

// BestBookshelves returns the recommended bookshelves of the home feed.
// Endpoint: GET /bookshelf/best
func (c *Client) BestBookshelves(ctx context.Context) ([]model.BookshelfPreview, error) {
	var result []model.BookshelfPreview
	if err := c.send(ctx, http.MethodGet, "/bookshelf/best", nil, nil, &result); err != nil {
		return nil, fail(ctx, OpBestBookshelves, classify(err), MsgBestBookshelvesFailed, err)
	}
	if result == nil {
		result = []model.BookshelfPreview{}
	}
	return result, nil
}
