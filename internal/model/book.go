package model

type Book struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Publisher string   `json:"publisher,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	ISBN      string   `json:"isbn"`
	URL       string   `json:"url,omitempty"`
}

// BookshelfPreview is a recommended member bookshelf shown on the home feed.
type BookshelfPreview struct {
	MemberID string   `json:"memberId"`
	Nickname string   `json:"nickname"`
	Images   []string `json:"images"`
}
