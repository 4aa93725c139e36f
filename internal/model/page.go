package model

// Page is one batch of a paginated upstream listing.
type Page[T any] struct {
	Documents []T  `json:"documents"`
	IsEnd     bool `json:"is_end"`
}

// Flatten concatenates the documents of pages in order.
func Flatten[T any](pages []Page[T]) []T {
	n := 0
	for _, p := range pages {
		n += len(p.Documents)
	}
	out := make([]T, 0, n)
	for _, p := range pages {
		out = append(out, p.Documents...)
	}
	return out
}
