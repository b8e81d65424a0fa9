package resources

import (
	"bytes"
	"encoding/json"
)

// Page is one page of a paginated collection
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// pageEnvelope has Page's fields without its UnmarshalJSON method
type pageEnvelope[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// UnmarshalJSON accepts both the paginated envelope and a bare JSON array;
// some list endpoints return the latter.
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*p = Page[T]{Items: items, Total: len(items), Page: 1, Size: len(items), Pages: 1}
		return nil
	}

	var env pageEnvelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	*p = Page[T](env)
	return nil
}

// Len returns the number of items on the page
func (p *Page[T]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

// Find returns the first item matching fn
func (p *Page[T]) Find(fn func(T) bool) (T, bool) {
	var zero T
	if p == nil {
		return zero, false
	}
	for _, item := range p.Items {
		if fn(item) {
			return item, true
		}
	}
	return zero, false
}
