package extractor

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Page lookups when no element matches the
// selector within the locator timeout.
var ErrNotFound = errors.New("element not found")

// Page is the read-only view of a loaded document that strategies query.
// Implementations bound each lookup by their own per-locator timeout and
// return ErrNotFound rather than waiting indefinitely.
type Page interface {
	// HTML returns the full serialized document.
	HTML(ctx context.Context) (string, error)

	// Text returns the visible text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)

	// InnerHTML returns the inner markup of the first element matching selector.
	InnerHTML(ctx context.Context, selector string) (string, error)

	// Attr returns attribute name of the first element matching selector.
	Attr(ctx context.Context, selector, name string) (string, error)

	// Attrs returns attribute name of every element matching selector, in
	// document order, skipping elements without it.
	Attrs(ctx context.Context, selector, name string) ([]string, error)
}
