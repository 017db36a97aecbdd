// grid finds and selects a row in a paginated html table
//
// The search drives a Browser: it waits for the busy indicator, reads the
// rows of the visible page, matches them against text criteria and either
// selects the matching row or clicks "next" and tries again.
package grid

import (
	"context"
	"time"
)

// Finder locates elements. Find returns ErrNotFound when nothing matches.
type Finder interface {
	Find(ctx context.Context, loc Locator) (Element, error)
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
}

// Element is a handle to a node in the page. Finder methods on an Element
// are scoped to its descendants.
type Element interface {
	Finder
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (value string, present bool, err error)
	Click(ctx context.Context) error
	SetChecked(ctx context.Context, checked bool) error
	ScrollIntoView(ctx context.Context) error
}

// Browser is the document scope of one tab.
type Browser interface {
	Finder
	// WaitAbsent blocks until no element matches loc or timeout elapses.
	// Elapsing the timeout is not an error.
	WaitAbsent(ctx context.Context, loc Locator, timeout time.Duration) error
}
