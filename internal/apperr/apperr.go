// Package apperr defines the recoverable error hierarchy of the resource graph
// and a central registry of handlers that are notified when one is reported.
//
// Every Error carries a Category, a user-facing Message and a suggested
// Recovery action. None of them abort a graph build: callers report them
// and continue with a degraded but valid result.
package apperr

import (
	"errors"
	"fmt"
)

// Category classifies a recoverable error
type Category string

const (
	CategoryResourceData Category = "resource_data"
	CategoryLayout       Category = "layout"
	CategoryCache        Category = "cache"
	CategoryNavigation   Category = "navigation"
	CategoryUnknown      Category = "unknown"
)

// Sentinels for errors.Is matching by category
var (
	ErrResourceData = errors.New("resource data error")
	ErrLayout       = errors.New("graph layout error")
	ErrCache        = errors.New("cache error")
	ErrNavigation   = errors.New("navigation error")
)

var categorySentinels = map[Category]error{
	CategoryResourceData: ErrResourceData,
	CategoryLayout:       ErrLayout,
	CategoryCache:        ErrCache,
	CategoryNavigation:   ErrNavigation,
}

var defaults = map[Category]struct{ message, recovery string }{
	CategoryResourceData: {
		message:  "Some resources could not be displayed.",
		recovery: "Check the project for resources with missing names or kinds and reconcile again.",
	},
	CategoryLayout: {
		message:  "The graph could not be laid out automatically.",
		recovery: "Nodes are shown in a simple grid. Narrow the view to fewer resources to restore the layout.",
	},
	CategoryCache: {
		message:  "Saved graph positions are unavailable.",
		recovery: "Positions will be recomputed. Clear the graph cache if this keeps happening.",
	},
	CategoryNavigation: {
		message:  "The graph link is not valid.",
		recovery: "Open the graph from the resource list or remove the unknown parameters from the link.",
	},
	CategoryUnknown: {
		message:  "Something went wrong while showing the graph.",
		recovery: "Reload the graph.",
	},
}

// Error is a recoverable, categorized failure
type Error struct {
	Category Category
	Op       string // operation that failed, e.g. "cache.persist"
	Message  string // user-facing message
	Recovery string // suggested recovery action
	Err      error  // underlying cause, may be nil
}

// Error implements error
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Op)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the category sentinel
func (e *Error) Is(target error) bool {
	sentinel, ok := categorySentinels[e.Category]
	return ok && sentinel == target
}

// New builds an Error with the category's default message and recovery action
func New(category Category, op string, err error) *Error {
	d, ok := defaults[category]
	if !ok {
		d = defaults[CategoryUnknown]
	}
	return &Error{
		Category: category,
		Op:       op,
		Message:  d.message,
		Recovery: d.recovery,
		Err:      err,
	}
}

// ResourceData reports missing or incomplete resources
func ResourceData(op string, err error) *Error {
	return New(CategoryResourceData, op, err)
}

// Layout reports a layout algorithm failure
func Layout(op string, err error) *Error {
	return New(CategoryLayout, op, err)
}

// Cache reports an unavailable or full cache store
func Cache(op string, err error) *Error {
	return New(CategoryCache, op, err)
}

// Navigation reports an invalid graph link or parameter
func Navigation(op string, err error) *Error {
	return New(CategoryNavigation, op, err)
}

// WithMessage overrides the user-facing message
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// As extracts an *Error from err. Plain errors become CategoryUnknown.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(CategoryUnknown, "unknown", err)
}
