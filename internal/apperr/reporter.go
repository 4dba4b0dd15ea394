package apperr

import (
	"log/slog"
	"sync"
)

// Handler receives reported errors
type Handler func(*Error)

// Reporter fans reported errors out to every registered handler.
// A handler that panics is logged and skipped; the others still run.
type Reporter struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	order    []int
	nextID   int
	logger   *slog.Logger
}

// NewReporter creates a reporter. A nil logger uses slog.Default().
func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		handlers: make(map[int]Handler),
		logger:   logger,
	}
}

// Register adds a handler and returns a function that removes it
func (r *Reporter) Register(h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.handlers[id] = h
	r.order = append(r.order, id)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.handlers[id]; !ok {
			return
		}
		delete(r.handlers, id)
		for i, v := range r.order {
			if v == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
}

// Len returns the number of registered handlers
func (r *Reporter) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Report delivers err to all handlers in registration order. Nil errors are ignored.
// A nil *Reporter only logs.
func (r *Reporter) Report(err error) {
	appErr := As(err)
	if appErr == nil {
		return
	}
	if r == nil {
		slog.Warn("graph error", "category", appErr.Category, "op", appErr.Op, "error", appErr.Err)
		return
	}

	r.logger.Warn("graph error",
		"category", appErr.Category,
		"op", appErr.Op,
		"error", appErr.Err,
	)

	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.order))
	for _, id := range r.order {
		handlers = append(handlers, r.handlers[id])
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		r.invoke(h, appErr)
	}
}

func (r *Reporter) invoke(h Handler, err *Error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("error handler panicked", "category", err.Category, "panic", p)
		}
	}()
	h(err)
}
